// Package app 提供应用程序的初始化、依赖装配与生命周期管理.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/dropvault/pkg/api"
	"github.com/yeisme/dropvault/pkg/cache"
	"github.com/yeisme/dropvault/pkg/configs"
	"github.com/yeisme/dropvault/pkg/internal/handle"
	"github.com/yeisme/dropvault/pkg/internal/service"
	"github.com/yeisme/dropvault/pkg/internal/storage"
	"github.com/yeisme/dropvault/pkg/log"
	"github.com/yeisme/dropvault/pkg/metrics"
	"github.com/yeisme/dropvault/pkg/middleware"
	"github.com/yeisme/dropvault/pkg/tracing"
)

// multipartOverhead 上传请求体在文件内容之外允许的 multipart 边界与头部开销.
const multipartOverhead = 1 << 20

// App HTTP 服务及其依赖.
type App struct {
	Engine  *gin.Engine
	Storage *storage.Manager
	config  *configs.AppConfig
	server  *http.Server
}

// NewApp 按已加载的配置初始化追踪、监控与存储，并装配路由.
func NewApp(ctx context.Context, config *configs.AppConfig) (*App, error) {
	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	manager, err := storage.Open(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine, err := NewEngine(config, manager)
	if err != nil {
		_ = manager.Close()

		return nil, err
	}

	return &App{
		Engine:  engine,
		Storage: manager,
		config:  config,
		server: &http.Server{
			Addr:              config.Server.Addr(),
			Handler:           engine,
			ReadHeaderTimeout: config.Server.GetTimeoutDuration(),
		},
	}, nil
}

// NewEngine 创建 gin 引擎，挂载中间件与全部路由.
// 限流只作用于上传接口，按 auth.header 携带的上传者身份计数.
func NewEngine(config *configs.AppConfig, manager *storage.Manager) (*gin.Engine, error) {
	engine := gin.New()

	engine.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.GinLoggerMiddleware(),
		middleware.CORSMiddleware(config.Server, config.Auth.Header),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.CircuitBreakerMiddleware(config.CircuitBreaker),
		// 下载是已知长度的二进制流，不压缩
		middleware.GzipMiddleware("/download/"),
	)

	maxBytes := config.Storage.MaxUploadBytes()
	svc := service.NewShareService(
		service.NewAuthGate(identityStore(config, manager)),
		manager.Files,
		manager.Blob,
		maxBytes,
	)

	api.RegisterGroup(engine,
		handle.NewShareHandlers(svc, config.Auth.Header),
		handle.NewHealthHandlers(manager.DB, manager.Blob),
		middleware.RateLimitMiddleware(config.RateLimit, config.Auth.Header),
		middleware.BodyLimitMiddleware(maxBytes+multipartOverhead),
	)

	// 业务路由之后注册，路径冲突时返回错误
	if err := metrics.StartMetricsServer(config.Metrics, engine); err != nil {
		return nil, fmt.Errorf("init metrics route: %w", err)
	}

	return engine, nil
}

// identityStore auth.cache_ttl 大于 0 且 KV 可用时在用户表前加一层缓存.
func identityStore(config *configs.AppConfig, manager *storage.Manager) service.IdentityStore {
	if config.Auth.CacheTTL <= 0 || manager.KV == nil {
		return manager.Users
	}

	c := cache.NewCache(manager.KV, service.IdentityCacheNamespace)

	return service.NewCachedIdentityStore(manager.Users, c, config.Auth.CacheTTL)
}

// Run 启动 HTTP 服务，ctx 取消后在 server.shutdown_timeout 内优雅关闭.
func (a *App) Run(ctx context.Context) error {
	l := log.Logger()

	configs.OnReload(func(cfg configs.AppConfig) {
		log.SetLevel(cfg.Log.Level)
		l.Info().Str("level", cfg.Log.Level).Msg("config reloaded")
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.Info().Str("addr", a.server.Addr).Msg("dropvault listening")

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.config.Server.GetShutdownTimeout())
		defer cancel()

		l.Info().Msg("shutting down")

		return errors.Join(
			a.server.Shutdown(shutdownCtx),
			tracing.ShutdownTracer(shutdownCtx),
		)
	})

	return g.Wait()
}

// Close 释放存储资源.
func (a *App) Close() error {
	return a.Storage.Close()
}
