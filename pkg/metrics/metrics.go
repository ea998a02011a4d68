// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集 HTTP 请求与文件上传下载结果指标.
//
// Example:
//
//	import "github.com/yeisme/dropvault/pkg/metrics"
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// 记录指标
//	metrics.UploadsTotal.WithLabelValues(metrics.ResultOK).Inc()
package metrics

import (
	"fmt"
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/dropvault/pkg/configs"
)

// ResultOK 成功结果标签，失败时使用错误类别名称.
const ResultOK = "ok"

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 活跃连接数.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections",
		},
	)

	// UploadsTotal 上传结果计数.
	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dropvault_uploads_total",
			Help: "Total number of upload attempts by result",
		},
		[]string{"result"},
	)

	// UploadBytesTotal 成功上传的字节数.
	UploadBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dropvault_upload_bytes_total",
			Help: "Total number of bytes stored by successful uploads",
		},
	)

	// DownloadsTotal 下载结果计数.
	DownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dropvault_downloads_total",
			Help: "Total number of download attempts by result",
		},
		[]string{"result"},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()

	registerOnce sync.Once
	runtimeOnce  sync.Once
)

// InitMetrics 初始化Metrics，可重复调用.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	// 注册标准收集器；合并默认注册表时它已自带 Go 与进程收集器
	if config.RuntimeMetrics && !config.DBMetrics {
		runtimeOnce.Do(func() {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		})
	}

	registerOnce.Do(func() {
		registry.MustRegister(
			RequestCounter, RequestDuration, ActiveConnections,
			UploadsTotal, UploadBytesTotal, DownloadsTotal,
		)
	})

	return nil
}

// StartMetricsServer 在 engine 上注册指标与 pprof 端点.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine) (err error) {
	if !config.Enabled {
		return nil
	}

	path := config.Path
	if path == "" {
		path = "/metrics"
	}

	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("metrics path %q must start with '/'", path)
	}

	// gin 在路由冲突时 panic
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("register metrics route %s: %v", path, r)
		}
	}()

	engine.GET(path, gin.WrapH(promhttp.HandlerFor(gatherer(config), promhttp.HandlerOpts{})))

	// 如果启用pprof，注册pprof端点
	if config.Pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// gatherer gorm prometheus 插件注册在默认注册表上，开启数据库指标时合并输出.
func gatherer(config configs.MetricsConfig) prometheus.Gatherer {
	if config.DBMetrics {
		return prometheus.Gatherers{registry, prometheus.DefaultGatherer}
	}

	return registry
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
