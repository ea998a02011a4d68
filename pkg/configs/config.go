// Package configs 管理应用程序配置，包括数据库、文件存储、认证和服务器的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并可选启用热重载.
//
// Example:
//
//	import "path/to/configs"
//
//	err := configs.InitConfig("./", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing storage config:
//
//	config := configs.GetConfig()
//	maxBytes := config.Storage.MaxUploadBytes()
//	fmt.Println("max upload bytes:", maxBytes)
//
// Example accessing DB config:
//
//	config := configs.GetConfig()
//	dsn := config.DB.GetDSN()
//	fmt.Println("DSN:", dsn)
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/yeisme/dropvault/pkg/rule"
)

// AppVersion 应用版本号.
const AppVersion = "0.3.0"

// EnvPrefix 环境变量前缀，例如 DROPVAULT_SERVER_PORT.
const EnvPrefix = "DROPVAULT"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 监听地址、超时等
		DB             DBConfig             `mapstructure:"db"`              // DBConfig 元数据库配置
		Storage        StorageConfig        `mapstructure:"storage"`         // StorageConfig 文件存储根目录与大小上限
		Auth           AuthConfig           `mapstructure:"auth"`            // AuthConfig 身份请求头与缓存
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 身份缓存使用的键值存储
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 监控
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 链路追踪
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // RateLimitConfig 限流
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig 熔断
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
	// mu 保护热重载时的并发读写.
	mu sync.RWMutex
	// reloadHooks 热重载完成后依次调用.
	reloadHooks []func(AppConfig)
)

// flagKeys 命令行参数到配置键的映射，命令行参数优先级最高.
var flagKeys = map[string]string{
	"db":            "db.path",
	"store":         "storage.root",
	"max-file-size": "storage.max_file_size_mb",
}

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv).
// path 可以是文件或目录；目录中不存在配置文件时仅使用默认值、环境变量和命令行参数.
func InitConfig(path string, flags *pflag.FlagSet) error {
	v := viper.New()
	// 设置默认值
	setAllDefaults(v)

	explicitFile := false

	// 检查path是否是文件
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		v.SetConfigFile(path)

		explicitFile = true
	} else if path != "" {
		v.SetConfigName("config")
		v.AddConfigPath(path)
		v.AddConfigPath(filepath.Join(path, "configs"))

		for _, ext := range []string{"yaml", "yml", "json", "toml", "env", "dotenv"} {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				v.SetConfigFile(cfg)

				explicitFile = true

				break
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return err
		}
	}

	// 读取配置，目录模式下找不到配置文件不视为错误
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitFile || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyBind(&cfg, flags); err != nil {
		return err
	}

	if err := rule.ValidateStruct(&cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	mu.Lock()
	globalConfig = cfg
	appViper = v
	mu.Unlock()

	reloadConfigs(v, cfg.Server.ReloadConfig && v.ConfigFileUsed() != "")

	return nil
}

// bindFlags 将已定义的命令行参数绑定到对应配置键.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}

		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	return nil
}

// applyBind 处理 --bind host:port 参数，覆盖 server.host 与 server.port.
func applyBind(cfg *AppConfig, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}

	f := flags.Lookup("bind")
	if f == nil || !f.Changed {
		return nil
	}

	return cfg.Server.SetBind(f.Value.String())
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var (
		serverConfig    ServerConfig
		dbConfig        DBConfig
		storageConfig   StorageConfig
		authConfig      AuthConfig
		kvConfig        KVConfig
		logConfig       LogConfig
		metricsConfig   MetricsConfig
		tracingConfig   TracingConfig
		rateLimitConfig RateLimitConfig
		cbConfig        CircuitBreakerConfig
	)

	serverConfig.setDefaults(v)
	dbConfig.setDefaults(v)
	storageConfig.setDefaults(v)
	authConfig.setDefaults(v)
	kvConfig.setDefaults(v)
	logConfig.setDefaults(v)
	metricsConfig.setDefaults(v)
	tracingConfig.setDefaults(v)
	rateLimitConfig.setDefaults(v)
	cbConfig.setDefaults(v)
}

// reloadConfigs 监听配置文件变化. 只有日志级别和限流参数会在运行期生效，
// 数据库与存储相关配置在启动时固定.
func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)

		var next AppConfig
		if err := v.Unmarshal(&next); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
			return
		}

		mu.Lock()
		globalConfig.Log.Level = next.Log.Level
		globalConfig.RateLimit = next.RateLimit
		snapshot := globalConfig
		hooks := append([]func(AppConfig){}, reloadHooks...)
		mu.Unlock()

		for _, fn := range hooks {
			fn(snapshot)
		}
	})
	v.WatchConfig()
}

// OnReload 注册热重载回调，回调收到重载后的配置副本.
func OnReload(fn func(AppConfig)) {
	mu.Lock()
	reloadHooks = append(reloadHooks, fn)
	mu.Unlock()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	mu.RLock()
	defer mu.RUnlock()

	return &globalConfig
}

// GetViper 返回全局 Viper 实例，未初始化时为 nil.
func GetViper() *viper.Viper {
	mu.RLock()
	defer mu.RUnlock()

	return appViper
}
