package configs

import "github.com/spf13/viper"

const (
	// 上传限流默认值，每个上传者每秒 2 次，允许 10 次突发.
	DefaultRateLimitEnabled = false
	DefaultRateLimitRPS     = 2.0
	DefaultRateLimitBurst   = 10
	DefaultRateLimitKey     = "identity"
)

// RateLimitConfig 上传接口限流配置，只作用于 POST /upload.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"   rule:"min=0"` // 每秒补充的令牌数
	Burst   int     `mapstructure:"burst" rule:"min=1"` // 令牌桶容量
	// Key 限流维度：identity 按 auth.header 携带的上传者 UUID，global、ip，
	// 或 header:Header-Name 按任意请求头
	Key string `mapstructure:"key" rule:"oneof=global ip identity|startswith=header:"`
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", DefaultRateLimitEnabled)
	v.SetDefault("rate_limit.rps", DefaultRateLimitRPS)
	v.SetDefault("rate_limit.burst", DefaultRateLimitBurst)
	v.SetDefault("rate_limit.key", DefaultRateLimitKey)
}
