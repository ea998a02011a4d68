package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultAuthHeader   = "user-uuid" // 携带用户标识的请求头
	DefaultAuthCacheTTL = 0           // 身份缓存时间，0 表示不缓存
)

// AuthConfig 控制上传时的身份校验.
type AuthConfig struct {
	Header   string        `mapstructure:"header"    rule:"required"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" rule:"min=0"`
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.header", DefaultAuthHeader)
	v.SetDefault("auth.cache_ttl", DefaultAuthCacheTTL)
}
