package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/dropvault/pkg/configs"
)

// CORSMiddleware CORS中间件.
func CORSMiddleware(cfg configs.ServerConfig, authHeader string) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AddAllowHeaders(authHeader)
	config.AddExposeHeaders("Content-Disposition", HeaderRequestID)

	if cfg.Debug {
		config.AllowFiles = true
	}

	return cors.New(config)
}
