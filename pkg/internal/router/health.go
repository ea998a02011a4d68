package router

import (
	"github.com/gin-gonic/gin"
)

// HealthHandlers 健康检查处理器.
type HealthHandlers interface {
	DB() gin.HandlerFunc
	Storage() gin.HandlerFunc
}

// RegisterHealthCheckRoute 注册健康检查路由.
func RegisterHealthCheckRoute(g *gin.RouterGroup, handlers HealthHandlers) {
	healthRoutes := g.Group("/health")
	{
		healthRoutes.GET("/db", handlers.DB())
		healthRoutes.GET("/storage", handlers.Storage())
	}
}
