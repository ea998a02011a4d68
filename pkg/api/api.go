// Package api 汇总对外暴露的 HTTP 路由.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/dropvault/pkg/internal/router"
)

// RegisterGroup 注册上传下载与健康检查路由到传入的 gin 引擎.
func RegisterGroup(e *gin.Engine, share router.ShareHandlers, health router.HealthHandlers, uploadMiddlewares ...gin.HandlerFunc) *gin.Engine {
	root := e.Group("/")

	router.Register(root, share, uploadMiddlewares...)
	router.RegisterHealthCheckRoute(root, health)

	return e
}
