// Package router 负责把请求处理器绑定到 gin 路由.
package router

import (
	"github.com/gin-gonic/gin"
)

// ShareHandlers 定义由应用层注入的上传下载处理器. router 包只负责将路径和处理器绑定到 gin 引擎，
// 处理器的实现由 pkg/internal/handle 提供.
type ShareHandlers interface {
	Upload() gin.HandlerFunc
	Download() gin.HandlerFunc
}

// Register 将上传下载路由绑定到传入的路由组.
// uploadMiddlewares 只作用于上传路由，例如请求体大小限制.
//
//	POST /upload        -> Upload
//	GET  /download/:id  -> Download
func Register(group *gin.RouterGroup, handlers ShareHandlers, uploadMiddlewares ...gin.HandlerFunc) {
	upload := append(append([]gin.HandlerFunc{}, uploadMiddlewares...), handlers.Upload())

	group.POST("/upload", upload...)
	group.GET("/download/:id", handlers.Download())
}
