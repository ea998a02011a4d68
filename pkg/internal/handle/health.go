package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const timeout = 2 * time.Second

// Pinger 可探活的数据库连接.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WritableChecker 检查存储根目录可写.
type WritableChecker interface {
	Check() error
}

// HealthHandlers 健康检查处理器.
type HealthHandlers struct {
	db    Pinger
	store WritableChecker
}

// NewHealthHandlers 创建 HealthHandlers.
func NewHealthHandlers(db Pinger, store WritableChecker) *HealthHandlers {
	return &HealthHandlers{db: db, store: store}
}

// DB 数据库健康检查.
func (h *HealthHandlers) DB() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.db == nil {
			unhealthy(c, "db", "db client not initialized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			unhealthy(c, "db", err.Error())
			return
		}

		c.JSON(http.StatusOK, gin.H{"component": "db", "status": "ok"})
	}
}

// Storage 存储根目录健康检查.
func (h *HealthHandlers) Storage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.store == nil {
			unhealthy(c, "storage", "blob store not initialized")
			return
		}

		if err := h.store.Check(); err != nil {
			unhealthy(c, "storage", err.Error())
			return
		}

		c.JSON(http.StatusOK, gin.H{"component": "storage", "status": "ok"})
	}
}

func unhealthy(c *gin.Context, component, reason string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"component": component, "status": "unhealthy", "error": reason})
}
