// Package middleware 提供 gin 中间件：访问日志、CORS、压缩、请求ID、限流、熔断、监控与追踪.
package middleware

import (
	crand "crypto/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid"
)

// HeaderRequestID 请求ID头.
const HeaderRequestID = "X-Request-ID"

// ctxKeyRequestID gin.Context 中保存请求ID的键.
const ctxKeyRequestID = "request_id"

var (
	entropyMu   sync.Mutex
	ulidEntropy = ulid.Monotonic(crand.Reader, 0)
)

func newRequestID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

// RequestIDMiddleware 为每个请求分配 ULID 请求ID，已携带合法值时沿用.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := ulid.Parse(id); err != nil {
			id = newRequestID()
		}

		c.Set(ctxKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestID 返回当前请求的请求ID.
func RequestID(c *gin.Context) string {
	return c.GetString(ctxKeyRequestID)
}

// BodyLimitMiddleware 限制请求体最大字节数，超出部分在读取时报错.
func BodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}

		c.Next()
	}
}
