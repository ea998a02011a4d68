package middleware

import (
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/dropvault/pkg/log"
)

// redactedQueryKeys 访问日志中需要隐藏取值的查询参数.
var redactedQueryKeys = []string{"token"}

// GinLoggerMiddleware 使用zerolog记录Gin请求日志的中间件.
func GinLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		method := c.Request.Method
		clientIP := c.ClientIP()

		// 执行下一个中间件/处理器
		c.Next()

		// 计算延迟
		latency := time.Since(start)

		// 获取状态码
		statusCode := c.Writer.Status()

		// 如果有查询参数，脱敏后添加到路径中
		if raw != "" {
			path = path + "?" + RedactQuery(raw)
		}

		// 获取错误信息（如果有）
		var errorMsg string
		if len(c.Errors) > 0 {
			errorMsg = c.Errors.String()
		}

		// 使用zerolog记录日志
		logger := log.WithTrace(c.Request.Context(), log.Logger())
		event := logger.Info().
			Int("status", statusCode).
			Dur("latency", latency).
			Str("method", method).
			Str("path", path).
			Str("client_ip", clientIP).
			Int("size", c.Writer.Size())

		if id := RequestID(c); id != "" {
			event = event.Str("request_id", id)
		}

		if errorMsg != "" {
			event = event.Str("error", errorMsg)
		}

		event.Msg("HTTP request")
	}
}

// RedactQuery 将敏感查询参数的值替换为 REDACTED，无法解析的查询串整体隐藏.
func RedactQuery(raw string) string {
	q, err := url.ParseQuery(raw)
	if err != nil {
		return "REDACTED"
	}

	changed := false

	for _, k := range redactedQueryKeys {
		if vs, ok := q[k]; ok {
			for i := range vs {
				vs[i] = "REDACTED"
			}

			changed = true
		}
	}

	if !changed {
		return raw
	}

	return q.Encode()
}
