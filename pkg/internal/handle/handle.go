// Package handle 提供 HTTP 请求处理器，负责请求解析与错误到状态码的映射.
package handle

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/dropvault/pkg/internal/service"
	"github.com/yeisme/dropvault/pkg/internal/types"
	"github.com/yeisme/dropvault/pkg/log"
	"github.com/yeisme/dropvault/pkg/middleware"
)

// Sharer 上传与下载流水线.
type Sharer interface {
	Upload(ctx context.Context, req *types.UploadRequest) (*types.UploadResponse, error)
	Download(ctx context.Context, storeName, token string) (*service.Attachment, error)
}

// ShareHandlers 上传与下载处理器.
type ShareHandlers struct {
	svc        Sharer
	authHeader string
}

// NewShareHandlers 创建 ShareHandlers，authHeader 为携带用户身份的请求头名称.
func NewShareHandlers(svc Sharer, authHeader string) *ShareHandlers {
	return &ShareHandlers{svc: svc, authHeader: authHeader}
}

// 错误类别对应的固定响应文本，不包含任何内部细节.
var messages = map[service.Kind]string{
	service.KindUnauthorized:    "unauthorized",
	service.KindForbidden:       "forbidden",
	service.KindBadRequest:      "bad request",
	service.KindPayloadTooLarge: "file too large",
	service.KindNotFound:        "not found",
	service.KindInternal:        "internal server error",
}

func statusOf(kind service.Kind) int {
	switch kind {
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindBadRequest:
		return http.StatusBadRequest
	case service.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case service.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError 记录错误原因并返回固定的错误响应.
func writeError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	status := statusOf(kind)

	l := log.WithTrace(c.Request.Context(), log.Logger())

	ev := l.Warn()
	if status >= http.StatusInternalServerError {
		ev = l.Error()
	}

	ev.Err(err).
		Str("request_id", middleware.RequestID(c)).
		Str("kind", kind.String()).
		Int("status", status).
		Msg("request failed")

	c.AbortWithStatusJSON(status, types.ErrorResponse{Error: messages[kind]})
}
