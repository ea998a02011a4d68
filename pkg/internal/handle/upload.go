package handle

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/dropvault/pkg/internal/types"
)

// Upload 处理 POST /upload.
//
// 请求头携带用户身份，查询参数 token、live 可选，请求体为 multipart，只读取第一个文件字段.
func (h *ShareHandlers) Upload() gin.HandlerFunc {
	return func(c *gin.Context) {
		var q types.UploadQuery
		// 字段均为字符串，绑定不会失败；格式校验交给流水线
		_ = c.ShouldBindQuery(&q)

		req := &types.UploadRequest{
			UserUUID:      c.GetHeader(h.authHeader),
			ContentLength: contentLength(c.Request),
			Token:         q.Token,
			Live:          q.Live,
		}

		// 非 multipart 请求保持 Parts 为 nil，由流水线在鉴权之后拒绝
		if mr, err := c.Request.MultipartReader(); err == nil {
			req.Parts = mr
		}

		resp, err := h.svc.Upload(c.Request.Context(), req)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

// contentLength 返回声明的 Content-Length 原文.
// 请求头缺失但请求已知长度时（例如进程内构造的请求）回退到 r.ContentLength.
func contentLength(r *http.Request) string {
	if v := r.Header.Get("Content-Length"); v != "" {
		return v
	}

	if r.ContentLength > 0 {
		return strconv.FormatInt(r.ContentLength, 10)
	}

	return ""
}
