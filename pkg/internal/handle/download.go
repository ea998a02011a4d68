package handle

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/dropvault/pkg/internal/types"
	"github.com/yeisme/dropvault/pkg/log"
)

// Download 处理 GET /download/:id?token=...，任何失败都返回 404.
func (h *ShareHandlers) Download() gin.HandlerFunc {
	return func(c *gin.Context) {
		var q types.DownloadQuery
		_ = c.ShouldBindQuery(&q)

		att, err := h.svc.Download(c.Request.Context(), c.Param("id"), q.Token)
		if err != nil {
			writeError(c, err)
			return
		}
		defer func() {
			if err := att.Content.Close(); err != nil {
				log.Logger().Warn().Err(err).Msg("failed to close blob")
			}
		}()

		// 存储名对应的内容写入后不再变化，可直接作为实体标签
		etag := fmt.Sprintf(`"%x"`, xxhash.Sum64String(c.Param("id")))
		if c.GetHeader("If-None-Match") == etag {
			c.Header("ETag", etag)
			c.Status(http.StatusNotModified)

			return
		}

		c.DataFromReader(http.StatusOK, att.Size, "application/octet-stream", att.Content, map[string]string{
			"Content-Disposition":    contentDisposition(att.Name),
			"ETag":                   etag,
			"X-Content-Type-Options": "nosniff",
		})
	}
}

// quoted-string 内只需处理反斜杠、双引号与换行.
var dispositionReplacer = strings.NewReplacer(`\`, "_", `"`, "_", "\r", "_", "\n", "_")

// contentDisposition 生成 attachment 头，非 ASCII 文件名额外附带 RFC 5987 filename*.
func contentDisposition(name string) string {
	fallback := dispositionReplacer.Replace(name)
	if isASCII(name) {
		return fmt.Sprintf(`attachment; filename="%s"`, fallback)
	}

	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, asciiOnly(fallback), encodeExtValue(name))
}

const upperHex = "0123456789ABCDEF"

// encodeExtValue 按 RFC 5987 对 ext-value 做百分号编码，attr-char 之外的字节全部转义.
func encodeExtValue(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}

		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}

	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}

	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}

	return true
}

// asciiOnly 把非 ASCII 字符替换为 '_'，供不支持 filename* 的客户端使用.
func asciiOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0x80 {
			return '_'
		}

		return r
	}, s)
}
