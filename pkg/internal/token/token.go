// Package token 生成与校验分享令牌.
package token

import (
	"math/rand/v2"
	"strings"

	"github.com/yeisme/dropvault/pkg/rule"
)

const (
	// MinLen 调用方自带令牌的最小长度.
	MinLen = 6
	// MaxLen 调用方自带令牌的最大长度.
	MaxLen = 32
	// IssuedLen 服务端签发令牌的长度.
	IssuedLen = 12
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Validate 判断 tok 长度在 [minLen, maxLen] 内且只包含 ASCII 字母与数字.
func Validate(tok string, minLen, maxLen int) bool {
	if len(tok) < minLen || len(tok) > maxLen {
		return false
	}

	if tok == "" {
		return true
	}

	return rule.ValidateVar(tok, "alphanum") == nil
}

// Issue 从 62 个字母数字字符中均匀抽取生成长度为 n 的令牌.
func Issue(n int) string {
	if n <= 0 {
		return ""
	}

	var b strings.Builder

	b.Grow(n)

	for range n {
		b.WriteByte(alphabet[rand.IntN(len(alphabet))])
	}

	return b.String()
}

// Resolve 调用方令牌合法时沿用，否则签发新令牌；issued 表示是否为新签发.
func Resolve(candidate string) (tok string, issued bool) {
	if Validate(candidate, MinLen, MaxLen) {
		return candidate, false
	}

	return Issue(IssuedLen), true
}
