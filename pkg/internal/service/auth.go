package service

import (
	"context"
	"errors"

	"github.com/yeisme/dropvault/pkg/rule"
)

var (
	errNoIdentity       = errors.New("identity header missing")
	errMalformedID      = errors.New("identity is not a canonical uuid")
	errIdentityDisabled = errors.New("identity unknown or disabled")
)

// IdentityStore 查询身份是否存在且启用.
type IdentityStore interface {
	IsEnabled(ctx context.Context, uuid string) (bool, error)
}

// AuthGate 上传前的身份校验，必须在读取请求体之前执行.
type AuthGate struct {
	users IdentityStore
}

// NewAuthGate 创建 AuthGate.
func NewAuthGate(users IdentityStore) *AuthGate {
	return &AuthGate{users: users}
}

// Check 校验请求声明的身份.
// 未提供 -> KindUnauthorized；格式错误、不存在或已禁用 -> KindForbidden；查询失败 -> KindInternal.
func (g *AuthGate) Check(ctx context.Context, identity string) error {
	if identity == "" {
		return &Error{Kind: KindUnauthorized, Err: errNoIdentity}
	}

	if !rule.IsCanonicalUUID(identity) {
		return &Error{Kind: KindForbidden, Err: errMalformedID}
	}

	ok, err := g.users.IsEnabled(ctx, identity)
	if err != nil {
		return newError(KindInternal, "identity lookup: %w", err)
	}

	if !ok {
		return &Error{Kind: KindForbidden, Err: errIdentityDisabled}
	}

	return nil
}
