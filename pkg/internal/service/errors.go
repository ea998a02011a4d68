// Package service 实现上传与下载流水线以及上传前的身份校验.
package service

import (
	"errors"
	"fmt"
)

// Kind 流水线错误类别，每一类对应唯一的 HTTP 状态.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindForbidden
	KindBadRequest
	KindPayloadTooLarge
	KindNotFound
)

// String 返回类别名称，同时用作指标标签.
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad_request"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error 带类别的流水线错误，Err 为内部原因，只用于日志.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}

	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf 返回错误的类别，非 *Error 一律视为内部错误.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindInternal
}
