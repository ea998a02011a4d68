// Package types 定义 HTTP 层与服务层之间的请求/响应结构.
package types

import "mime/multipart"

// UploadQuery 上传接口的查询参数.
type UploadQuery struct {
	Token string `form:"token"` // 可选，自带分享令牌
	Live  string `form:"live"`  // 可选，存活毫秒数
}

// UploadRequest 上传流水线的输入.
type UploadRequest struct {
	UserUUID      string            // 身份请求头的原始值
	ContentLength string            // Content-Length 请求头原始值，空表示未提供
	Token         string            // 查询参数 token 原始值
	Live          string            // 查询参数 live 原始值
	Parts         *multipart.Reader // 请求体不是 multipart 时为 nil
}

// UploadResponse 上传成功的响应.
type UploadResponse struct {
	Token string `json:"token"`
	ID    string `json:"id"`
}

// DownloadQuery 下载接口的查询参数.
type DownloadQuery struct {
	Token string `form:"token"`
}

// ErrorResponse 错误响应.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse 健康检查响应.
type HealthResponse struct {
	Status string `json:"status"`
}
