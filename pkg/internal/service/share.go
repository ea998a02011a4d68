package service

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/dropvault/pkg/internal/model"
	"github.com/yeisme/dropvault/pkg/internal/naming"
	"github.com/yeisme/dropvault/pkg/internal/storage/db"
	"github.com/yeisme/dropvault/pkg/internal/token"
	"github.com/yeisme/dropvault/pkg/internal/types"
	"github.com/yeisme/dropvault/pkg/log"
	"github.com/yeisme/dropvault/pkg/metrics"
	"github.com/yeisme/dropvault/pkg/tracing"
)

const (
	// MaxFileNameBytes 原始文件名的最大字节数.
	MaxFileNameBytes = 255
	// MaxLiveMillis live 参数的上限（不含），约 10 年.
	MaxLiveMillis int64 = 10 * 365 * 24 * 60 * 60 * 1000
)

// MetadataStore 文件记录的写入与查询.
type MetadataStore interface {
	Insert(ctx context.Context, f *model.File) error
	FindAvailable(ctx context.Context, storeName, token string, nowMs int64) (*model.File, error)
}

// BlobStore 按存储名读写文件内容.
type BlobStore interface {
	Create(name string) (*os.File, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
}

// Attachment 下载结果，调用方负责关闭 Content.
type Attachment struct {
	Content *os.File
	Name    string
	Size    int64
}

// ShareService 上传与下载流水线.
type ShareService struct {
	auth           *AuthGate
	files          MetadataStore
	blobs          BlobStore
	maxUploadBytes int64
	now            func() time.Time
	deriveName     func(string) string
}

// Option 调整 ShareService.
type Option func(*ShareService)

// WithClock 注入时钟.
func WithClock(now func() time.Time) Option {
	return func(s *ShareService) { s.now = now }
}

// WithNameFunc 替换存储名派生函数.
func WithNameFunc(fn func(string) string) Option {
	return func(s *ShareService) { s.deriveName = fn }
}

// NewShareService 创建 ShareService，maxUploadBytes 为单次上传的字节上限.
func NewShareService(auth *AuthGate, files MetadataStore, blobs BlobStore, maxUploadBytes int64, opts ...Option) *ShareService {
	s := &ShareService{
		auth:           auth,
		files:          files,
		blobs:          blobs,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
		deriveName:     naming.Derive,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Upload 校验身份与参数，把第一个 multipart 文件写入存储并登记记录.
// 先写文件再写记录；记录写入失败时删除已写入的文件.
func (s *ShareService) Upload(ctx context.Context, req *types.UploadRequest) (resp *types.UploadResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, "share.upload")
	defer func() {
		endSpan(span, err)
		metrics.UploadsTotal.WithLabelValues(resultLabel(err)).Inc()
	}()

	if err := s.auth.Check(ctx, req.UserUUID); err != nil {
		return nil, err
	}

	if err := s.checkContentLength(req.ContentLength); err != nil {
		return nil, err
	}

	tok, issued := token.Resolve(req.Token)

	now := s.now()

	deadAt, err := deadline(req.Live, now)
	if err != nil {
		return nil, err
	}

	if req.Parts == nil {
		return nil, newError(KindBadRequest, "request body is not multipart")
	}

	part, err := req.Parts.NextPart()
	if err != nil {
		return nil, newError(KindBadRequest, "read file part: %w", err)
	}
	defer part.Close()

	name := declaredFileName(part)
	if name == "" || len(name) > MaxFileNameBytes {
		return nil, newError(KindBadRequest, "invalid file name length %d", len(name))
	}

	storeName := s.deriveName(name)
	span.SetAttributes(attribute.String("dropvault.store_name", storeName))

	size, err := s.writeBlob(ctx, storeName, part)
	if err != nil {
		return nil, err
	}

	rec := &model.File{
		Name:      name,
		Token:     tok,
		UserUUID:  req.UserUUID,
		StoreName: storeName,
		CreatedAt: now.UnixMilli(),
		DeadAt:    deadAt,
	}
	if err := s.files.Insert(ctx, rec); err != nil {
		s.discard(ctx, storeName)

		return nil, newError(KindInternal, "insert record: %w", err)
	}

	metrics.UploadBytesTotal.Add(float64(size))

	log.WithTrace(ctx, log.Logger()).Info().
		Str("store_name", storeName).
		Int64("size", size).
		Bool("token_issued", issued).
		Bool("expires", deadAt != nil).
		Msg("file uploaded")

	return &types.UploadResponse{Token: tok, ID: storeName}, nil
}

// checkContentLength 声明的长度超过上限时拒绝，空白视为未提供.
func (s *ShareService) checkContentLength(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return newError(KindBadRequest, "malformed content-length: %w", err)
	}

	if n > s.maxUploadBytes {
		return newError(KindPayloadTooLarge, "content-length %d exceeds %d", n, s.maxUploadBytes)
	}

	return nil
}

// deadline 解析 live；只有 0 < live < MaxLiveMillis 时设置过期时间.
func deadline(raw string, now time.Time) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	live, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, newError(KindBadRequest, "malformed live: %w", err)
	}

	if live <= 0 || live >= MaxLiveMillis {
		return nil, nil
	}

	d := now.UnixMilli() + live

	return &d, nil
}

// writeBlob 以独占方式创建文件并流式写入.
// 读写过程中的失败归为客户端错误，创建、落盘失败归为内部错误；任何失败都会删除半成品.
func (s *ShareService) writeBlob(ctx context.Context, storeName string, r io.Reader) (int64, error) {
	f, err := s.blobs.Create(storeName)
	if err != nil {
		return 0, newError(KindInternal, "create blob: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, s.maxUploadBytes+1))
	if err == nil && n > s.maxUploadBytes {
		err = errors.New("upload stream exceeds size limit")
	}

	if err != nil {
		_ = f.Close()
		s.discard(ctx, storeName)

		return 0, newError(KindBadRequest, "stream blob: %w", err)
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		s.discard(ctx, storeName)

		return 0, newError(KindInternal, "sync blob: %w", err)
	}

	if err := f.Close(); err != nil {
		s.discard(ctx, storeName)

		return 0, newError(KindInternal, "close blob: %w", err)
	}

	return n, nil
}

// discard 尽力删除文件，失败只记录日志.
func (s *ShareService) discard(ctx context.Context, storeName string) {
	if err := s.blobs.Delete(storeName); err != nil {
		log.WithTrace(ctx, log.Logger()).Error().
			Err(err).
			Str("store_name", storeName).
			Msg("failed to remove blob after upload failure")
	}
}

// Download 按存储名与令牌打开可下载的文件.
// 令牌格式错误、记录不存在/不可用/已过期、文件缺失都返回 KindNotFound.
func (s *ShareService) Download(ctx context.Context, storeName, tok string) (att *Attachment, err error) {
	ctx, span := tracing.StartSpan(ctx, "share.download",
		trace.WithAttributes(attribute.String("dropvault.store_name", storeName)))
	defer func() {
		endSpan(span, err)
		metrics.DownloadsTotal.WithLabelValues(resultLabel(err)).Inc()
	}()

	if !token.Validate(tok, token.MinLen, token.MaxLen) {
		return nil, newError(KindNotFound, "malformed token")
	}

	rec, err := s.files.FindAvailable(ctx, storeName, tok, s.now().UnixMilli())
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.WithTrace(ctx, log.Logger()).Warn().Err(err).Str("store_name", storeName).Msg("file lookup failed")
		}

		return nil, newError(KindNotFound, "lookup: %w", err)
	}

	if !rec.Available || rec.ExpiredAt(s.now().UnixMilli()) {
		return nil, newError(KindNotFound, "record %d no longer available", rec.ID)
	}

	f, err := s.blobs.Open(storeName)
	if err != nil {
		return nil, newError(KindNotFound, "open blob: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()

		return nil, newError(KindNotFound, "stat blob: %w", err)
	}

	return &Attachment{Content: f, Name: rec.Name, Size: info.Size()}, nil
}

// declaredFileName 返回客户端在 Content-Disposition 中声明的原始 filename.
// multipart.Part.FileName 会取 basename，这里需要未经改写的值.
func declaredFileName(p *multipart.Part) string {
	_, params, err := mime.ParseMediaType(p.Header.Get("Content-Disposition"))
	if err != nil {
		return ""
	}

	return params["filename"]
}

func resultLabel(err error) string {
	if err == nil {
		return metrics.ResultOK
	}

	return KindOf(err).String()
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, KindOf(err).String())
	}

	span.End()
}
