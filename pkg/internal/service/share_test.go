package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/dropvault/pkg/configs"
	"github.com/yeisme/dropvault/pkg/internal/model"
	"github.com/yeisme/dropvault/pkg/internal/service"
	"github.com/yeisme/dropvault/pkg/internal/storage/blob"
	"github.com/yeisme/dropvault/pkg/internal/storage/db"
	"github.com/yeisme/dropvault/pkg/internal/types"
)

const (
	activeUser   = "3f2504e0-4f89-11d3-9a0c-0305e82c3301"
	disabledUser = "3f2504e0-4f89-11d3-9a0c-0305e82c3302"
	unknownUser  = "3f2504e0-4f89-11d3-9a0c-0305e82c3303"

	maxBytes = 1 << 10
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type env struct {
	svc   *service.ShareService
	files *db.FileStore
	blobs *blob.Store
	clock *clock
}

func newStores(t *testing.T) (*db.UserStore, *db.FileStore, *blob.Store) {
	t.Helper()

	ctx := context.Background()
	dir := t.TempDir()

	client, err := db.New(ctx, configs.DBConfig{
		Type: configs.SQLite,
		Path: filepath.Join(dir, "meta.sqlite"),
	})
	require.NoError(t, err)
	require.NoError(t, client.Migrate(ctx))
	t.Cleanup(func() { _ = client.Close() })

	users := db.NewUserStore(client)
	_, err = users.Create(ctx, activeUser, true)
	require.NoError(t, err)
	_, err = users.Create(ctx, disabledUser, false)
	require.NoError(t, err)

	blobs, err := blob.New(filepath.Join(dir, "store"))
	require.NoError(t, err)

	return users, db.NewFileStore(client), blobs
}

func newEnv(t *testing.T) *env {
	t.Helper()

	users, files, blobs := newStores(t)
	clk := &clock{now: time.UnixMilli(1_700_000_000_000)}

	return &env{
		svc:   service.NewShareService(service.NewAuthGate(users), files, blobs, maxBytes, service.WithClock(clk.Now)),
		files: files,
		blobs: blobs,
		clock: clk,
	}
}

// multipartBody 构造只含一个文件字段的 multipart 请求体.
func multipartBody(t *testing.T, filename string, content []byte) *multipart.Reader {
	t.Helper()

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return multipart.NewReader(&buf, mw.Boundary())
}

func uploadReq(t *testing.T, filename string, content []byte) *types.UploadRequest {
	t.Helper()

	return &types.UploadRequest{
		UserUUID: activeUser,
		Parts:    multipartBody(t, filename, content),
	}
}

func storedBlobs(t *testing.T, s *blob.Store) []string {
	t.Helper()

	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names
}

func readAttachment(t *testing.T, att *service.Attachment) []byte {
	t.Helper()

	defer att.Content.Close()

	data, err := io.ReadAll(att.Content)
	require.NoError(t, err)

	return data
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	content := []byte("hello dropvault")

	req := uploadReq(t, "a.txt", content)
	req.Token = "abcdef"
	req.ContentLength = strconv.Itoa(len(content) + 200)

	resp, err := e.svc.Upload(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", resp.Token)
	assert.Len(t, resp.ID, 32)
	assert.Equal(t, []string{resp.ID}, storedBlobs(t, e.blobs))

	rec, err := e.files.GetByStoreName(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", rec.Name)
	assert.Equal(t, activeUser, rec.UserUUID)
	assert.True(t, rec.Available)
	assert.Nil(t, rec.DeadAt)
	assert.Equal(t, e.clock.Now().UnixMilli(), rec.CreatedAt)

	att, err := e.svc.Download(ctx, resp.ID, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", att.Name)
	assert.Equal(t, int64(len(content)), att.Size)
	assert.Equal(t, content, readAttachment(t, att))
}

func TestUploadEmptyFile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	resp, err := e.svc.Upload(ctx, uploadReq(t, "empty.bin", nil))
	require.NoError(t, err)

	att, err := e.svc.Download(ctx, resp.ID, resp.Token)
	require.NoError(t, err)
	assert.Zero(t, att.Size)
	assert.Empty(t, readAttachment(t, att))
}

func TestUploadTokenResolution(t *testing.T) {
	tests := []struct {
		name  string
		token string
		keep  bool
	}{
		{"absent", "", false},
		{"too short", "abcde", false},
		{"min length", "abcdef", true},
		{"max length", strings.Repeat("Z9", 16), true},
		{"too long", strings.Repeat("a", 33), false},
		{"non alphanumeric", "abc-def", false},
		{"non ascii", "abcdéf", false},
	}

	e := newEnv(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := uploadReq(t, "t.txt", []byte("x"))
			req.Token = tt.token

			resp, err := e.svc.Upload(context.Background(), req)
			require.NoError(t, err)

			if tt.keep {
				assert.Equal(t, tt.token, resp.Token)
				return
			}

			assert.Len(t, resp.Token, 12)
			assert.Regexp(t, `^[A-Za-z0-9]{12}$`, resp.Token)
		})
	}
}

func TestUploadAuth(t *testing.T) {
	tests := []struct {
		name     string
		identity string
		want     service.Kind
	}{
		{"missing", "", service.KindUnauthorized},
		{"malformed", "not-a-uuid", service.KindForbidden},
		{"braced", "{" + activeUser + "}", service.KindForbidden},
		{"unknown", unknownUser, service.KindForbidden},
		{"disabled", disabledUser, service.KindForbidden},
	}

	e := newEnv(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := uploadReq(t, "a.txt", []byte("data"))
			req.UserUUID = tt.identity

			_, err := e.svc.Upload(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, tt.want, service.KindOf(err))
			assert.Empty(t, storedBlobs(t, e.blobs))
		})
	}
}

func TestUploadContentLength(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   service.Kind
		ok     bool
	}{
		{"blank", "   ", 0, true},
		{"at limit", strconv.Itoa(maxBytes), 0, true},
		{"over limit", strconv.Itoa(maxBytes + 1), service.KindPayloadTooLarge, false},
		{"padded over limit", " 999999 ", service.KindPayloadTooLarge, false},
		{"malformed", "12ab", service.KindBadRequest, false},
	}

	e := newEnv(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(storedBlobs(t, e.blobs))

			req := uploadReq(t, "a.txt", []byte("data"))
			req.ContentLength = tt.header

			_, err := e.svc.Upload(context.Background(), req)
			if tt.ok {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Equal(t, tt.want, service.KindOf(err))
			assert.Len(t, storedBlobs(t, e.blobs), before)
		})
	}
}

func TestUploadStreamOverrun(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.Upload(context.Background(), uploadReq(t, "big.bin", bytes.Repeat([]byte("a"), maxBytes+1)))
	require.Error(t, err)
	assert.Equal(t, service.KindBadRequest, service.KindOf(err))
	assert.Empty(t, storedBlobs(t, e.blobs))
}

func TestUploadStreamAtLimit(t *testing.T) {
	e := newEnv(t)

	resp, err := e.svc.Upload(context.Background(), uploadReq(t, "fit.bin", bytes.Repeat([]byte("a"), maxBytes)))
	require.NoError(t, err)
	assert.Equal(t, []string{resp.ID}, storedBlobs(t, e.blobs))
}

func TestUploadLive(t *testing.T) {
	tests := []struct {
		name    string
		live    string
		wantTTL int64
		wantErr bool
	}{
		{"absent", "", 0, false},
		{"positive", "60000", 60000, false},
		{"zero", "0", 0, false},
		{"negative", "-5", 0, false},
		{"ten years", strconv.FormatInt(service.MaxLiveMillis, 10), 0, false},
		{"just under ten years", strconv.FormatInt(service.MaxLiveMillis-1, 10), service.MaxLiveMillis - 1, false},
		{"not integer", "soon", 0, true},
		{"fractional", "1.5", 0, true},
	}

	e := newEnv(t)
	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := uploadReq(t, "live.txt", []byte("x"))
			req.Live = tt.live

			resp, err := e.svc.Upload(ctx, req)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, service.KindBadRequest, service.KindOf(err))

				return
			}

			require.NoError(t, err)

			rec, err := e.files.GetByStoreName(ctx, resp.ID)
			require.NoError(t, err)

			if tt.wantTTL == 0 {
				assert.Nil(t, rec.DeadAt)
				return
			}

			require.NotNil(t, rec.DeadAt)
			assert.Equal(t, e.clock.Now().UnixMilli()+tt.wantTTL, *rec.DeadAt)
		})
	}
}

func TestUploadMalformedBody(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	t.Run("not multipart", func(t *testing.T) {
		_, err := e.svc.Upload(ctx, &types.UploadRequest{UserUUID: activeUser})
		assert.Equal(t, service.KindBadRequest, service.KindOf(err))
	})

	t.Run("no parts", func(t *testing.T) {
		var buf bytes.Buffer

		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.Close())

		_, err := e.svc.Upload(ctx, &types.UploadRequest{
			UserUUID: activeUser,
			Parts:    multipart.NewReader(&buf, mw.Boundary()),
		})
		assert.Equal(t, service.KindBadRequest, service.KindOf(err))
	})

	t.Run("field without filename", func(t *testing.T) {
		var buf bytes.Buffer

		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("note", "hello"))
		require.NoError(t, mw.Close())

		_, err := e.svc.Upload(ctx, &types.UploadRequest{
			UserUUID: activeUser,
			Parts:    multipart.NewReader(&buf, mw.Boundary()),
		})
		assert.Equal(t, service.KindBadRequest, service.KindOf(err))
	})

	t.Run("truncated", func(t *testing.T) {
		body := "--xyz\r\nContent-Disposition: form-data; name=\"file\"; filename=\"a.txt\"\r\n\r\nunterminated"

		_, err := e.svc.Upload(ctx, &types.UploadRequest{
			UserUUID: activeUser,
			Parts:    multipart.NewReader(strings.NewReader(body), "xyz"),
		})
		assert.Equal(t, service.KindBadRequest, service.KindOf(err))
	})

	assert.Empty(t, storedBlobs(t, e.blobs))
}

func TestUploadFileNameLength(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Upload(ctx, uploadReq(t, strings.Repeat("n", service.MaxFileNameBytes+1), []byte("x")))
	assert.Equal(t, service.KindBadRequest, service.KindOf(err))
	assert.Empty(t, storedBlobs(t, e.blobs))

	name := strings.Repeat("n", service.MaxFileNameBytes)
	resp, err := e.svc.Upload(ctx, uploadReq(t, name, []byte("x")))
	require.NoError(t, err)

	att, err := e.svc.Download(ctx, resp.ID, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, name, att.Name)
	_ = att.Content.Close()
}

func TestUploadDeclaredFileName(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	long := strings.Repeat("d", 300) + "/a.txt"
	_, err := e.svc.Upload(ctx, uploadReq(t, long, []byte("x")))
	assert.Equal(t, service.KindBadRequest, service.KindOf(err))
	assert.Empty(t, storedBlobs(t, e.blobs))

	resp, err := e.svc.Upload(ctx, uploadReq(t, "reports/2024/a.txt", []byte("x")))
	require.NoError(t, err)

	rec, err := e.files.GetByStoreName(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "reports/2024/a.txt", rec.Name)
}

func TestUploadUnicodeFileName(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	resp, err := e.svc.Upload(ctx, uploadReq(t, "报告 2024.pdf", []byte("pdf")))
	require.NoError(t, err)

	att, err := e.svc.Download(ctx, resp.ID, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "报告 2024.pdf", att.Name)
	_ = att.Content.Close()
}

func TestUploadSameNameConcurrently(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	const n = 16

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		resp = make([]*types.UploadResponse, 0, n)
	)

	for i := range n {
		body := multipartBody(t, "a.txt", []byte(fmt.Sprintf("content-%d", i)))

		wg.Add(1)

		go func() {
			defer wg.Done()

			r, err := e.svc.Upload(ctx, &types.UploadRequest{UserUUID: activeUser, Parts: body})
			if !assert.NoError(t, err) {
				return
			}

			mu.Lock()
			resp = append(resp, r)
			mu.Unlock()
		}()
	}

	wg.Wait()
	require.Len(t, resp, n)

	seen := make(map[string]bool, n)
	for _, r := range resp {
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true

		att, err := e.svc.Download(ctx, r.ID, r.Token)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(readAttachment(t, att)), "content-"))
	}

	assert.Len(t, storedBlobs(t, e.blobs), n)
}

func TestUploadNameCollision(t *testing.T) {
	users, files, blobs := newStores(t)
	svc := service.NewShareService(service.NewAuthGate(users), files, blobs, maxBytes,
		service.WithNameFunc(func(string) string { return "fixedname" }))

	ctx := context.Background()

	_, err := svc.Upload(ctx, uploadReq(t, "a.txt", []byte("first")))
	require.NoError(t, err)

	_, err = svc.Upload(ctx, uploadReq(t, "a.txt", []byte("second")))
	require.Error(t, err)
	assert.Equal(t, service.KindInternal, service.KindOf(err))

	f, err := blobs.Open("fixedname")
	require.NoError(t, err)

	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

type failingFiles struct {
	err error
}

func (f failingFiles) Insert(context.Context, *model.File) error { return f.err }

func (f failingFiles) FindAvailable(context.Context, string, string, int64) (*model.File, error) {
	return nil, f.err
}

// staleFiles 返回一条固定记录，不做任何过滤.
type staleFiles struct {
	rec model.File
}

func (staleFiles) Insert(context.Context, *model.File) error { return nil }

func (f staleFiles) FindAvailable(context.Context, string, string, int64) (*model.File, error) {
	rec := f.rec

	return &rec, nil
}

func TestDownloadRechecksRecord(t *testing.T) {
	users, _, blobs := newStores(t)
	now := time.UnixMilli(1_700_000_000_000)
	past := now.UnixMilli() - 1
	storeName := strings.Repeat("a", 32)

	w, err := blobs.Create(storeName)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	tests := []struct {
		name string
		rec  model.File
	}{
		{"expired", model.File{ID: 1, Name: "a.txt", StoreName: storeName, Available: true, DeadAt: &past}},
		{"unavailable", model.File{ID: 2, Name: "a.txt", StoreName: storeName}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := service.NewShareService(service.NewAuthGate(users), staleFiles{rec: tt.rec}, blobs, maxBytes,
				service.WithClock(func() time.Time { return now }))

			_, err := svc.Download(context.Background(), storeName, "abcdef")
			assert.Equal(t, service.KindNotFound, service.KindOf(err))
		})
	}
}

func TestUploadInsertFailureRemovesBlob(t *testing.T) {
	users, _, blobs := newStores(t)
	svc := service.NewShareService(service.NewAuthGate(users), failingFiles{err: errors.New("disk full")}, blobs, maxBytes)

	_, err := svc.Upload(context.Background(), uploadReq(t, "a.txt", []byte("payload")))
	require.Error(t, err)
	assert.Equal(t, service.KindInternal, service.KindOf(err))
	assert.Empty(t, storedBlobs(t, blobs))
}

type brokenBlobs struct {
	*blob.Store
}

func (brokenBlobs) Create(string) (*os.File, error) {
	return nil, errors.New("read-only file system")
}

func TestUploadCreateFailure(t *testing.T) {
	users, files, blobs := newStores(t)
	svc := service.NewShareService(service.NewAuthGate(users), files, brokenBlobs{blobs}, maxBytes)

	_, err := svc.Upload(context.Background(), uploadReq(t, "a.txt", []byte("payload")))
	require.Error(t, err)
	assert.Equal(t, service.KindInternal, service.KindOf(err))
}

func TestDownloadNotFound(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	req := uploadReq(t, "secret.txt", []byte("secret"))
	req.Token = "Token123"
	req.Live = "1000"

	resp, err := e.svc.Upload(ctx, req)
	require.NoError(t, err)

	tests := []struct {
		name  string
		id    string
		token string
	}{
		{"wrong token", resp.ID, "Token124"},
		{"empty token", resp.ID, ""},
		{"short token", resp.ID, "Tok12"},
		{"malformed token", resp.ID, "Token-123"},
		{"unknown id", strings.Repeat("0", 32), resp.Token},
		{"traversal id", "../meta.sqlite", resp.Token},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.Download(ctx, tt.id, tt.token)
			assert.Equal(t, service.KindNotFound, service.KindOf(err))
		})
	}

	att, err := e.svc.Download(ctx, resp.ID, resp.Token)
	require.NoError(t, err)
	_ = att.Content.Close()

	t.Run("expired", func(t *testing.T) {
		e.clock.Advance(time.Second)

		_, err := e.svc.Download(ctx, resp.ID, resp.Token)
		assert.Equal(t, service.KindNotFound, service.KindOf(err))
	})
}

func TestDownloadUnavailable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	resp, err := e.svc.Upload(ctx, uploadReq(t, "a.txt", []byte("x")))
	require.NoError(t, err)

	require.NoError(t, e.files.SetAvailable(ctx, resp.ID, false))

	_, err = e.svc.Download(ctx, resp.ID, resp.Token)
	assert.Equal(t, service.KindNotFound, service.KindOf(err))
}

func TestDownloadMissingBlob(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	resp, err := e.svc.Upload(ctx, uploadReq(t, "a.txt", []byte("x")))
	require.NoError(t, err)

	require.NoError(t, e.blobs.Delete(resp.ID))

	_, err = e.svc.Download(ctx, resp.ID, resp.Token)
	assert.Equal(t, service.KindNotFound, service.KindOf(err))
}
