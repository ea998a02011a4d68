// Package storage 聚合元数据库、文件存储与 KV 缓存等存储资源.
//
// Example:
//
//	mgr, err := storage.Open(ctx, configs.GetConfig())
//	if err != nil {
//	    // 处理错误
//	}
//	defer mgr.Close()
//
//	ok, err := mgr.Users.IsEnabled(ctx, uuid)
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/dropvault/pkg/configs"
	"github.com/yeisme/dropvault/pkg/internal/storage/blob"
	dbc "github.com/yeisme/dropvault/pkg/internal/storage/db"
	"github.com/yeisme/dropvault/pkg/internal/storage/kv"
	nlog "github.com/yeisme/dropvault/pkg/log"
)

// Manager 聚合所有存储资源，启动时创建一次并显式传递给各服务.
type Manager struct {
	DB    *dbc.Client
	Blob  *blob.Store
	KV    *kv.Client
	Users *dbc.UserStore
	Files *dbc.FileStore
}

// Option 调整 Open 的行为.
type Option func(*openOptions)

type openOptions struct {
	withKV   bool
	withBlob bool
}

// WithoutKV 不创建 KV 客户端，用于只访问数据库的管理命令.
func WithoutKV() Option {
	return func(o *openOptions) { o.withKV = false }
}

// WithoutBlob 不初始化文件存储根目录.
func WithoutBlob() Option {
	return func(o *openOptions) { o.withBlob = false }
}

// Open 按配置初始化数据库（含表结构迁移）、文件存储根目录与 KV.
func Open(ctx context.Context, cfg *configs.AppConfig, opts ...Option) (*Manager, error) {
	o := openOptions{withKV: true, withBlob: true}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{}

	dbi, err := dbc.New(ctx, cfg.DB, dbc.WithMetrics(cfg.Metrics.Enabled && cfg.Metrics.DBMetrics))
	if err != nil {
		return nil, err
	}

	m.DB = dbi

	if err := dbi.Migrate(ctx); err != nil {
		_ = m.Close()

		return nil, err
	}

	m.Users = dbc.NewUserStore(dbi)
	m.Files = dbc.NewFileStore(dbi)

	if o.withBlob {
		store, err := blob.New(cfg.Storage.Root)
		if err != nil {
			_ = m.Close()

			return nil, err
		}

		m.Blob = store
	}

	if o.withKV {
		client, err := kv.NewKVClient(ctx, cfg.KV)
		if err != nil {
			_ = m.Close()

			return nil, fmt.Errorf("init kv: %w", err)
		}

		m.KV = client
	}

	nlog.Logger().Info().
		Str("storage_root", cfg.Storage.Root).
		Str("kv", cfg.KV.Type).
		Msg("storage manager initialized")

	return m, nil
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetBlobStore 获取文件存储.
func (m *Manager) GetBlobStore() *blob.Store {
	return m.Blob
}

// Close 释放所有连接.
func (m *Manager) Close() error {
	var errs []error

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}
