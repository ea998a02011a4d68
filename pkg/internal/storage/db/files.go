package db

import (
	"context"
	"fmt"

	"github.com/yeisme/dropvault/pkg/internal/model"
)

// FileStore 文件记录表访问.
type FileStore struct {
	client *Client
}

// NewFileStore 创建 FileStore.
func NewFileStore(client *Client) *FileStore {
	return &FileStore{client: client}
}

// Insert 写入一条新记录，新记录总是可用的.
func (s *FileStore) Insert(ctx context.Context, f *model.File) error {
	f.Available = true

	if err := s.client.WithContext(ctx).Create(f).Error; err != nil {
		return fmt.Errorf("insert file record: %w", err)
	}

	return nil
}

// FindAvailable 按存储名与令牌查找可下载的记录.
// 记录不存在、已禁用或在 nowMs 时已过期时返回 ErrNotFound.
func (s *FileStore) FindAvailable(ctx context.Context, storeName, token string, nowMs int64) (*model.File, error) {
	var f model.File

	err := s.client.WithContext(ctx).
		Where("store_name = ? AND token = ? AND available = ?", storeName, token, true).
		Where("(dead_at IS NULL OR dead_at > ?)", nowMs).
		Take(&f).Error
	if err != nil {
		return nil, fmt.Errorf("find file record: %w", notFound(err))
	}

	return &f, nil
}

// GetByStoreName 按存储名查找记录，不校验令牌与可用性，仅供管理命令使用.
func (s *FileStore) GetByStoreName(ctx context.Context, storeName string) (*model.File, error) {
	var f model.File
	if err := s.client.WithContext(ctx).Where("store_name = ?", storeName).Take(&f).Error; err != nil {
		return nil, fmt.Errorf("get file record: %w", notFound(err))
	}

	return &f, nil
}

// SetAvailable 修改记录的可用标记.
func (s *FileStore) SetAvailable(ctx context.Context, storeName string, available bool) error {
	f, err := s.GetByStoreName(ctx, storeName)
	if err != nil {
		return err
	}

	if err := s.client.WithContext(ctx).Model(f).Update("available", available).Error; err != nil {
		return fmt.Errorf("update file record: %w", err)
	}

	return nil
}
