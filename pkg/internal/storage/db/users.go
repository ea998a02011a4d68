package db

import (
	"context"
	"fmt"

	"github.com/yeisme/dropvault/pkg/internal/model"
)

// UserStore 用户身份表访问.
type UserStore struct {
	client *Client
}

// NewUserStore 创建 UserStore.
func NewUserStore(client *Client) *UserStore {
	return &UserStore{client: client}
}

// IsEnabled 判断标识对应的用户是否存在且处于启用状态.
func (s *UserStore) IsEnabled(ctx context.Context, uuid string) (bool, error) {
	var n int64

	err := s.client.WithContext(ctx).
		Model(&model.User{}).
		Where("uuid = ? AND enabled = ?", uuid, true).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("count enabled users: %w", err)
	}

	return n > 0, nil
}

// Create 登记新用户.
func (s *UserStore) Create(ctx context.Context, uuid string, enabled bool) (*model.User, error) {
	u := &model.User{UUID: uuid, Enabled: enabled}
	if err := s.client.WithContext(ctx).Create(u).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return u, nil
}

// Get 按标识查找用户.
func (s *UserStore) Get(ctx context.Context, uuid string) (*model.User, error) {
	var u model.User
	if err := s.client.WithContext(ctx).Where("uuid = ?", uuid).Take(&u).Error; err != nil {
		return nil, fmt.Errorf("get user %s: %w", uuid, notFound(err))
	}

	return &u, nil
}

// SetEnabled 启用或禁用用户.
func (s *UserStore) SetEnabled(ctx context.Context, uuid string, enabled bool) error {
	u, err := s.Get(ctx, uuid)
	if err != nil {
		return err
	}

	err = s.client.WithContext(ctx).Model(u).Update("enabled", enabled).Error
	if err != nil {
		return fmt.Errorf("update user %s: %w", uuid, err)
	}

	return nil
}

// List 列出全部用户.
func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.client.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}
