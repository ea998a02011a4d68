package service

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yeisme/dropvault/pkg/cache"
	"github.com/yeisme/dropvault/pkg/log"
)

// IdentityCacheNamespace 身份缓存键前缀.
const IdentityCacheNamespace = "identity:"

// CachedIdentityStore 在 IdentityStore 前加一层 KV 缓存，启用与未启用的结果都会缓存 ttl.
// 并发的相同查询合并为一次，KV 故障时直接回源.
type CachedIdentityStore struct {
	next  IdentityStore
	cache *cache.Cache
	ttl   time.Duration
	group singleflight.Group
}

// NewCachedIdentityStore 创建带缓存的 IdentityStore.
func NewCachedIdentityStore(next IdentityStore, c *cache.Cache, ttl time.Duration) *CachedIdentityStore {
	return &CachedIdentityStore{next: next, cache: c, ttl: ttl}
}

// IsEnabled 实现 IdentityStore.
func (s *CachedIdentityStore) IsEnabled(ctx context.Context, uuid string) (bool, error) {
	v, err := cache.Get[bool](ctx, s.cache, uuid)
	if err == nil {
		return v, nil
	}

	if !cache.IsMiss(err) {
		log.WithTrace(ctx, log.Logger()).Warn().Err(err).Msg("identity cache read failed, falling back to store")
	}

	res, err, _ := s.group.Do(uuid, func() (any, error) {
		// 结果由所有等待者共享，不能随第一个调用方的 ctx 取消
		ctx := context.WithoutCancel(ctx)

		ok, err := s.next.IsEnabled(ctx, uuid)
		if err != nil {
			return false, err
		}

		if err := cache.Set(ctx, s.cache, uuid, ok, s.ttl); err != nil {
			log.WithTrace(ctx, log.Logger()).Warn().Err(err).Msg("identity cache write failed")
		}

		return ok, nil
	})
	if err != nil {
		return false, err
	}

	ok, _ := res.(bool)

	return ok, nil
}

// Invalidate 删除某个身份的缓存结果，启用/禁用用户后调用.
func (s *CachedIdentityStore) Invalidate(ctx context.Context, uuid string) error {
	return s.cache.Delete(ctx, uuid)
}
