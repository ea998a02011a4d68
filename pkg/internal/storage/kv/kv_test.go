package kv_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/yeisme/dropvault/pkg/configs"
	"github.com/yeisme/dropvault/pkg/internal/storage/kv"
)

// fakeClock 可手动推进的时钟.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestRegisteredKVTypes(t *testing.T) {
	types := kv.GetRegisteredKVTypes()

	found := map[kv.KVType]bool{}
	for _, tp := range types {
		found[tp] = true
	}

	if !found[kv.KVTypeMemory] || !found[kv.KVTypeRedis] {
		t.Errorf("registered types = %v", types)
	}

	if _, err := kv.NewKVStore(context.Background(), "etcd", configs.KVConfig{}); err == nil {
		t.Error("expected error for unsupported kv type")
	}
}

func TestMemoryKVBasic(t *testing.T) {
	ctx := context.Background()

	store, err := kv.NewKVClient(ctx, configs.KVConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}
	defer store.Close()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Get missing err = %v, want ErrNotFound", err)
	}

	if err := store.Set(ctx, "a", []byte("1"), 0); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "a")
	if err != nil || string(got) != "1" {
		t.Fatalf("Get = %q, %v", got, err)
	}

	// 返回值是副本
	got[0] = 'x'
	if again, _ := store.Get(ctx, "a"); string(again) != "1" {
		t.Errorf("stored value mutated: %q", again)
	}

	if ok, _ := store.Exists(ctx, "a"); !ok {
		t.Error("Exists(a) = false")
	}

	_ = store.Set(ctx, "user:1", []byte("u"), 0)
	_ = store.Set(ctx, "user:2", []byte("u"), 0)

	keys, err := store.Keys(ctx, "user:*")
	if err != nil || len(keys) != 2 || keys[0] != "user:1" || keys[1] != "user:2" {
		t.Errorf("Keys = %v, %v", keys, err)
	}

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}

	if ok, _ := store.Exists(ctx, "a"); ok {
		t.Error("Exists(a) after delete = true")
	}
}

func TestMemoryKVTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := kv.NewMemoryKVWithClock(clock.Now)

	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}

	if err := store.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}

	if got, err := store.Get(ctx, "k"); err != nil || string(got) != "v" {
		t.Fatalf("Get before expiry = %q, %v", got, err)
	}

	clock.Advance(time.Minute)

	if _, err := store.Get(ctx, "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Get after expiry err = %v", err)
	}

	if ok, _ := store.Exists(ctx, "k"); ok {
		t.Error("expired key still exists")
	}

	keys, _ := store.Keys(ctx, "*")
	if len(keys) != 1 || keys[0] != "forever" {
		t.Errorf("Keys = %v", keys)
	}
}

func TestMemoryKVConcurrent(t *testing.T) {
	ctx := context.Background()
	store, _ := kv.NewKVStore(ctx, kv.KVTypeMemory, configs.KVConfig{})

	var wg sync.WaitGroup

	for i := range 16 {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			key := fmt.Sprintf("k%d", i)
			for range 100 {
				_ = store.Set(ctx, key, []byte(key), time.Hour)
				_, _ = store.Get(ctx, key)
			}
		}(i)
	}

	wg.Wait()

	keys, _ := store.Keys(ctx, "k*")
	if len(keys) != 16 {
		t.Errorf("len(keys) = %d", len(keys))
	}
}

// 需要真实 Redis: ENABLE_REDIS_TEST=1 REDIS_ADDR=127.0.0.1:6379.
func TestRedisKV(t *testing.T) {
	if os.Getenv("ENABLE_REDIS_TEST") == "" {
		t.Skip("set ENABLE_REDIS_TEST=1 to enable")
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}

	ctx := context.Background()
	cfg := configs.KVConfig{Type: "redis", Redis: configs.RedisKVConfig{Addr: addr, Prefix: "dropvault-test:"}}

	store, err := kv.NewKVStore(ctx, kv.KVTypeRedis, cfg)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer store.Close()

	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}

	if got, err := store.Get(ctx, "k"); err != nil || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}

	_ = store.Delete(ctx, "k")

	if _, err := store.Get(ctx, "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}
}

func BenchmarkMemoryKV(b *testing.B) {
	ctx := context.Background()
	store, _ := kv.NewKVStore(ctx, kv.KVTypeMemory, configs.KVConfig{})
	val := []byte("value")

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := fmt.Sprintf("k%d", i%1024)
			_ = store.Set(ctx, key, val, time.Minute)
			_, _ = store.Get(ctx, key)
			i++
		}
	})
}
