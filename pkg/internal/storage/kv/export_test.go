package kv

import "time"

// NewMemoryKVWithClock 供测试注入时钟.
func NewMemoryKVWithClock(now func() time.Time) *MemoryKV {
	return &MemoryKV{now: now}
}
