package middleware

import (
	"time"

	"golang.org/x/time/rate"
)

type LimiterSet = limiterSet

func NewLimiterSet(limit float64, burst int, now func() time.Time) *LimiterSet {
	return newLimiterSet(rate.Limit(limit), burst, now)
}

func (s *limiterSet) Allow(key string) bool { return s.allow(key) }

func (s *limiterSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}
