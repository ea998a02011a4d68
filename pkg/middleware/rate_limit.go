package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/dropvault/pkg/configs"
	"github.com/yeisme/dropvault/pkg/log"
)

// 限流维度.
const (
	RateLimitKeyGlobal   = "global"
	RateLimitKeyIP       = "ip"
	RateLimitKeyIdentity = "identity"
	rateLimitHeaderKey   = "header:"
)

const (
	// sweepInterval 两次清理闲置 limiter 之间的最短间隔.
	sweepInterval = time.Minute
	// minIdle limiter 闲置多久后可以丢弃的下限.
	minIdle = time.Minute
)

// RateLimitMiddleware 返回按 cfg.Key 维度限流的中间件.
// identity 维度按 identityHeader 指定的请求头区分上传者，缺失时退回客户端 IP.
func RateLimitMiddleware(cfg configs.RateLimitConfig, identityHeader string) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	keyOf := rateLimitKeyFunc(cfg.Key, identityHeader)
	set := newLimiterSet(rate.Limit(cfg.RPS), cfg.Burst, time.Now)

	return func(c *gin.Context) {
		key := keyOf(c)
		if !set.allow(key) {
			log.WithTrace(c.Request.Context(), log.Logger()).Debug().
				Str("request_id", RequestID(c)).Msg("rate limited")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})

			return
		}

		c.Next()
	}
}

// rateLimitKeyFunc 把配置的维度解析成取 key 的函数.
func rateLimitKeyFunc(mode, identityHeader string) func(*gin.Context) string {
	mode = strings.TrimSpace(mode)

	var header string

	switch {
	case mode == "" || mode == RateLimitKeyGlobal:
		return func(*gin.Context) string { return RateLimitKeyGlobal }
	case mode == RateLimitKeyIdentity:
		header = identityHeader
	case strings.HasPrefix(mode, rateLimitHeaderKey):
		header = strings.TrimSpace(strings.TrimPrefix(mode, rateLimitHeaderKey))
	}

	if header == "" {
		return clientIP
	}

	return func(c *gin.Context) string {
		if v := c.GetHeader(header); v != "" {
			return "h:" + v
		}

		return clientIP(c)
	}
}

type limiterEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// limiterSet 按 key 维护令牌桶，闲置足够久的桶在后续访问时顺带清理.
// 闲置时长不短于桶从空到满的时间，丢弃后重建不会放宽限制.
type limiterSet struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

func newLimiterSet(limit rate.Limit, burst int, now func() time.Time) *limiterSet {
	idle := minIdle
	if refill := time.Duration(float64(burst) / float64(limit) * float64(time.Second)); refill > idle {
		idle = refill
	}

	return &limiterSet{
		limit:     limit,
		burst:     burst,
		idle:      idle,
		now:       now,
		entries:   make(map[string]*limiterEntry),
		lastSweep: now(),
	}
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweep(now)
	}

	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}

	e.seen = now

	return e.limiter.AllowN(now, 1)
}

func (s *limiterSet) sweep(now time.Time) {
	for k, e := range s.entries {
		if now.Sub(e.seen) >= s.idle {
			delete(s.entries, k)
		}
	}

	s.lastSweep = now
}

func clientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}

	return host
}
