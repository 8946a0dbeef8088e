package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"quizgen-backend/internal/shared/server/respond"
	"quizgen-backend/internal/shared/telemetry"
)

// Limiter decides whether a caller identified by key may proceed. When it
// refuses, it reports how long the caller should wait.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// MemoryLimiter keeps one token bucket per key in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewMemoryLimiter allows perMinute events per key with the given burst.
func NewMemoryLimiter(perMinute, burst int, now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	if burst <= 0 {
		burst = 1
	}
	return &MemoryLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
		now:     now,
	}
}

func (l *MemoryLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.buckets[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = lim
	}
	return lim
}

// Allow consumes one token for key if available.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	if l.limit <= 0 {
		return true, 0, nil
	}
	now := l.now()
	res := l.limiter(key).ReserveN(now, 1)
	if !res.OK() {
		return false, time.Minute, nil
	}
	delay := res.DelayFrom(now)
	if delay > 0 {
		res.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

// RedisLimiter counts events per key in fixed windows shared by every
// instance pointing at the same Redis.
type RedisLimiter struct {
	Client *redis.Client
	Limit  int
	Window time.Duration
	Prefix string
	Now    func() time.Time
}

// Allow increments the counter of the current window for key.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if l.Limit <= 0 {
		return true, 0, nil
	}
	window := l.Window
	if window <= 0 {
		window = time.Minute
	}
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	slot := now.UnixNano() / int64(window)
	redisKey := fmt.Sprintf("%s%s:%d", l.Prefix, key, slot)

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, fmt.Errorf("rate limit counter: %w", err)
	}
	if incr.Val() <= int64(l.Limit) {
		return true, 0, nil
	}
	windowEnd := time.Unix(0, (slot+1)*int64(window))
	return false, windowEnd.Sub(now), nil
}

// RateLimit throttles requests per authenticated user (or client IP) within
// scope. Limiter errors are logged and the request is let through.
func RateLimit(limiter Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		principal := strings.TrimSpace(UserIDFromContext(c))
		if principal == "" {
			principal = strings.TrimSpace(c.ClientIP())
		}
		key := scope + "|" + principal

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			telemetry.Warn("rate_limit.unavailable", map[string]any{
				"request_id": RequestIDFromContext(c),
				"scope":      scope,
				"error":      err,
			})
			c.Next()
			return
		}
		if allowed {
			c.Next()
			return
		}

		retryAfterSeconds := int(math.Ceil(retryAfter.Seconds()))
		if retryAfterSeconds <= 0 {
			retryAfterSeconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "too many requests, try again later", gin.H{
			"retry_after_seconds": retryAfterSeconds,
		})
	}
}

var (
	_ Limiter = (*MemoryLimiter)(nil)
	_ Limiter = (*RedisLimiter)(nil)
)
