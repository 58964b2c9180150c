package webserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/openballot/election-api/src/api/data"
)

// Limiter decides whether a caller may proceed. Backing the limiter
// with a shared store keeps the decision consistent across processes.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter counts requests per key in a fixed window.
type RedisLimiter struct {
	rdb    *redis.Client
	rate   int
	window time.Duration
}

func NewRedisLimiter(rdb *redis.Client, rate int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, rate: rate, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := data.CountInWindow(ctx, l.rdb, key, l.window)
	if err != nil {
		return false, err
	}
	return n <= int64(l.rate), nil
}

// MemoryLimiter is a sliding-window limiter for single-process
// deployments and tests.
type MemoryLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	rate     int
	window   time.Duration
}

func NewMemoryLimiter(rate int, window time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		requests: make(map[string][]time.Time),
		rate:     rate,
		window:   window,
	}

	// Cleanup old entries periodically
	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for range ticker.C {
			l.cleanup()
		}
	}()

	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	valid := l.requests[key][:0]
	for _, t := range l.requests[key] {
		if now.Sub(t) < l.window {
			valid = append(valid, t)
		}
	}

	if len(valid) >= l.rate {
		l.requests[key] = valid
		return false, nil
	}

	l.requests[key] = append(valid, now)
	return true, nil
}

func (l *MemoryLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, times := range l.requests {
		valid := []time.Time{}
		for _, t := range times {
			if now.Sub(t) < l.window {
				valid = append(valid, t)
			}
		}
		if len(valid) == 0 {
			delete(l.requests, key)
		} else {
			l.requests[key] = valid
		}
	}
}

func RateLimitMiddleware(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("creator")
		if key == "" {
			key = c.ClientIP()
		}

		ok, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			// Limiter store is down; fail open rather than block writes.
			c.Next()
			return
		}
		if !ok {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"err": fmt.Sprintf("rate limit exceeded for %s", key),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
