package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Limiter decides whether one more request for key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter is a per-key token bucket for a single process.
type MemoryLimiter struct {
	capacity int
	refill   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// NewMemoryLimiter allows requestsPerMinute per key with bursts of the same size.
func NewMemoryLimiter(requestsPerMinute int) *MemoryLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &MemoryLimiter{
		capacity: requestsPerMinute,
		refill:   time.Minute / time.Duration(requestsPerMinute),
		now:      time.Now,
		buckets:  make(map[string]*bucket),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= 10000 {
			l.sweep(now)
		}
		b = &bucket{tokens: l.capacity, lastRefill: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.lastRefill); elapsed >= l.refill {
		b.tokens = min(l.capacity, b.tokens+int(elapsed/l.refill))
		b.lastRefill = now
	}
	if b.tokens == 0 {
		return false, nil
	}
	b.tokens--
	return true, nil
}

// sweep drops buckets that have refilled completely.
func (l *MemoryLimiter) sweep(now time.Time) {
	full := l.refill * time.Duration(l.capacity)
	for key, b := range l.buckets {
		if now.Sub(b.lastRefill) >= full {
			delete(l.buckets, key)
		}
	}
}

// RedisLimiter is a sliding-window limiter shared by every process using
// the same Redis.
type RedisLimiter struct {
	client            redis.UniversalClient
	keyPrefix         string
	requestsPerMinute int
	window            time.Duration
}

func NewRedisLimiter(client redis.UniversalClient, keyPrefix string, requestsPerMinute int) *RedisLimiter {
	return &RedisLimiter{
		client:            client,
		keyPrefix:         keyPrefix,
		requestsPerMinute: requestsPerMinute,
		window:            time.Minute,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := l.keyPrefix + ":" + key
	now := time.Now()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(now.Add(-l.window).UnixNano(), 10))
	count := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	pipe.Expire(ctx, redisKey, l.window+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis rate limiting error: %w", err)
	}
	return count.Val() < int64(l.requestsPerMinute), nil
}

// RateLimitMiddleware limits requests per authenticated user, or per client
// IP before authentication. Limiter errors let the request through.
func RateLimitMiddleware(limiter Limiter, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id, ok := identity(c); ok {
			key = "user:" + id.UserID
		}

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Warn("Rate limiter unavailable", "key", key, "error", err)
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"type":       "RATE_LIMIT_ERROR",
					"code":       "TOO_MANY_REQUESTS",
					"message":    "Rate limit exceeded. Please try again later.",
					"request_id": GetRequestID(c),
				},
			})
			return
		}
		c.Next()
	}
}
