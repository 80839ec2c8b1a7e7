package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"portfolio/api/metrics"
)

const rateLimitMessage = "Too many requests from this IP, please try again later."

// RateLimitResult is the state of one key's window after a hit.
type RateLimitResult struct {
	Count int64
	Reset time.Duration
}

// Limiter counts hits per key in fixed windows.
type Limiter interface {
	Hit(ctx context.Context, key string) (RateLimitResult, error)
}

// Fixed window: the TTL is set on the first hit and never extended.
var fixedWindowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// RedisLimiter shares windows across instances through Redis.
type RedisLimiter struct {
	client redis.Scripter
	window time.Duration
	prefix string
}

func NewRedisLimiter(client redis.Scripter, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, window: window, prefix: "ratelimit:ip:"}
}

func (l *RedisLimiter) Hit(ctx context.Context, key string) (RateLimitResult, error) {
	vals, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return RateLimitResult{}, err
	}
	reset := time.Duration(vals[1]) * time.Millisecond
	if reset <= 0 {
		reset = l.window
	}
	return RateLimitResult{Count: vals[0], Reset: reset}, nil
}

// MemoryLimiter keeps windows in process. Used when Redis is not configured.
type MemoryLimiter struct {
	window time.Duration

	mu      sync.Mutex
	windows map[string]*window
	sweptAt time.Time

	Now func() time.Time
}

type window struct {
	count int64
	end   time.Time
}

func NewMemoryLimiter(win time.Duration) *MemoryLimiter {
	return &MemoryLimiter{window: win, windows: map[string]*window{}, Now: time.Now}
}

func (l *MemoryLimiter) Hit(ctx context.Context, key string) (RateLimitResult, error) {
	now := l.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.sweptAt) >= l.window {
		for k, w := range l.windows {
			if !now.Before(w.end) {
				delete(l.windows, k)
			}
		}
		l.sweptAt = now
	}

	w, ok := l.windows[key]
	if !ok || !now.Before(w.end) {
		w = &window{end: now.Add(l.window)}
		l.windows[key] = w
	}
	w.count++
	return RateLimitResult{Count: w.count, Reset: w.end.Sub(now)}, nil
}

// RateLimit rejects clients that exceed max requests per window with 429.
// Limiter errors let the request through.
func RateLimit(l Limiter, max int, log *zap.Logger, m *metrics.Metrics) gin.HandlerFunc {
	limit := strconv.Itoa(max)
	return func(c *gin.Context) {
		res, err := l.Hit(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Warn("rate limiter unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(max) - res.Count
		if remaining < 0 {
			remaining = 0
		}
		reset := strconv.Itoa(int(math.Ceil(res.Reset.Seconds())))

		h := c.Writer.Header()
		h.Set("RateLimit-Limit", limit)
		h.Set("RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		h.Set("RateLimit-Reset", reset)

		if res.Count > int64(max) {
			m.RateLimitedTotal.Inc()
			h.Set("Retry-After", reset)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": rateLimitMessage,
			})
			return
		}
		c.Next()
	}
}
