package middlewares

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window in-process limiter. Credential endpoints use
// it keyed by IP; the AI endpoints use it keyed by user so one account cannot
// drain the upstream quota.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	buckets map[string]*bucket
}

type bucket struct {
	count     int
	windowEnd time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
	}
}

func (rl *RateLimiter) Limit(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := keyFn(ctx)

		if key == "" {
			key = ctx.ClientIP()
		}

		now := time.Now()

		rl.mu.Lock()

		b, ok := rl.buckets[key]

		if !ok || now.After(b.windowEnd) {
			rl.buckets[key] = &bucket{count: 1, windowEnd: now.Add(rl.window)}
			rl.mu.Unlock()
			ctx.Next()
			return
		}

		if b.count >= rl.limit {
			retryAfter := int(time.Until(b.windowEnd).Seconds())

			if retryAfter < 0 {
				retryAfter = 0
			}

			rl.mu.Unlock()

			ctx.Header("Retry-After", strconv.Itoa(retryAfter))

			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "rate_limited",
					"message": "Too many requests. Please try again shortly.",
				},
			})

			return
		}

		b.count++
		rl.mu.Unlock()
		ctx.Next()
	}
}

func KeyByIP(ctx *gin.Context) string {
	return ctx.ClientIP()
}

// KeyByUser runs after the session gate, so the identity is always present;
// the IP fallback only matters if the middleware order ever changes.
func KeyByUser(ctx *gin.Context) string {
	id, ok := UserIDFromContext(ctx)

	if ok && id != "" {
		return "user:" + id
	}

	return ctx.ClientIP()
}
