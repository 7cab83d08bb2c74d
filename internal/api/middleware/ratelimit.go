package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limiters *xsync.MapOf[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// NewRateLimiter allows perMinute requests per client, with bursts of up to
// perMinute.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		limiters: xsync.NewMapOf[string, *rate.Limiter](),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	l, _ := rl.limiters.LoadOrCompute(key, func() *rate.Limiter {
		return rate.NewLimiter(rl.limit, rl.burst)
	})
	return l
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.Header("Retry-After", "60")
			abort(c, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}
		c.Next()
	}
}
