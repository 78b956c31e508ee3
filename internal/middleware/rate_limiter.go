package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit is a per-client-IP token bucket limit.
type RateLimit struct {
	RequestsPerSecond float64
	Burst             int
}

type clientLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    RateLimit
}

func newClientLimiters(limit RateLimit) *clientLimiters {
	cl := &clientLimiters{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
	}
	go cl.cleanup()
	return cl
}

func (cl *clientLimiters) get(ip string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	limiter, ok := cl.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(cl.limit.RequestsPerSecond), cl.limit.Burst)
		cl.limiters[ip] = limiter
	}
	return limiter
}

// cleanup caps the limiter map so long-running processes do not accumulate
// one entry per client forever.
func (cl *clientLimiters) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cl.mu.Lock()
		if len(cl.limiters) > 1000 {
			cl.limiters = make(map[string]*rate.Limiter)
		}
		cl.mu.Unlock()
	}
}

// RateLimiter rejects requests over the per-IP limit with 429.
func RateLimiter(limit RateLimit) gin.HandlerFunc {
	clients := newClientLimiters(limit)

	return func(c *gin.Context) {
		limiter := clients.get(c.ClientIP())
		if !limiter.Allow() {
			reservation := limiter.Reserve()
			retryAfter := reservation.DelayFrom(time.Now()).Seconds()
			reservation.Cancel()

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded. Please try again later.",
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
