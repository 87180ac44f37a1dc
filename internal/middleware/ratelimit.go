package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window in-memory limiter. Counters are kept per
// key (authenticated user id when present, client IP otherwise) and reset
// when the window rolls over. Single-instance deployments only; a shared
// store would be needed behind a load balancer.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*rateWindow
}

type rateWindow struct {
	count    int
	startsAt time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: map[string]*rateWindow{},
	}
}

// Allow records a hit for key and reports whether it is within the limit.
// When denied it also returns how long until the window resets.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.startsAt) >= l.window {
		l.windows[key] = &rateWindow{count: 1, startsAt: now}
		if len(l.windows) > 10000 {
			l.evictExpired(now)
		}
		return true, 0
	}
	if w.count >= l.limit {
		return false, w.startsAt.Add(l.window).Sub(now)
	}
	w.count++
	return true, 0
}

// evictExpired drops stale windows; callers hold l.mu.
func (l *RateLimiter) evictExpired(now time.Time) {
	for key, w := range l.windows {
		if now.Sub(w.startsAt) >= l.window {
			delete(l.windows, key)
		}
	}
}

// Middleware limits by authenticated user when available, by client IP
// otherwise. Run it after AuthRequired to get per-user keys.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if id := GetUserID(c); id != 0 {
			key = fmt.Sprintf("u:%d", id)
		}
		ok, retryAfter := l.Allow(key)
		if !ok {
			c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, slow down"})
			return
		}
		c.Next()
	}
}

// ByIP always keys on the client IP, for unauthenticated surfaces such as
// webhooks.
func (l *RateLimiter) ByIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter := l.Allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, slow down"})
			return
		}
		c.Next()
	}
}
