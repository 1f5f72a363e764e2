package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goflash/flashcms/app"
	"github.com/goflash/flashcms/ctx"
)

// Limiter decides whether a request identified by key may proceed.
// When it may not, retryAfter tells the client how long to wait.
type Limiter interface {
	Allow(key string) (allowed bool, retryAfter time.Duration)
}

// SimpleIPLimiter is a fixed-window limiter: each key gets capacity requests
// per refill window.
type SimpleIPLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity int
	fill     time.Duration
	now      func() time.Time
}

type bucket struct {
	remaining int
	reset     time.Time
}

// sweepThreshold is the bucket count above which expired windows are dropped.
const sweepThreshold = 1024

// NewSimpleIPLimiter allows capacity requests per key every refill.
func NewSimpleIPLimiter(capacity int, refill time.Duration) *SimpleIPLimiter {
	return &SimpleIPLimiter{buckets: map[string]*bucket{}, capacity: capacity, fill: refill, now: time.Now}
}

func (l *SimpleIPLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.buckets) > sweepThreshold {
		for k, b := range l.buckets {
			if now.After(b.reset) {
				delete(l.buckets, k)
			}
		}
	}

	b := l.buckets[key]
	if b == nil || now.After(b.reset) {
		l.buckets[key] = &bucket{remaining: l.capacity - 1, reset: now.Add(l.fill)}
		return l.capacity > 0, 0
	}
	if b.remaining > 0 {
		b.remaining--
		return true, 0
	}
	return false, b.reset.Sub(now)
}

// KeyFunc derives the rate limit key from a request.
type KeyFunc func(r *http.Request) string

// RateLimit returns middleware that rejects requests over the limit with a
// 429 *app.Error and a Retry-After header. Requests are keyed by the peer
// address; use RateLimitWithKey behind a trusted proxy.
//
// Example:
//
//	signin := middleware.RateLimit(middleware.NewSimpleIPLimiter(10, time.Minute))
//	a.POST("/users/signin", h.signIn, signin)
func RateLimit(l Limiter) app.Middleware {
	return RateLimitWithKey(l, RemoteIP)
}

// RateLimitWithKey is RateLimit with a custom key, e.g. ForwardedIP.
func RateLimitWithKey(l Limiter, key KeyFunc) app.Middleware {
	return func(next app.Handler) app.Handler {
		return func(c ctx.Ctx) error {
			k := key(c.Request())
			if ok, retry := l.Allow(k); !ok {
				ctx.LoggerFromContext(c.Context()).Warn("rate limited", "key", k, "path", c.Path())
				if retry > 0 {
					c.Header("Retry-After", formatSeconds(retry))
				}
				return app.NewError(http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
			}
			return next(c)
		}
	}
}

// RemoteIP returns the host part of the peer address.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// ForwardedIP prefers the first X-Forwarded-For entry, then X-Real-IP, then
// the peer address. Only use it when a proxy you control sets those headers.
func ForwardedIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return strings.TrimSpace(xrip)
	}
	return RemoteIP(r)
}

func formatSeconds(d time.Duration) string {
	sec := int(d.Seconds())
	if sec < 1 {
		sec = 1
	}
	return strconv.Itoa(sec)
}
