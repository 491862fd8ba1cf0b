// Package ratelimit is middleware for per-ip rate limiting.
//
// Simple in-memory implementation, not shared between instances. It guards a
// single server against one address flooding it and gives observability into
// who is being limited; it does not help against distributed attacks or
// bandwidth-bill attacks. Upstream filtering still does the heavy lifting.
package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/commonshub/commonshub-web/internal/httpmw"
)

// visitor tracks a single IPs limiter and last activity
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	// logged tracks whether we have already emitted the first-denial log
	// resets when the entry is evicted and re-created
	logged bool
}

// IPLimiter holds per-IP rate limiters with background eviction
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	perSecond rate.Limit
	burst     int

	// ttl controls how long an idle IP stays in the map before eviction
	ttl time.Duration

	// OnFirstDenied is called once per visitor when they first get rate
	// limited. Separate from OnDenied so callers can log once but count
	// every denial.
	OnFirstDenied func(ip string)

	// OnDenied is called on every denied request.
	OnDenied func(ip string)
}

type Option func(*IPLimiter)

// WithRate sets the bucket capacity (burst) and refill rate per second.
// WithRate(10, 50) allows 50 requests at once, refilling 10 per second.
func WithRate(perSecond float64, burst int) Option {
	return func(l *IPLimiter) {
		l.perSecond = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithTTL controls how long an idle IP stays in the map before cleanup
func WithTTL(d time.Duration) Option {
	return func(l *IPLimiter) {
		l.ttl = d
	}
}

func WithOnFirstDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) {
		l.OnFirstDenied = fn
	}
}

func WithOnDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) {
		l.OnDenied = fn
	}
}

// New creates an IPLimiter and starts the background cleanup goroutine,
// which stops when ctx is canceled.
func New(ctx context.Context, opts ...Option) *IPLimiter {
	l := &IPLimiter{
		visitors:  make(map[string]*visitor),
		perSecond: 10,
		burst:     30,
		ttl:       5 * time.Minute,
	}
	for _, o := range opts {
		o(l)
	}
	go l.cleanup(ctx)
	return l
}

// allow reports whether the given IP is within its rate limit, creating the
// visitor entry on first sight.
func (l *IPLimiter) allow(ip string) bool {
	l.mu.Lock()
	v, exists := l.visitors[ip]
	if !exists {
		v = &visitor{
			limiter: rate.NewLimiter(l.perSecond, l.burst),
		}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	allowed := v.limiter.Allow()

	if !allowed && !v.logged {
		v.logged = true
		// hooks may be slow; never hold the map lock across them
		l.mu.Unlock()
		if l.OnFirstDenied != nil {
			l.OnFirstDenied(ip)
		}
		if l.OnDenied != nil {
			l.OnDenied(ip)
		}
		return false
	}

	l.mu.Unlock()

	if !allowed && l.OnDenied != nil {
		l.OnDenied(ip)
	}

	return allowed
}

// cleanup periodically evicts visitors that haven't been seen within the TTL.
// Runs every TTL/2 to avoid holding stale entries much longer than intended.
func (l *IPLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for ip, v := range l.visitors {
				if now.Sub(v.lastSeen) > l.ttl {
					delete(l.visitors, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Middleware rejects requests over the per-ip rate limit with 429.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := httpmw.ClientIPFromContext(r.Context())

		if !l.allow(ip) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			// intentionally no detail about limits or refill timing
			w.Write([]byte(`{"error":"too many requests"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
