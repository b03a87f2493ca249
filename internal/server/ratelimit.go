// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package server

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
)

// RateLimitConfig configures per-client limiting of the /api routes.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client IP. Zero disables
	// limiting.
	RequestsPerSecond float64
	Burst             int
	// MaxClients caps how many client buckets are tracked. Default 10000.
	MaxClients int
}

// Validate checks c and applies defaults.
func (c *RateLimitConfig) Validate() error {
	if c.RequestsPerSecond < 0 {
		return deskerr.Errorf(deskerr.CodeServerConfigInvalid,
			"rate limit requests per second must not be negative (got %g)", c.RequestsPerSecond)
	}
	if c.RequestsPerSecond > 0 && c.Burst <= 0 {
		return deskerr.Errorf(deskerr.CodeServerConfigInvalid,
			"rate limit burst must be positive when a rate is set (got %d)", c.Burst)
	}
	if c.MaxClients < 0 {
		return deskerr.Errorf(deskerr.CodeServerConfigInvalid,
			"rate limit max clients must not be negative (got %d)", c.MaxClients)
	}
	if c.MaxClients == 0 {
		c.MaxClients = 10000
	}
	return nil
}

const idleBucketTTL = 10 * time.Minute

// limiter is a token bucket per client key.
type limiter struct {
	mu      sync.Mutex
	rate    float64
	burst   float64
	max     int
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	return &limiter{
		rate:    cfg.RequestsPerSecond,
		burst:   float64(cfg.Burst),
		max:     cfg.MaxClients,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// allow takes one token from key's bucket.
func (l *limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		if l.max > 0 && len(l.buckets) >= l.max {
			l.pruneLocked(now)
		}
		b = &bucket{tokens: l.burst, seen: now}
		l.buckets[key] = b
	}

	b.tokens = min(l.burst, b.tokens+now.Sub(b.seen).Seconds()*l.rate)
	b.seen = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// pruneLocked drops idle buckets, then the oldest ones while still over
// the cap. The caller holds l.mu.
func (l *limiter) pruneLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.seen) > idleBucketTTL {
			delete(l.buckets, key)
		}
	}
	for len(l.buckets) >= l.max {
		var oldest string
		for key, b := range l.buckets {
			if oldest == "" || b.seen.Before(l.buckets[oldest].seen) {
				oldest = key
			}
		}
		delete(l.buckets, oldest)
	}
}

func (l *limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// rateLimitMiddleware limits requests per client IP. A zero rate passes
// everything through.
func rateLimitMiddleware(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.RequestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	l := newLimiter(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Keyed by host so ephemeral ports share one bucket.
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !l.allow(ip) {
				slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
