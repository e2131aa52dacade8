package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig is one fixed-window quota.
type RateLimitConfig struct {
	// Requests allowed per window. Must be > 0.
	Requests int
	// Window length. Must be > 0.
	Window time.Duration
}

// Validate checks that the quota is usable.
func (c RateLimitConfig) Validate() error {
	if c.Requests <= 0 {
		return fmt.Errorf("Requests must be > 0 (got %d)", c.Requests)
	}
	if c.Window <= 0 {
		return fmt.Errorf("Window must be > 0 (got %s)", c.Window)
	}
	return nil
}

// GlobalLimit is the default quota applied to every caller.
func GlobalLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 100, Window: time.Minute}
}

// FeedLimit caps feed page requests. Feed ranking is the most expensive
// read path, so it gets a tighter quota than the global one.
func FeedLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 30, Window: time.Minute}
}

// SwipeLimit caps swipe submissions per caller.
func SwipeLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 60, Window: time.Minute}
}

// Limits is the quota set applied by RateLimiter: a global quota plus
// optional per-route overrides keyed by route pattern.
type Limits struct {
	Global RateLimitConfig
	Routes map[string]RateLimitConfig

	// Metrics, when set, counts checks and blocks per endpoint.
	Metrics *Metrics
}

// forRequest resolves the quota and bucket scope for a request. Overridden
// routes get their own buckets so a burst on /feed does not consume the
// caller's global quota.
func (l Limits) forRequest(r *http.Request) (RateLimitConfig, string) {
	if len(l.Routes) > 0 {
		pattern := normalizePath(r.URL.Path)
		if cfg, ok := l.Routes[pattern]; ok {
			return cfg, "route:" + pattern + ":"
		}
	}
	return l.Global, ""
}

// RateLimitStore is the backing state for rate limiting, pluggable so a
// single replica can use memory and a fleet can share Redis.
type RateLimitStore interface {
	// Allow reports whether a request under key fits its quota, the quota
	// remaining in the current window, and the seconds until reset (zero
	// while allowed).
	Allow(ctx context.Context, key string, config RateLimitConfig) (allowed bool, remaining, retryAfter int)
}

type bucket struct {
	count     int
	windowEnd time.Time
}

// InMemoryRateLimitStore is a fixed-window counter held in process memory.
// Safe for concurrent use.
type InMemoryRateLimitStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewInMemoryRateLimitStore creates an empty in-memory store.
func NewInMemoryRateLimitStore() *InMemoryRateLimitStore {
	return &InMemoryRateLimitStore{buckets: make(map[string]*bucket)}
}

// Allow implements RateLimitStore.
func (s *InMemoryRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	b, exists := s.buckets[key]
	if !exists || now.After(b.windowEnd) {
		s.buckets[key] = &bucket{count: 1, windowEnd: now.Add(config.Window)}
		return true, config.Requests - 1, 0
	}

	if b.count < config.Requests {
		b.count++
		return true, config.Requests - b.count, 0
	}

	retryAfter := int(b.windowEnd.Sub(now).Seconds())
	if retryAfter <= 0 {
		retryAfter = 1
	}
	return false, 0, retryAfter
}

// Cleanup drops expired buckets. Call periodically; a few multiples of the
// longest configured window is a reasonable interval.
func (s *InMemoryRateLimitStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, b := range s.buckets {
		if now.After(b.windowEnd) {
			delete(s.buckets, key)
		}
	}
}

// KeyFunc extracts a rate limit key from an HTTP request.
type KeyFunc func(r *http.Request) string

// IPKeyFunc keys by client IP, honoring proxy headers before RemoteAddr.
func IPKeyFunc() KeyFunc {
	return func(r *http.Request) string {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if idx := strings.Index(xff, ","); idx != -1 {
				return strings.TrimSpace(xff[:idx])
			}
			return strings.TrimSpace(xff)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		return host
	}
}

// UserKeyFunc keys by the authenticated user when present, otherwise by IP.
// Seekers browsing anonymously share an IP bucket; signed-in callers get
// their own.
func UserKeyFunc() KeyFunc {
	ipFunc := IPKeyFunc()
	return func(r *http.Request) string {
		if id := GetUserID(r.Context()); id != "" {
			return "user:" + id
		}
		return "ip:" + ipFunc(r)
	}
}

// RateLimiter enforces the quotas in limits, answering 429 with Retry-After
// once a caller's window is spent.
func RateLimiter(store RateLimitStore, limits Limits, keyFunc KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			config, scope := limits.forRequest(r)
			key := scope + keyFunc(r)
			allowed, remaining, retryAfter := store.Allow(r.Context(), key, config)

			if limits.Metrics != nil {
				endpoint := normalizePath(r.URL.Path)
				keyType := "ip"
				if strings.HasPrefix(key, scope+"user:") {
					keyType = "user"
				}
				limits.Metrics.IncRateLimitRequests(endpoint, keyType)
				if !allowed {
					limits.Metrics.IncRateLimitBlocked(endpoint, keyType)
				}
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.Requests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !allowed {
				ctx := SetErrorCode(r.Context(), "rate_limit_exceeded")
				r = r.WithContext(ctx)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				resetTime := time.Now().Add(time.Duration(retryAfter) * time.Second).Unix()
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime, 10))
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
