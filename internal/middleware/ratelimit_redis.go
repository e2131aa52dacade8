package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimitStore implements RateLimitStore backed by Redis, so limits
// are shared across API replicas. It uses a fixed window counter keyed by
// the rate limit key.
type RedisRateLimitStore struct {
	client  *redis.Client
	metrics *Metrics
}

// NewRedisRateLimitStore creates a Redis-backed rate limit store.
func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

// SetMetrics attaches the Prometheus collector so fail-open events are
// counted.
func (s *RedisRateLimitStore) SetMetrics(m *Metrics) {
	s.metrics = m
}

// Allow implements RateLimitStore. On Redis errors the request is allowed;
// rate limiting degrades open rather than blocking all traffic.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int, int) {
	redisKey := "ratelimit:" + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		// Fail open with the full quota
		if s.metrics != nil {
			s.metrics.IncRateLimitRedisErrors()
		}
		return true, config.Requests, 0
	}

	if count == 1 {
		// First request in the window, start the expiry clock
		if err := s.client.Expire(ctx, redisKey, config.Window).Err(); err != nil {
			return true, config.Requests - 1, 0
		}
	}

	if count <= int64(config.Requests) {
		return true, config.Requests - int(count), 0
	}

	ttl, err := s.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		return false, 0, 1
	}

	retryAfter := int(ttl / time.Second)
	if retryAfter <= 0 {
		retryAfter = 1
	}
	return false, 0, retryAfter
}
