// Package health provides readiness checkers for external dependencies.
package health

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
)

// DBChecker pings the Postgres pool backing the repositories.
type DBChecker struct {
	db *sql.DB
}

func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{db: db}
}

func (d *DBChecker) HealthCheck(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// RedisChecker pings the Redis instance used for feed session state and
// rate limit counters.
type RedisChecker struct {
	client *redis.Client
}

func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
