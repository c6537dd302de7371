package health

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/verification-service/internal/core/ports"
	infraDB "github.com/avatarctic/verification-service/internal/infrastructure/db"
)

// dbHealthChecker runs a trivial query so a stale pool is noticed, not just a dead socket.
type dbHealthChecker struct{ db *infraDB.Database }

func (d *dbHealthChecker) Name() string { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error {
	var one int
	return d.db.DB.GetContext(ctx, &one, "SELECT 1")
}

type redisHealthChecker struct{ client redis.Cmdable }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client redis.Cmdable) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}
