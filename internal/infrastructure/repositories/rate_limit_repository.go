package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/verification-service/internal/core/ports"
)

// RateLimitRedisRepository keeps fixed-window request counters in Redis.
type RateLimitRedisRepository struct {
	r   redis.Cmdable
	now func() time.Time
}

func NewRateLimitRedisRepository(r redis.Cmdable) *RateLimitRedisRepository {
	return &RateLimitRedisRepository{r: r, now: time.Now}
}

// WithClock overrides the time source used to pick the window.
func (repo *RateLimitRedisRepository) WithClock(now func() time.Time) *RateLimitRedisRepository {
	repo.now = now
	return repo
}

// WindowKey names the counter of key for the window starting at windowStart.
func WindowKey(keyPrefix, key string, windowStart time.Time) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, key, windowStart.Unix())
}

// IncrementWindow bumps the counter for the current window. INCR and EXPIRE run in one MULTI.
func (repo *RateLimitRedisRepository) IncrementWindow(ctx context.Context, key string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error) {
	if window <= 0 {
		return 0, time.Time{}, fmt.Errorf("rate limit window must be positive")
	}
	windowStart := repo.now().UTC().Truncate(window)
	redisKey := WindowKey(keyPrefix, key, windowStart)

	var incr *redis.IntCmd
	_, err := repo.r.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, ttl)
		return nil
	})
	if err != nil {
		return 0, windowStart, fmt.Errorf("failed to increment rate limit window: %w", err)
	}
	return int(incr.Val()), windowStart, nil
}

var _ ports.RateLimitRepository = (*RateLimitRedisRepository)(nil)
