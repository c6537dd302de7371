package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// RedisCache implements ports.Cache using a Redis client.
// Errors are returned to the caller, which is expected to fall back to the database.
type RedisCache struct {
	r      redis.Cmdable
	prefix string
	logger *logrus.Logger
	// lookups counts Get outcomes by result (hit, miss, error); optional
	lookups *prometheus.CounterVec
}

// NewRedisCache creates a new Redis-backed cache. logger and lookups may be nil.
func NewRedisCache(r redis.Cmdable, prefix string, logger *logrus.Logger, lookups *prometheus.CounterVec) *RedisCache {
	return &RedisCache{r: r, prefix: prefix, logger: logger, lookups: lookups}
}

func (c *RedisCache) namespaced(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

func (c *RedisCache) observe(result string) {
	if c.lookups != nil {
		c.lookups.WithLabelValues(result).Inc()
	}
}

// Get implements Cache.Get.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.r.Get(ctx, c.namespaced(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.observe("miss")
		return nil, false, nil
	}
	if err != nil {
		c.observe("error")
		if c.logger != nil {
			c.logger.WithField("key", key).WithError(err).Warn("cache: get failed")
		}
		return nil, false, err
	}
	c.observe("hit")
	return val, true, nil
}

// Set implements Cache.Set.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	err := c.r.Set(ctx, c.namespaced(key), value, ttl).Err()
	if err != nil && c.logger != nil {
		c.logger.WithField("key", key).WithError(err).Warn("cache: set failed")
	}
	return err
}

// Delete implements Cache.Delete.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	err := c.r.Del(ctx, c.namespaced(key)).Err()
	if err != nil && c.logger != nil {
		c.logger.WithField("key", key).WithError(err).Warn("cache: delete failed")
	}
	return err
}
