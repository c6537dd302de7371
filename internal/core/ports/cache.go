package ports

import (
	"context"
	"time"
)

// Cache is the byte store behind the record read cache and the account existence cache.
// Errors are advisory: callers fall back to the database.
type Cache interface {
	// Get reports ok=false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set with ttl <= 0 stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
