package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/avatarctic/verification-service/internal/core/domain/verification"
	"github.com/avatarctic/verification-service/internal/core/ports"
)

const defaultLoadTimeout = 5 * time.Second

// Utility helpers
func cacheSetSilently(c ports.Cache, ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Set(ctx, key, b, ttl)
}

func cacheGet[T any](c ports.Cache, ctx context.Context, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// loadWithSingleflight coalesces concurrent cache misses for key into one loader call.
// The loader ignores the leading caller's cancellation and is bounded by timeout instead.
// Results are cached only when keep reports true; loader errors are never cached.
func loadWithSingleflight[T any](cache ports.Cache, ctx context.Context, key string, ttl, timeout time.Duration, keep func(*T) bool, loader func(context.Context) (*T, error)) (*T, error) {
	if v, ok := cacheGet[T](cache, ctx, key); ok && keep(v) {
		return v, nil
	}
	ch := sf.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if v, ok := cacheGet[T](cache, lctx, key); ok && keep(v) {
			return v, nil
		}
		v, err := loader(lctx)
		if err != nil {
			return nil, err
		}
		if keep(v) {
			cacheSetSilently(cache, lctx, key, v, ttl)
		}
		return v, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		v, ok := res.Val.(*T)
		if !ok {
			return nil, fmt.Errorf("unexpected type from singleflight result")
		}
		return v, nil
	}
}

func recordCacheKey(tokenHash string) string { return "vr:token:" + tokenHash }

// CachingVerificationRecordRepository decorates the record store with a cache of consumed
// records. CONSUMED is terminal, so a cached copy can never go stale; ACTIVE records are
// always read from the database. Locked reads and the conditional transition bypass the cache.
type CachingVerificationRecordRepository struct {
	inner ports.VerificationRecordRepository
	cache ports.Cache
	ttl   time.Duration
}

func NewCachingVerificationRecordRepository(inner ports.VerificationRecordRepository, cache ports.Cache, ttl time.Duration) *CachingVerificationRecordRepository {
	return &CachingVerificationRecordRepository{inner: inner, cache: cache, ttl: ttl}
}

func (c *CachingVerificationRecordRepository) Create(ctx context.Context, rec *verification.Record) error {
	return c.inner.Create(ctx, rec)
}

func (c *CachingVerificationRecordRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*verification.Record, error) {
	key := recordCacheKey(tokenHash)
	if rec, ok := cacheGet[verification.Record](c.cache, ctx, key); ok && rec.IsConsumed() {
		// the digest is not serialized
		rec.TokenHash = tokenHash
		return rec, nil
	}
	rec, err := c.inner.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	if rec.IsConsumed() {
		cacheSetSilently(c.cache, ctx, key, rec, c.ttl)
	}
	return rec, nil
}

func (c *CachingVerificationRecordRepository) GetByTokenHashForUpdate(ctx context.Context, tx ports.DBTX, tokenHash string) (*verification.Record, error) {
	return c.inner.GetByTokenHashForUpdate(ctx, tx, tokenHash)
}

func (c *CachingVerificationRecordRepository) TryTransitionToConsumed(ctx context.Context, tx ports.DBTX, id uuid.UUID, consumer uuid.UUID, at time.Time) (bool, error) {
	return c.inner.TryTransitionToConsumed(ctx, tx, id, consumer, at)
}

// EvictRecord drops any cached copy. Call it after the consuming transaction commits.
func (c *CachingVerificationRecordRepository) EvictRecord(ctx context.Context, tokenHash string) {
	if c.cache != nil {
		_ = c.cache.Delete(ctx, recordCacheKey(tokenHash))
	}
}

// CachingAccountDirectory caches positive existence checks only, so new accounts are seen at once.
type CachingAccountDirectory struct {
	inner       ports.AccountDirectory
	cache       ports.Cache
	ttl         time.Duration
	loadTimeout time.Duration
}

func NewCachingAccountDirectory(inner ports.AccountDirectory, cache ports.Cache, ttl time.Duration) *CachingAccountDirectory {
	return &CachingAccountDirectory{inner: inner, cache: cache, ttl: ttl, loadTimeout: defaultLoadTimeout}
}

// WithLoadTimeout bounds each coalesced database lookup.
func (c *CachingAccountDirectory) WithLoadTimeout(d time.Duration) *CachingAccountDirectory {
	if d > 0 {
		c.loadTimeout = d
	}
	return c
}

func (c *CachingAccountDirectory) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	v, err := loadWithSingleflight(c.cache, ctx, "account:exists:"+id.String(), c.ttl, c.loadTimeout,
		func(b *bool) bool { return *b },
		func(lctx context.Context) (*bool, error) {
			exists, err := c.inner.Exists(lctx, id)
			if err != nil {
				return nil, err
			}
			return &exists, nil
		})
	if err != nil {
		return false, err
	}
	return *v, nil
}

// Simple validation to ensure decorators implement interfaces at compile time
var _ ports.VerificationRecordRepository = (*CachingVerificationRecordRepository)(nil)
var _ ports.RecordCacheEvicter = (*CachingVerificationRecordRepository)(nil)
var _ ports.AccountDirectory = (*CachingAccountDirectory)(nil)

// singleflight group for coalescing cache-miss loads in-process
var sf singleflight.Group
