package repositories_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/verification-service/internal/core/domain/verification"
	"github.com/avatarctic/verification-service/internal/core/ports"
	"github.com/avatarctic/verification-service/internal/infrastructure/repositories"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}
func (m *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}
func (m *memCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type countingRecordRepo struct {
	ports.VerificationRecordRepository
	mu    sync.Mutex
	calls int
	rec   *verification.Record
	// when set, the next read signals loaded after taking its snapshot and waits for release
	loaded  chan struct{}
	release chan struct{}
}

func (c *countingRecordRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*verification.Record, error) {
	c.mu.Lock()
	c.calls++
	if c.rec == nil {
		c.mu.Unlock()
		return nil, ports.ErrRecordNotFound
	}
	cp := *c.rec
	loaded, release := c.loaded, c.release
	c.loaded, c.release = nil, nil
	c.mu.Unlock()
	if loaded != nil {
		close(loaded)
		<-release
	}
	return &cp, nil
}

func (c *countingRecordRepo) consume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UTC()
	c.rec.Status = verification.StatusConsumed
	c.rec.ConsumedAt = &now
}

func (c *countingRecordRepo) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func activeRecord() *verification.Record {
	return &verification.Record{ID: uuid.New(), TokenHash: "h", Status: verification.StatusActive, Type: verification.TypeAchievementBadge}
}

func TestCachingVerificationRecordRepository_CachesOnlyConsumed(t *testing.T) {
	inner := &countingRecordRepo{rec: activeRecord()}
	repo := repositories.NewCachingVerificationRecordRepository(inner, newMemCache(), time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		rec, err := repo.GetByTokenHash(ctx, "h")
		require.NoError(t, err)
		require.Equal(t, verification.StatusActive, rec.Status)
	}
	require.Equal(t, 2, inner.callCount())

	inner.consume()
	repo.EvictRecord(ctx, "h")
	for i := 0; i < 2; i++ {
		rec, err := repo.GetByTokenHash(ctx, "h")
		require.NoError(t, err)
		require.Equal(t, verification.StatusConsumed, rec.Status)
		require.Equal(t, "h", rec.TokenHash)
		require.Equal(t, inner.rec.ID, rec.ID)
	}
	require.Equal(t, 3, inner.callCount())
}

func TestCachingVerificationRecordRepository_ReadStartedBeforeConsumeIsNotCached(t *testing.T) {
	inner := &countingRecordRepo{rec: activeRecord(), loaded: make(chan struct{}), release: make(chan struct{})}
	repo := repositories.NewCachingVerificationRecordRepository(inner, newMemCache(), time.Minute)
	ctx := context.Background()
	loaded, release := inner.loaded, inner.release

	type result struct {
		rec *verification.Record
		err error
	}
	done := make(chan result, 1)
	go func() {
		rec, err := repo.GetByTokenHash(ctx, "h")
		done <- result{rec, err}
	}()

	// the read holds an ACTIVE snapshot while the consume commits and evicts
	<-loaded
	inner.consume()
	repo.EvictRecord(ctx, "h")
	close(release)

	stale := <-done
	require.NoError(t, stale.err)
	require.Equal(t, verification.StatusActive, stale.rec.Status)

	rec, err := repo.GetByTokenHash(ctx, "h")
	require.NoError(t, err)
	require.Equal(t, verification.StatusConsumed, rec.Status)
	require.NotNil(t, rec.ConsumedAt)
}

func TestCachingVerificationRecordRepository_IgnoresCachedActiveEntry(t *testing.T) {
	inner := &countingRecordRepo{rec: activeRecord()}
	cache := newMemCache()
	repo := repositories.NewCachingVerificationRecordRepository(inner, cache, time.Minute)
	ctx := context.Background()

	b, err := json.Marshal(inner.rec)
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, "vr:token:h", b, time.Minute))
	inner.consume()

	rec, err := repo.GetByTokenHash(ctx, "h")
	require.NoError(t, err)
	require.Equal(t, verification.StatusConsumed, rec.Status)
	require.Equal(t, 1, inner.callCount())
}

func TestCachingVerificationRecordRepository_DoesNotCacheMisses(t *testing.T) {
	inner := &countingRecordRepo{}
	repo := repositories.NewCachingVerificationRecordRepository(inner, newMemCache(), time.Minute)
	ctx := context.Background()

	_, err := repo.GetByTokenHash(ctx, "nope")
	require.ErrorIs(t, err, ports.ErrRecordNotFound)
	_, err = repo.GetByTokenHash(ctx, "nope")
	require.ErrorIs(t, err, ports.ErrRecordNotFound)
	require.Equal(t, 2, inner.callCount())
}

type stubDirectory struct {
	calls  int
	exists bool
}

func (s *stubDirectory) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	s.calls++
	return s.exists, nil
}

func TestCachingAccountDirectory_CachesOnlyPositives(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	missing := &stubDirectory{}
	dir := repositories.NewCachingAccountDirectory(missing, newMemCache(), time.Minute)
	for i := 0; i < 2; i++ {
		ok, err := dir.Exists(ctx, id)
		require.NoError(t, err)
		require.False(t, ok)
	}
	require.Equal(t, 2, missing.calls)

	present := &stubDirectory{exists: true}
	dir = repositories.NewCachingAccountDirectory(present, newMemCache(), time.Minute)
	for i := 0; i < 2; i++ {
		ok, err := dir.Exists(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.Equal(t, 1, present.calls)
}

type blockingDirectory struct {
	mu      sync.Mutex
	calls   int
	seen    chan context.Context
	release chan struct{}
}

func (b *blockingDirectory) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	b.mu.Lock()
	b.calls++
	first := b.calls == 1
	b.mu.Unlock()
	if first {
		b.seen <- ctx
		<-b.release
	}
	return true, nil
}

func TestCachingAccountDirectory_LoadOutlivesCancelledCaller(t *testing.T) {
	inner := &blockingDirectory{seen: make(chan context.Context, 1), release: make(chan struct{})}
	dir := repositories.NewCachingAccountDirectory(inner, newMemCache(), time.Minute).WithLoadTimeout(time.Second)
	id := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := dir.Exists(ctx, id)
		errCh <- err
	}()

	loadCtx := <-inner.seen
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
	require.NoError(t, loadCtx.Err())
	_, hasDeadline := loadCtx.Deadline()
	require.True(t, hasDeadline)

	close(inner.release)
	ok, err := dir.Exists(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok)

	inner.mu.Lock()
	defer inner.mu.Unlock()
	require.Equal(t, 1, inner.calls)
}
