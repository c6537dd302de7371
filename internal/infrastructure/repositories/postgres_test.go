//go:build postgres

package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/verification-service/internal/core/domain/identity"
	"github.com/avatarctic/verification-service/internal/core/domain/verification"
	"github.com/avatarctic/verification-service/internal/infrastructure/db/dbtest"
	"github.com/avatarctic/verification-service/internal/infrastructure/repositories"
)

// Run with: VERIFICATION_TEST_POSTGRES_DSN=postgres://... go test -tags postgres ./internal/infrastructure/repositories/

func TestPostgres_LockedReadWaitsForConsumingTransaction(t *testing.T) {
	database := dbtest.NewPostgres(t)
	repo := repositories.NewVerificationRecordRepository(database, nil)
	ctx := context.Background()

	hash := "pg-" + uuid.NewString()
	require.NoError(t, repo.Create(ctx, newRecord(hash)))

	first, err := database.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { _ = first.Rollback() }()
	rec, err := repo.GetByTokenHashForUpdate(ctx, first, hash)
	require.NoError(t, err)
	require.Equal(t, verification.StatusActive, rec.Status)

	type lockedRead struct {
		rec *verification.Record
		err error
	}
	second := make(chan lockedRead, 1)
	go func() {
		tx, err := database.BeginTx(ctx)
		if err != nil {
			second <- lockedRead{err: err}
			return
		}
		defer func() { _ = tx.Rollback() }()
		r, err := repo.GetByTokenHashForUpdate(ctx, tx, hash)
		second <- lockedRead{r, err}
	}()

	select {
	case <-second:
		t.Fatal("locked read returned while the row was held")
	case <-time.After(200 * time.Millisecond):
	}

	ok, err := repo.TryTransitionToConsumed(ctx, first, rec.ID, uuid.New(), time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, first.Commit())

	got := <-second
	require.NoError(t, got.err)
	require.Equal(t, verification.StatusConsumed, got.rec.Status)
}

func TestPostgres_ConcurrentEnsureActiveCreatesOnce(t *testing.T) {
	database := dbtest.NewPostgres(t)
	repo := repositories.NewIdentityRepository(database, nil)
	ctx := context.Background()
	account := uuid.New()

	first, err := database.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { _ = first.Rollback() }()
	created, err := repo.EnsureActive(ctx, first, identity.KindCoach, account, identity.Attributes{DisplayName: strPtr("Ada")})
	require.NoError(t, err)
	require.True(t, created.Created)

	type ensured struct {
		res *identity.EnsureResult
		err error
	}
	second := make(chan ensured, 1)
	go func() {
		tx, err := database.BeginTx(ctx)
		if err != nil {
			second <- ensured{err: err}
			return
		}
		res, err := repo.EnsureActive(ctx, tx, identity.KindCoach, account, identity.Attributes{DisplayName: strPtr("Grace")})
		if err != nil {
			_ = tx.Rollback()
			second <- ensured{err: err}
			return
		}
		second <- ensured{res, tx.Commit()}
	}()

	require.NoError(t, first.Commit())
	got := <-second
	require.NoError(t, got.err)
	require.False(t, got.res.Created)
	require.False(t, got.res.Reactivated)
	require.Equal(t, created.Profile.ID, got.res.Profile.ID)
	require.Equal(t, "Ada", *got.res.Profile.DisplayName)

	profiles, err := repo.ListByAccount(ctx, account)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
}
