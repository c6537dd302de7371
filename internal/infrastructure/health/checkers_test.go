package health_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avatarctic/verification-service/internal/infrastructure/db/dbtest"
	"github.com/avatarctic/verification-service/internal/infrastructure/health"
)

func TestDBHealthChecker(t *testing.T) {
	database := dbtest.NewSQLite(t)
	hc := health.NewDBHealthChecker(database)
	require.Equal(t, "database", hc.Name())
	require.NoError(t, hc.Check(context.Background()))

	require.NoError(t, database.Close())
	require.Error(t, hc.Check(context.Background()))
}
