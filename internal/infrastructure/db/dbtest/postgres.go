//go:build postgres

package dbtest

import (
	"os"
	"testing"

	"github.com/avatarctic/verification-service/configs"
	"github.com/avatarctic/verification-service/internal/infrastructure/db"
)

// PostgresDSNEnv names the variable holding the DSN of a disposable postgres database.
const PostgresDSNEnv = "VERIFICATION_TEST_POSTGRES_DSN"

// NewPostgres returns a migrated postgres database, skipping t when PostgresDSNEnv is unset.
// The database is shared between tests; callers keep their rows apart with fresh keys.
func NewPostgres(t testing.TB) *db.Database {
	t.Helper()
	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}
	database, err := db.NewDatabaseWithConfig(&configs.DatabaseConfig{
		Driver:       db.DriverPostgres,
		DSN:          dsn,
		MaxOpenConns: 4,
		MaxIdleConns: 4,
	})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	if err := database.Migrate(); err != nil {
		t.Fatalf("migrate postgres: %v", err)
	}
	return database
}
