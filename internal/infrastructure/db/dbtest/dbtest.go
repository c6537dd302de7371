// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avatarctic/verification-service/configs"
	"github.com/avatarctic/verification-service/internal/infrastructure/db"
)

var seq atomic.Int64

// NewSQLite returns a fresh, migrated database private to t.
// A single connection keeps the shared in-memory database alive and avoids SQLITE_LOCKED between connections;
// concurrent transactions therefore queue on the pool instead of interleaving.
func NewSQLite(t testing.TB) *db.Database {
	t.Helper()
	dsn := fmt.Sprintf("file:verification-test-%d-%d?mode=memory&cache=shared&_foreign_keys=on", time.Now().UnixNano(), seq.Add(1))
	database, err := db.NewDatabaseWithConfig(&configs.DatabaseConfig{
		Driver:       db.DriverSQLite,
		DSN:          dsn,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	if err := database.Migrate(); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return database
}
