package repositories

import (
	"errors"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/avatarctic/verification-service/internal/infrastructure/db"
)

const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique constraint failure on either supported driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// lockClause returns the row lock suffix for drivers that support SELECT ... FOR UPDATE.
// SQLite serializes writers at the database level, so it needs none.
func lockClause(driverName string) string {
	if driverName == db.DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}
