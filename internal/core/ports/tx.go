package ports

import (
	"context"
	"database/sql"
)

// DBTX is the query surface shared by *sqlx.DB and *sqlx.Tx.
// Repository methods that must join a caller's transaction accept it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	Rebind(query string) string
	DriverName() string
}

// Tx is an open database transaction.
type Tx interface {
	DBTX
	Commit() error
	Rollback() error
}

// Transactor opens transactions against the primary datastore.
type Transactor interface {
	BeginTx(ctx context.Context) (Tx, error)
}
