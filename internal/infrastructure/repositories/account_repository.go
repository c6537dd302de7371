package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/verification-service/internal/core/domain/account"
	"github.com/avatarctic/verification-service/internal/core/ports"
	"github.com/avatarctic/verification-service/internal/infrastructure/db"
)

var ErrAccountNotFound = errors.New("account not found")

// AccountRepository reads the shared users table. Accounts are written by the account service;
// Create exists for seeding and tests.
type AccountRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewAccountRepository(database *db.Database, logger *logrus.Logger) *AccountRepository {
	return &AccountRepository{
		db:     database,
		logger: logger,
	}
}

// Create creates a new account row
func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	query := r.db.DB.Rebind(`INSERT INTO users (id, email, is_active, created_at) VALUES (?, ?, ?, ?)`)
	_, err := r.db.DB.ExecContext(ctx, query, a.ID, a.Email, a.IsActive, a.CreatedAt)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"account_id": a.ID}).WithError(err).Error("db: failed to create account")
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var a account.Account
	query := r.db.DB.Rebind(`SELECT id, email, is_active, created_at FROM users WHERE id = ?`)
	err := r.db.DB.GetContext(ctx, &a, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"account_id": id}).Debug("db: account not found by ID")
			}
			return nil, ErrAccountNotFound
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"account_id": id}).WithError(err).Error("db: failed to get account by ID")
		}
		return nil, fmt.Errorf("failed to get account by ID: %w", err)
	}
	return &a, nil
}

// Exists reports whether an active account with id exists
func (r *AccountRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	a, err := r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}
	return a.IsActive, nil
}

var _ ports.AccountDirectory = (*AccountRepository)(nil)
