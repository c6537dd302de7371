package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/verification-service/internal/core/domain/identity"
	"github.com/avatarctic/verification-service/internal/core/ports"
	"github.com/avatarctic/verification-service/internal/infrastructure/db"
)

const profileColumns = `id, kind, account_id, display_name, specialty, bio, deactivated_at, created_at, updated_at`

// IdentityRepository stores identity profiles. (kind, account_id) is unique.
type IdentityRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewIdentityRepository(database *db.Database, logger *logrus.Logger) *IdentityRepository {
	return &IdentityRepository{db: database, logger: logger}
}

// EnsureActive inserts the profile if missing, otherwise clears its deactivation marker.
// Descriptive fields of an existing profile are never overwritten.
func (r *IdentityRepository) EnsureActive(ctx context.Context, tx ports.DBTX, kind identity.Kind, accountID uuid.UUID, attrs identity.Attributes) (*identity.EnsureResult, error) {
	now := time.Now().UTC()
	fields := logrus.Fields{"kind": kind, "account_id": accountID}

	profile := &identity.Profile{
		ID:          uuid.New(),
		Kind:        kind,
		AccountID:   accountID,
		DisplayName: attrs.DisplayName,
		Specialty:   attrs.Specialty,
		Bio:         attrs.Bio,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	insert := tx.Rebind(`
		INSERT INTO identity_profiles (id, kind, account_id, display_name, specialty, bio, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, account_id) DO NOTHING`)
	result, err := tx.ExecContext(ctx, insert,
		profile.ID, profile.Kind, profile.AccountID, profile.DisplayName, profile.Specialty, profile.Bio, profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(fields).WithError(err).Error("db: failed to insert identity profile")
		}
		return nil, fmt.Errorf("failed to insert identity profile: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if inserted == 1 {
		if r.logger != nil {
			r.logger.WithFields(fields).WithField("profile_id", profile.ID).Info("db: identity profile created")
		}
		return &identity.EnsureResult{Profile: profile, Created: true}, nil
	}

	existing := &identity.Profile{}
	query := `SELECT ` + profileColumns + ` FROM identity_profiles WHERE kind = ? AND account_id = ?` + lockClause(tx.DriverName())
	if err := tx.GetContext(ctx, existing, tx.Rebind(query), kind, accountID); err != nil {
		if r.logger != nil {
			r.logger.WithFields(fields).WithError(err).Error("db: failed to load existing identity profile")
		}
		return nil, fmt.Errorf("failed to load identity profile: %w", err)
	}
	if existing.IsActive() {
		return &identity.EnsureResult{Profile: existing}, nil
	}

	update := tx.Rebind(`
		UPDATE identity_profiles
		SET deactivated_at = NULL, updated_at = ?
		WHERE id = ? AND deactivated_at IS NOT NULL`)
	result, err = tx.ExecContext(ctx, update, now, existing.ID)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(fields).WithError(err).Error("db: failed to reactivate identity profile")
		}
		return nil, fmt.Errorf("failed to reactivate identity profile: %w", err)
	}
	reactivated, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	existing.DeactivatedAt = nil
	if reactivated == 1 {
		existing.UpdatedAt = now
		if r.logger != nil {
			r.logger.WithFields(fields).WithField("profile_id", existing.ID).Info("db: identity profile reactivated")
		}
	}
	return &identity.EnsureResult{Profile: existing, Reactivated: reactivated == 1}, nil
}

// GetByAccount retrieves the profile of kind held by accountID
func (r *IdentityRepository) GetByAccount(ctx context.Context, kind identity.Kind, accountID uuid.UUID) (*identity.Profile, error) {
	var p identity.Profile
	query := r.db.DB.Rebind(`SELECT ` + profileColumns + ` FROM identity_profiles WHERE kind = ? AND account_id = ?`)
	if err := r.db.DB.GetContext(ctx, &p, query, kind, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to get identity profile: %w", err)
	}
	return &p, nil
}

// ListByAccount returns every profile of accountID, active or not
func (r *IdentityRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*identity.Profile, error) {
	profiles := []*identity.Profile{}
	query := r.db.DB.Rebind(`SELECT ` + profileColumns + ` FROM identity_profiles WHERE account_id = ? ORDER BY kind`)
	if err := r.db.DB.SelectContext(ctx, &profiles, query, accountID); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"account_id": accountID}).WithError(err).Error("db: failed to list identity profiles")
		}
		return nil, fmt.Errorf("failed to list identity profiles: %w", err)
	}
	return profiles, nil
}

// Deactivate soft-deactivates a profile. Deactivating an inactive profile is a no-op.
func (r *IdentityRepository) Deactivate(ctx context.Context, kind identity.Kind, accountID uuid.UUID) error {
	now := time.Now().UTC()
	query := r.db.DB.Rebind(`
		UPDATE identity_profiles
		SET deactivated_at = ?, updated_at = ?
		WHERE kind = ? AND account_id = ? AND deactivated_at IS NULL`)
	result, err := r.db.DB.ExecContext(ctx, query, now, now, kind, accountID)
	if err != nil {
		return fmt.Errorf("failed to deactivate identity profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := r.GetByAccount(ctx, kind, accountID); err != nil {
			return err
		}
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"kind": kind, "account_id": accountID}).Info("db: identity profile deactivated")
	}
	return nil
}

var _ ports.IdentityRepository = (*IdentityRepository)(nil)
