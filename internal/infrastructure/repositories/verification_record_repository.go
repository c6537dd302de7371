package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/verification-service/internal/core/domain/verification"
	"github.com/avatarctic/verification-service/internal/core/ports"
	"github.com/avatarctic/verification-service/internal/infrastructure/db"
)

const recordColumns = `id, type, token_hash, status, target_account_id, subject_type, subject_id, payload,
	expires_at, not_before, issued_by_account_id, created_at, consumed_at, consumed_by_account_id`

// VerificationRecordRepository stores verification records in SQL.
type VerificationRecordRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewVerificationRecordRepository creates a new verification record repository
func NewVerificationRecordRepository(database *db.Database, logger *logrus.Logger) *VerificationRecordRepository {
	return &VerificationRecordRepository{
		db:     database,
		logger: logger,
	}
}

// Create inserts a new ACTIVE record
func (r *VerificationRecordRepository) Create(ctx context.Context, rec *verification.Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = verification.StatusActive
	}

	query := r.db.DB.Rebind(`
		INSERT INTO verification_records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.DB.ExecContext(ctx, query,
		rec.ID, rec.Type, rec.TokenHash, rec.Status, rec.TargetAccountID, rec.SubjectType, rec.SubjectID, rec.Payload,
		rec.ExpiresAt.UTC(), utcPtr(rec.NotBefore), rec.IssuedByAccountID, rec.CreatedAt.UTC(), utcPtr(rec.ConsumedAt), rec.ConsumedByAccountID)
	if err != nil {
		if isUniqueViolation(err) {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"record_id": rec.ID, "type": rec.Type}).Debug("db: verification token collision")
			}
			return ports.ErrDuplicateToken
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"record_id": rec.ID, "type": rec.Type}).WithError(err).Error("db: failed to create verification record")
		}
		return fmt.Errorf("failed to create verification record: %w", err)
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"record_id": rec.ID, "type": rec.Type, "target_account_id": rec.TargetAccountID}).Debug("db: verification record created")
	}
	return nil
}

// GetByTokenHash retrieves a record by its token digest
func (r *VerificationRecordRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*verification.Record, error) {
	return r.get(ctx, r.db.DB, tokenHash, false)
}

// GetByTokenHashForUpdate retrieves a record inside tx and locks its row where supported
func (r *VerificationRecordRepository) GetByTokenHashForUpdate(ctx context.Context, tx ports.DBTX, tokenHash string) (*verification.Record, error) {
	return r.get(ctx, tx, tokenHash, true)
}

func (r *VerificationRecordRepository) get(ctx context.Context, q ports.DBTX, tokenHash string, lock bool) (*verification.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM verification_records WHERE token_hash = ?`
	if lock {
		query += lockClause(q.DriverName())
	}

	var rec verification.Record
	err := q.GetContext(ctx, &rec, q.Rebind(query), tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrRecordNotFound
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"token_hash_prefix": hashPrefix(tokenHash), "lock": lock}).WithError(err).Error("db: failed to get verification record")
		}
		return nil, fmt.Errorf("failed to get verification record: %w", err)
	}
	return &rec, nil
}

// TryTransitionToConsumed performs the conditional ACTIVE -> CONSUMED write.
// It reports false when another consumer already won the row.
func (r *VerificationRecordRepository) TryTransitionToConsumed(ctx context.Context, tx ports.DBTX, id uuid.UUID, consumer uuid.UUID, at time.Time) (bool, error) {
	query := tx.Rebind(`
		UPDATE verification_records
		SET status = 'CONSUMED', consumed_at = ?, consumed_by_account_id = ?
		WHERE id = ? AND status = 'ACTIVE'`)

	result, err := tx.ExecContext(ctx, query, at.UTC(), consumer, id)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"record_id": id}).WithError(err).Error("db: failed to consume verification record")
		}
		return false, fmt.Errorf("failed to consume verification record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 && r.logger != nil {
		r.logger.WithFields(logrus.Fields{"record_id": id, "consumer": consumer}).Debug("db: conditional consume matched no active row")
	}
	return rowsAffected == 1, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func hashPrefix(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

var _ ports.VerificationRecordRepository = (*VerificationRecordRepository)(nil)
