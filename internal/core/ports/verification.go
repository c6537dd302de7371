package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/avatarctic/verification-service/internal/core/domain/verification"
)

var (
	ErrRecordNotFound = errors.New("verification record not found")
	ErrDuplicateToken = errors.New("verification token already exists")
)

// VerificationRecordRepository persists verification records.
// Records are inserted by issuance and mutated only through TryTransitionToConsumed.
type VerificationRecordRepository interface {
	// Create inserts rec. Returns ErrDuplicateToken when the token digest is taken.
	Create(ctx context.Context, rec *verification.Record) error
	// GetByTokenHash is a plain read used by verification lookups.
	GetByTokenHash(ctx context.Context, tokenHash string) (*verification.Record, error)
	// GetByTokenHashForUpdate reads inside tx, row-locking where the dialect supports it.
	GetByTokenHashForUpdate(ctx context.Context, tx DBTX, tokenHash string) (*verification.Record, error)
	// TryTransitionToConsumed flips ACTIVE to CONSUMED inside tx and reports whether this call won.
	TryTransitionToConsumed(ctx context.Context, tx DBTX, id uuid.UUID, consumer uuid.UUID, at time.Time) (bool, error)
}

// RecordCacheEvicter is implemented by record stores that keep a read cache.
type RecordCacheEvicter interface {
	EvictRecord(ctx context.Context, tokenHash string)
}

// TokenCodec generates, validates and digests verification tokens.
type TokenCodec interface {
	Generate() (string, error)
	Validate(token string) error
	Digest(token string) string
}

// MaterializeInput is everything a handler may use. Payload is opaque to the core.
type MaterializeInput struct {
	RecordID          uuid.UUID
	Type              verification.Type
	ConsumerAccountID uuid.UUID
	SubjectType       *string
	SubjectID         *string
	Payload           verification.Payload
}

// MaterializeResult summarizes the side effect for logging and audit.
type MaterializeResult struct {
	Entity      string     `json:"entity"`
	EntityID    *uuid.UUID `json:"entity_id,omitempty"`
	Created     bool       `json:"created"`
	Reactivated bool       `json:"reactivated"`
}

// MaterializationHandler applies the side effect of consuming a record.
// It must use tx for every write so the effect commits or rolls back with the status change.
type MaterializationHandler interface {
	Materialize(ctx context.Context, tx DBTX, in MaterializeInput) (*MaterializeResult, error)
}

// HandlerRegistry resolves the handler for a record type. A missing handler is legal.
type HandlerRegistry interface {
	Lookup(t verification.Type) (MaterializationHandler, bool)
}

// IssuanceService creates verification records.
type IssuanceService interface {
	CreateSingle(ctx context.Context, req *verification.CreateRecordRequest) (*verification.IssuedRecord, error)
	CreateBatch(ctx context.Context, req *verification.BatchCreateRequest) (*verification.BatchResult, error)
}

// ConsumptionService verifies and consumes verification records.
type ConsumptionService interface {
	// Consume never returns an error for business outcomes; only infrastructure failures surface as errors.
	Consume(ctx context.Context, token string, consumer *uuid.UUID, expected *verification.Type) (*verification.ConsumeResult, error)
	Find(ctx context.Context, token string) (*verification.Record, error)
	Verify(ctx context.Context, token string, expected *verification.Type) (*verification.VerifyResult, error)
}

// VerificationMetrics records domain counters.
type VerificationMetrics interface {
	ObserveIssued(t verification.Type, n int)
	ObserveConsume(t verification.Type, reason verification.Reason)
}
