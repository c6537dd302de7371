package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/verification-service/internal/core/domain/audit"
	"github.com/avatarctic/verification-service/internal/core/domain/verification"
	"github.com/avatarctic/verification-service/internal/core/ports"
)

// ConsumptionConfig groups consumption timeouts.
type ConsumptionConfig struct {
	// ConsumeTimeout bounds the whole consuming transaction, independent of the caller's context.
	ConsumeTimeout time.Duration
	// DBTimeout bounds plain reads and post-commit bookkeeping.
	DBTimeout time.Duration
}

type ConsumptionService struct {
	tx       ports.Transactor
	records  ports.VerificationRecordRepository
	codec    ports.TokenCodec
	handlers ports.HandlerRegistry
	audit    ports.AuditService
	metrics  ports.VerificationMetrics
	cfg      ConsumptionConfig
	now      func() time.Time
	logger   *logrus.Logger
}

// NewConsumptionService wires the consumption path. auditSvc and metrics may be nil.
func NewConsumptionService(tx ports.Transactor, records ports.VerificationRecordRepository, codec ports.TokenCodec, handlers ports.HandlerRegistry, auditSvc ports.AuditService, metrics ports.VerificationMetrics, cfg *ConsumptionConfig, logger *logrus.Logger) *ConsumptionService {
	c := ConsumptionConfig{ConsumeTimeout: 10 * time.Second, DBTimeout: 5 * time.Second}
	if cfg != nil {
		if cfg.ConsumeTimeout > 0 {
			c.ConsumeTimeout = cfg.ConsumeTimeout
		}
		if cfg.DBTimeout > 0 {
			c.DBTimeout = cfg.DBTimeout
		}
	}
	return &ConsumptionService{
		tx:       tx,
		records:  records,
		codec:    codec,
		handlers: handlers,
		audit:    auditSvc,
		metrics:  metrics,
		cfg:      c,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *ConsumptionService) WithClock(now func() time.Time) *ConsumptionService {
	s.now = now
	return s
}

// consumeOutcome carries what the transaction learned to the post-commit steps.
type consumeOutcome struct {
	result       *verification.ConsumeResult
	record       *verification.Record
	materialized *ports.MaterializeResult
}

func failure(rec *verification.Record, reason verification.Reason) *consumeOutcome {
	return &consumeOutcome{
		result: &verification.ConsumeResult{Success: false, Reason: reason, Message: reason.Message()},
		record: rec,
	}
}

// Consume redeems token for consumer exactly once and applies its side effect in the same transaction.
// Business outcomes come back in the result; an error means the attempt could not be decided.
func (s *ConsumptionService) Consume(ctx context.Context, token string, consumer *uuid.UUID, expected *verification.Type) (*verification.ConsumeResult, error) {
	if consumer == nil || *consumer == uuid.Nil {
		out := failure(nil, verification.ReasonAccessDenied)
		s.afterConsume(ctx, "", nil, out)
		return out.result, nil
	}
	if err := s.codec.Validate(token); err != nil {
		out := failure(nil, verification.ReasonNotFound)
		s.afterConsume(ctx, "", consumer, out)
		return out.result, nil
	}
	hash := s.codec.Digest(token)

	// a client disconnect must not abort the transaction halfway; only the timeout may
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ConsumeTimeout)
	defer cancel()

	out, err := s.consumeInTx(txCtx, hash, *consumer, expected)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"consumer_id": *consumer, "token_hash": hashPrefix(hash)}).WithError(err).Error("verification consume failed")
		}
		return nil, err
	}
	s.afterConsume(ctx, hash, consumer, out)
	return out.result, nil
}

func (s *ConsumptionService) consumeInTx(ctx context.Context, hash string, consumer uuid.UUID, expected *verification.Type) (*consumeOutcome, error) {
	tx, err := s.tx.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && s.logger != nil {
			s.logger.WithError(rbErr).Error("failed to roll back consume transaction")
		}
	}()

	rec, err := s.records.GetByTokenHashForUpdate(ctx, tx, hash)
	if err != nil {
		if !errors.Is(err, ports.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load verification record: %w", err)
		}
		rec = nil
	}

	now := s.now().UTC()
	if reason := verification.Evaluate(rec, now, expected); reason != verification.ReasonNone {
		return failure(rec, reason), nil
	}
	if rec.TargetAccountID != nil && *rec.TargetAccountID != consumer {
		return failure(rec, verification.ReasonAccessDenied), nil
	}

	won, err := s.records.TryTransitionToConsumed(ctx, tx, rec.ID, consumer, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return failure(rec, verification.ReasonAlreadyConsumed), nil
	}

	var materialized *ports.MaterializeResult
	if h, ok := s.handlers.Lookup(rec.Type); ok {
		materialized, err = h.Materialize(ctx, tx, ports.MaterializeInput{
			RecordID:          rec.ID,
			Type:              rec.Type,
			ConsumerAccountID: consumer,
			SubjectType:       rec.SubjectType,
			SubjectID:         rec.SubjectID,
			Payload:           rec.Payload,
		})
		if err != nil {
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{"record_id": rec.ID, "type": rec.Type}).WithError(err).Error("materialization failed, rolling back")
			}
			return failure(rec, verification.ReasonMaterializationFailed), nil
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit consumption: %w", err)
	}
	committed = true

	rec.Status = verification.StatusConsumed
	rec.ConsumedAt = &now
	rec.ConsumedByAccountID = &consumer
	return &consumeOutcome{
		result:       &verification.ConsumeResult{Success: true, Record: rec, Message: "verification record consumed"},
		record:       rec,
		materialized: materialized,
	}, nil
}

// afterConsume runs the best-effort steps that must never affect the outcome.
func (s *ConsumptionService) afterConsume(ctx context.Context, hash string, consumer *uuid.UUID, out *consumeOutcome) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.DBTimeout)
	defer cancel()

	var recType verification.Type
	var recID *uuid.UUID
	if out.record != nil {
		recType = out.record.Type
		id := out.record.ID
		recID = &id
	}

	if s.metrics != nil {
		s.metrics.ObserveConsume(recType, out.result.Reason)
	}

	if out.result.Success {
		if ev, ok := s.records.(ports.RecordCacheEvicter); ok && hash != "" {
			ev.EvictRecord(bg, hash)
		}
		details := map[string]any{"type": recType}
		if out.materialized != nil {
			details["materialized"] = out.materialized
		}
		s.logAudit(bg, consumer, audit.ActionConsume, recID, details)
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"record_id": recID, "type": recType, "consumer_id": consumer}).Info("verification record consumed")
		}
		return
	}

	s.logAudit(bg, consumer, audit.ActionConsumeReject, recID, map[string]any{"type": recType, "reason": out.result.Reason})
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"record_id": recID, "reason": out.result.Reason}).Debug("verification consume rejected")
	}
}

// Find is a plain lookup. Unknown or malformed tokens yield (nil, nil).
func (s *ConsumptionService) Find(ctx context.Context, token string) (*verification.Record, error) {
	if err := s.codec.Validate(token); err != nil {
		return nil, nil
	}
	dbCtx, cancel := context.WithTimeout(ctx, s.cfg.DBTimeout)
	defer cancel()
	rec, err := s.records.GetByTokenHash(dbCtx, s.codec.Digest(token))
	if errors.Is(err, ports.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find verification record: %w", err)
	}
	return rec, nil
}

// Verify evaluates token without consuming it.
func (s *ConsumptionService) Verify(ctx context.Context, token string, expected *verification.Type) (*verification.VerifyResult, error) {
	rec, err := s.Find(ctx, token)
	if err != nil {
		return nil, err
	}
	reason := verification.Evaluate(rec, s.now().UTC(), expected)
	return &verification.VerifyResult{
		Valid:   reason == verification.ReasonNone,
		Record:  rec,
		Reason:  reason,
		Message: reason.Message(),
	}, nil
}

func (s *ConsumptionService) logAudit(ctx context.Context, actor *uuid.UUID, action audit.AuditAction, resourceID *uuid.UUID, details map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogAction(ctx, &audit.CreateAuditLogRequest{
		UserID:     actor,
		Action:     action,
		Resource:   audit.ResourceVerificationRecord,
		ResourceID: resourceID,
		Details:    details,
	}); err != nil && s.logger != nil {
		s.logger.WithField("action", action).WithError(err).Warn("failed to write audit log")
	}
}

func hashPrefix(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

var _ ports.ConsumptionService = (*ConsumptionService)(nil)
