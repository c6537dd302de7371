package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/verification-service/internal/core/domain/audit"
	"github.com/avatarctic/verification-service/internal/core/domain/verification"
	"github.com/avatarctic/verification-service/internal/core/ports"
)

// IssuanceConfig groups issuance tunables.
type IssuanceConfig struct {
	MaxTokenAttempts int
	StrictTargets    bool
	MaxBatchSize     int
	DefaultTTL       time.Duration
	// DBTimeout bounds each store or directory call.
	DBTimeout time.Duration
}

type IssuanceService struct {
	records  ports.VerificationRecordRepository
	codec    ports.TokenCodec
	accounts ports.AccountDirectory
	audit    ports.AuditService
	metrics  ports.VerificationMetrics
	cfg      IssuanceConfig
	now      func() time.Time
	logger   *logrus.Logger
}

// NewIssuanceService wires the issuance path. accounts, auditSvc and metrics may be nil.
func NewIssuanceService(records ports.VerificationRecordRepository, codec ports.TokenCodec, accounts ports.AccountDirectory, auditSvc ports.AuditService, metrics ports.VerificationMetrics, cfg *IssuanceConfig, logger *logrus.Logger) *IssuanceService {
	c := IssuanceConfig{MaxTokenAttempts: 5, MaxBatchSize: 500, DefaultTTL: 24 * time.Hour, DBTimeout: 5 * time.Second}
	if cfg != nil {
		c.StrictTargets = cfg.StrictTargets
		if cfg.MaxTokenAttempts > 0 {
			c.MaxTokenAttempts = cfg.MaxTokenAttempts
		}
		if cfg.MaxBatchSize > 0 {
			c.MaxBatchSize = cfg.MaxBatchSize
		}
		if cfg.DefaultTTL > 0 {
			c.DefaultTTL = cfg.DefaultTTL
		}
		if cfg.DBTimeout > 0 {
			c.DBTimeout = cfg.DBTimeout
		}
	}
	return &IssuanceService{
		records:  records,
		codec:    codec,
		accounts: accounts,
		audit:    auditSvc,
		metrics:  metrics,
		cfg:      c,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *IssuanceService) WithClock(now func() time.Time) *IssuanceService {
	s.now = now
	return s
}

func (s *IssuanceService) CreateSingle(ctx context.Context, req *verification.CreateRecordRequest) (*verification.IssuedRecord, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}
	now := s.now().UTC()
	expiresAt, err := s.validateWindow(req.Type, req.Payload, req.ExpiresAt, req.NotBefore, now)
	if err != nil {
		return nil, err
	}
	if req.Token != "" {
		if err := s.codec.Validate(req.Token); err != nil || len(req.Token) < MinSuppliedTokenLength {
			return nil, fmt.Errorf("%w: token must be %d to 32 letters or digits", ErrInvalidRequest, MinSuppliedTokenLength)
		}
	}
	if req.TargetAccountID != nil {
		ok, err := s.targetExists(ctx, *req.TargetAccountID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrTargetNotFound
		}
	}

	template := verification.Record{
		Type:              req.Type,
		TargetAccountID:   req.TargetAccountID,
		SubjectType:       req.SubjectType,
		SubjectID:         req.SubjectID,
		Payload:           req.Payload,
		ExpiresAt:         expiresAt,
		NotBefore:         utcTime(req.NotBefore),
		IssuedByAccountID: req.IssuedByAccountID,
	}
	issued, err := s.issue(ctx, template, req.Token, now)
	if err != nil {
		return nil, err
	}

	s.observeIssued(req.Type, 1)
	s.logAudit(ctx, req.IssuedByAccountID, audit.ActionIssue, &issued.Record.ID, map[string]any{
		"type":              issued.Record.Type,
		"target_account_id": issued.Record.TargetAccountID,
		"expires_at":        issued.Record.ExpiresAt,
	})
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"record_id": issued.Record.ID, "type": req.Type}).Info("verification record issued")
	}
	return issued, nil
}

// CreateBatch issues one record per target. Targets succeed or fail independently.
func (s *IssuanceService) CreateBatch(ctx context.Context, req *verification.BatchCreateRequest) (*verification.BatchResult, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}
	if len(req.Targets) == 0 {
		return nil, fmt.Errorf("%w: at least one target is required", ErrInvalidRequest)
	}
	if len(req.Targets) > s.cfg.MaxBatchSize {
		return nil, fmt.Errorf("%w: at most %d targets per batch", ErrInvalidRequest, s.cfg.MaxBatchSize)
	}
	now := s.now().UTC()
	expiresAt, err := s.validateWindow(req.Type, req.Payload, req.ExpiresAt, req.NotBefore, now)
	if err != nil {
		return nil, err
	}

	result := &verification.BatchResult{
		Created:  make([]verification.IssuedRecord, 0, len(req.Targets)),
		Failures: []verification.BatchFailure{},
	}
	fail := func(target uuid.UUID, reason verification.Reason, msg string) {
		result.Failures = append(result.Failures, verification.BatchFailure{TargetAccountID: target, Reason: reason, Message: msg})
	}

	for _, target := range req.Targets {
		if err := ctx.Err(); err != nil {
			fail(target, verification.ReasonIssueFailed, err.Error())
			continue
		}
		if target == uuid.Nil {
			fail(target, verification.ReasonTargetNotFound, verification.ReasonTargetNotFound.Message())
			continue
		}
		ok, err := s.targetExists(ctx, target)
		if err != nil {
			fail(target, verification.ReasonIssueFailed, "could not check target account")
			continue
		}
		if !ok {
			fail(target, verification.ReasonTargetNotFound, verification.ReasonTargetNotFound.Message())
			continue
		}

		tgt := target
		issued, err := s.issue(ctx, verification.Record{
			Type:              req.Type,
			TargetAccountID:   &tgt,
			SubjectType:       req.SubjectType,
			Payload:           req.Payload,
			ExpiresAt:         expiresAt,
			NotBefore:         utcTime(req.NotBefore),
			IssuedByAccountID: req.IssuedByAccountID,
		}, "", now)
		switch {
		case errors.Is(err, ErrTokenGenerationFailed):
			fail(target, verification.ReasonTokenGenerationFailed, verification.ReasonTokenGenerationFailed.Message())
		case err != nil:
			if s.logger != nil {
				s.logger.WithField("target_account_id", target).WithError(err).Error("batch issuance failed for target")
			}
			fail(target, verification.ReasonIssueFailed, verification.ReasonIssueFailed.Message())
		default:
			result.Created = append(result.Created, *issued)
		}
	}
	result.CreatedCount = len(result.Created)
	result.FailedCount = len(result.Failures)

	s.observeIssued(req.Type, result.CreatedCount)
	s.logAudit(ctx, req.IssuedByAccountID, audit.ActionIssue, nil, map[string]any{
		"type":          req.Type,
		"batch":         true,
		"created_count": result.CreatedCount,
		"failed_count":  result.FailedCount,
	})
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"type": req.Type, "created": result.CreatedCount, "failed": result.FailedCount}).Info("verification batch issued")
	}
	return result, nil
}

// issue persists a copy of template under a fresh token, retrying digest collisions.
// A caller-supplied token gets exactly one attempt.
func (s *IssuanceService) issue(ctx context.Context, template verification.Record, supplied string, now time.Time) (*verification.IssuedRecord, error) {
	attempts := s.cfg.MaxTokenAttempts
	if supplied != "" {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		token := supplied
		if token == "" {
			var err error
			if token, err = s.codec.Generate(); err != nil {
				return nil, err
			}
		}
		rec := template
		rec.ID = uuid.New()
		rec.TokenHash = s.codec.Digest(token)
		rec.Status = verification.StatusActive
		rec.CreatedAt = now
		dbCtx, cancel := context.WithTimeout(ctx, s.cfg.DBTimeout)
		err := s.records.Create(dbCtx, &rec)
		cancel()
		if err == nil {
			return &verification.IssuedRecord{Record: &rec, Token: token}, nil
		}
		if !errors.Is(err, ports.ErrDuplicateToken) {
			return nil, fmt.Errorf("failed to create verification record: %w", err)
		}
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"type": template.Type, "attempt": attempt}).Warn("verification token collision")
		}
	}
	return nil, ErrTokenGenerationFailed
}

func (s *IssuanceService) validateWindow(t verification.Type, payload verification.Payload, expiresAt time.Time, notBefore *time.Time, now time.Time) (time.Time, error) {
	if !t.IsValid() {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if len(payload) > 0 && !json.Valid(payload) {
		return time.Time{}, fmt.Errorf("%w: payload must be valid JSON", ErrInvalidRequest)
	}
	if expiresAt.IsZero() {
		expiresAt = now.Add(s.cfg.DefaultTTL)
	}
	expiresAt = expiresAt.UTC()
	if !expiresAt.After(now) {
		return time.Time{}, fmt.Errorf("%w: expires_at must be in the future", ErrInvalidRequest)
	}
	if notBefore != nil && !notBefore.Before(expiresAt) {
		return time.Time{}, fmt.Errorf("%w: not_before must be before expires_at", ErrInvalidRequest)
	}
	return expiresAt, nil
}

func (s *IssuanceService) targetExists(ctx context.Context, id uuid.UUID) (bool, error) {
	if !s.cfg.StrictTargets || s.accounts == nil {
		return true, nil
	}
	dbCtx, cancel := context.WithTimeout(ctx, s.cfg.DBTimeout)
	defer cancel()
	ok, err := s.accounts.Exists(dbCtx, id)
	if err != nil {
		return false, fmt.Errorf("failed to check target account: %w", err)
	}
	return ok, nil
}

func (s *IssuanceService) observeIssued(t verification.Type, n int) {
	if s.metrics != nil && n > 0 {
		s.metrics.ObserveIssued(t, n)
	}
}

func (s *IssuanceService) logAudit(ctx context.Context, actor *uuid.UUID, action audit.AuditAction, resourceID *uuid.UUID, details map[string]any) {
	if s.audit == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DBTimeout)
	defer cancel()
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

func utcTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

var _ ports.IssuanceService = (*IssuanceService)(nil)
