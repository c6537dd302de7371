package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/verification-service/internal/core/domain/audit"
	"github.com/avatarctic/verification-service/internal/core/ports"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
	defaultDBTimeout     = 5 * time.Second
)

type AuditService struct {
	repo      ports.AuditRepository
	dbTimeout time.Duration
	logger    *logrus.Logger
}

func NewAuditService(repo ports.AuditRepository, logger *logrus.Logger) *AuditService {
	return &AuditService{
		repo:      repo,
		dbTimeout: defaultDBTimeout,
		logger:    logger,
	}
}

// WithDBTimeout bounds each repository call.
func (s *AuditService) WithDBTimeout(d time.Duration) *AuditService {
	if d > 0 {
		s.dbTimeout = d
	}
	return s
}

// LogAction persists an audit entry. Client details missing from req are taken from ctx.
func (s *AuditService) LogAction(ctx context.Context, req *audit.CreateAuditLogRequest) error {
	client := audit.ClientInfoFrom(ctx)
	ip, ua := req.IPAddress, req.UserAgent
	if ip == "" {
		ip = client.IPAddress
	}
	if ua == "" {
		ua = client.UserAgent
	}

	auditLog := &audit.AuditLog{
		UserID:     req.UserID,
		Action:     string(req.Action),
		Timestamp:  time.Now().UTC(),
		Resource:   string(req.Resource),
		ResourceID: req.ResourceID,
		Details:    req.Details,
		IPAddress:  ip,
		UserAgent:  ua,
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()
	err := s.repo.Create(dbCtx, auditLog)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"user_id": req.UserID, "action": req.Action, "resource": req.Resource}).WithError(err).Error("failed to persist audit log")
		}
		return err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": req.UserID, "action": req.Action, "resource": req.Resource, "resource_id": req.ResourceID}).Debug("audit log persisted")
	}
	return nil
}

// GetAuditLogs returns one page of logs and the total matching count.
func (s *AuditService) GetAuditLogs(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, int, error) {
	if filter == nil {
		filter = &audit.AuditLogFilter{}
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultAuditPageSize
	}
	if filter.Limit > maxAuditPageSize {
		filter.Limit = maxAuditPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	logs, err := s.repo.List(dbCtx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.Count(dbCtx, filter)
	if err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

var _ ports.AuditService = (*AuditService)(nil)
