package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/verification-service/internal/core/domain/identity"
	"github.com/avatarctic/verification-service/internal/core/ports"
)

// IdentityProfileService grants one identity kind.
type IdentityProfileService struct {
	kind   identity.Kind
	repo   ports.IdentityRepository
	logger *logrus.Logger
}

func NewIdentityProfileService(kind identity.Kind, repo ports.IdentityRepository, logger *logrus.Logger) *IdentityProfileService {
	return &IdentityProfileService{kind: kind, repo: repo, logger: logger}
}

func (s *IdentityProfileService) Kind() identity.Kind { return s.kind }

// EnsureActive creates the profile, reactivates it, or leaves an active one untouched.
func (s *IdentityProfileService) EnsureActive(ctx context.Context, tx ports.DBTX, accountID uuid.UUID, attrs identity.Attributes) (*identity.EnsureResult, error) {
	if accountID == uuid.Nil {
		return nil, fmt.Errorf("account id is required")
	}
	res, err := s.repo.EnsureActive(ctx, tx, s.kind, accountID, attrs)
	if err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"kind":        s.kind,
			"account_id":  accountID,
			"profile_id":  res.Profile.ID,
			"created":     res.Created,
			"reactivated": res.Reactivated,
		}).Debug("identity ensured")
	}
	return res, nil
}

// NewIdentityProviders builds one service per known kind over a shared repository.
func NewIdentityProviders(repo ports.IdentityRepository, logger *logrus.Logger) ports.IdentityProviders {
	providers := ports.IdentityProviders{}
	for _, kind := range []identity.Kind{identity.KindCoach, identity.KindManager, identity.KindLearner} {
		providers[kind] = NewIdentityProfileService(kind, repo, logger)
	}
	return providers
}

// IdentityDirectoryService exposes an account's profiles.
type IdentityDirectoryService struct {
	repo      ports.IdentityRepository
	dbTimeout time.Duration
	logger    *logrus.Logger
}

func NewIdentityDirectoryService(repo ports.IdentityRepository, logger *logrus.Logger) *IdentityDirectoryService {
	return &IdentityDirectoryService{repo: repo, dbTimeout: defaultDBTimeout, logger: logger}
}

// WithDBTimeout bounds each repository call.
func (s *IdentityDirectoryService) WithDBTimeout(d time.Duration) *IdentityDirectoryService {
	if d > 0 {
		s.dbTimeout = d
	}
	return s
}

func (s *IdentityDirectoryService) ListProfiles(ctx context.Context, accountID uuid.UUID) ([]*identity.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()
	return s.repo.ListByAccount(ctx, accountID)
}

func (s *IdentityDirectoryService) Deactivate(ctx context.Context, kind identity.Kind, accountID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()
	if err := s.repo.Deactivate(ctx, kind, accountID); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"kind": kind, "account_id": accountID}).Info("identity deactivated")
	}
	return nil
}

var (
	_ ports.IdentityService   = (*IdentityProfileService)(nil)
	_ ports.IdentityDirectory = (*IdentityDirectoryService)(nil)
)
