package ports

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/avatarctic/verification-service/internal/core/domain/identity"
)

var ErrIdentityNotFound = errors.New("identity profile not found")

// IdentityRepository stores identity profiles, unique per (kind, account).
type IdentityRepository interface {
	// EnsureActive creates, reactivates or leaves alone the profile inside tx.
	EnsureActive(ctx context.Context, tx DBTX, kind identity.Kind, accountID uuid.UUID, attrs identity.Attributes) (*identity.EnsureResult, error)
	GetByAccount(ctx context.Context, kind identity.Kind, accountID uuid.UUID) (*identity.Profile, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*identity.Profile, error)
	Deactivate(ctx context.Context, kind identity.Kind, accountID uuid.UUID) error
}

// IdentityService is the capability an identity-granting handler needs for one kind.
type IdentityService interface {
	Kind() identity.Kind
	EnsureActive(ctx context.Context, tx DBTX, accountID uuid.UUID, attrs identity.Attributes) (*identity.EnsureResult, error)
}

// IdentityProviders maps each identity kind to its service. Built once at startup.
type IdentityProviders map[identity.Kind]IdentityService

// IdentityDirectory answers read-only questions about an account's identities.
type IdentityDirectory interface {
	ListProfiles(ctx context.Context, accountID uuid.UUID) ([]*identity.Profile, error)
	Deactivate(ctx context.Context, kind identity.Kind, accountID uuid.UUID) error
}
