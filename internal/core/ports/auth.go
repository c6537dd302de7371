package ports

import (
	"context"

	"github.com/avatarctic/verification-service/internal/core/domain/auth"
)

// TokenValidator verifies caller access tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.Claims, error)
}
