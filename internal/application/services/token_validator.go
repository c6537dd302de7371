package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/avatarctic/verification-service/internal/core/domain/auth"
	"github.com/avatarctic/verification-service/internal/core/ports"
)

var ErrInvalidAccessToken = errors.New("invalid access token")

// JWTValidator verifies HMAC-signed access tokens issued by the account service.
type JWTValidator struct {
	secret []byte
}

func NewJWTValidator(secret string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret)}
}

func (v *JWTValidator) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &auth.Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC (prevent alg confusion)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidAccessToken
	}

	claims, ok := token.Claims.(*auth.Claims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims", ErrInvalidAccessToken)
	}
	if claims.UserID == uuid.Nil {
		// tokens minted with only a subject are accepted too
		id, err := uuid.Parse(claims.Subject)
		if err != nil || id == uuid.Nil {
			return nil, fmt.Errorf("%w: missing user id", ErrInvalidAccessToken)
		}
		claims.UserID = id
	}
	return claims, nil
}

var _ ports.TokenValidator = (*JWTValidator)(nil)
