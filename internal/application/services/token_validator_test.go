package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/verification-service/internal/application/services"
	"github.com/avatarctic/verification-service/internal/core/domain/auth"
)

const jwtSecret = "unit-test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestJWTValidator_AcceptsValidToken(t *testing.T) {
	v := services.NewJWTValidator(jwtSecret)
	id := uuid.New()
	tok := sign(t, jwt.SigningMethodHS256, []byte(jwtSecret), &auth.Claims{
		UserID: id,
		Email:  "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	claims, err := v.ValidateToken(context.Background(), tok)
	require.NoError(t, err)
	require.Equal(t, id, claims.UserID)
	require.Equal(t, "a@example.com", claims.Email)
}

func TestJWTValidator_FallsBackToSubject(t *testing.T) {
	v := services.NewJWTValidator(jwtSecret)
	id := uuid.New()
	tok := sign(t, jwt.SigningMethodHS256, []byte(jwtSecret), jwt.RegisteredClaims{
		Subject:   id.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	claims, err := v.ValidateToken(context.Background(), tok)
	require.NoError(t, err)
	require.Equal(t, id, claims.UserID)
}

func TestJWTValidator_Rejects(t *testing.T) {
	v := services.NewJWTValidator(jwtSecret)
	valid := jwt.RegisteredClaims{Subject: uuid.NewString(), ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}

	expired := jwt.RegisteredClaims{Subject: uuid.NewString(), ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}
	noSubject := jwt.RegisteredClaims{ExpiresAt: valid.ExpiresAt}

	cases := map[string]string{
		"wrong secret": sign(t, jwt.SigningMethodHS256, []byte("other"), valid),
		"expired":      sign(t, jwt.SigningMethodHS256, []byte(jwtSecret), expired),
		"no subject":   sign(t, jwt.SigningMethodHS256, []byte(jwtSecret), noSubject),
		"none alg":     sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid),
		"garbage":      "not.a.jwt",
	}
	for name, tok := range cases {
		_, err := v.ValidateToken(context.Background(), tok)
		require.ErrorIs(t, err, services.ErrInvalidAccessToken, name)
	}
}
