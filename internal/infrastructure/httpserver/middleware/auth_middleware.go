package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/verification-service/internal/core/ports"
	"github.com/avatarctic/verification-service/internal/infrastructure/httpserver/helpers"
)

type JWTMiddleware struct {
	validator ports.TokenValidator
	logger    *logrus.Logger
}

func NewJWTMiddleware(validator ports.TokenValidator, logger *logrus.Logger) *JWTMiddleware {
	return &JWTMiddleware{validator: validator, logger: logger}
}

// RequireJWT creates middleware that validates JWT tokens and sets user context
func (m *JWTMiddleware) RequireJWT() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := m.authenticate(c); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// OptionalJWT authenticates the caller when a token is presented and lets anonymous requests through.
// A presented but invalid token is still rejected.
func (m *JWTMiddleware) OptionalJWT() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !helpers.HasBearerToken(c) {
				return next(c)
			}
			if err := m.authenticate(c); err != nil {
				return err
			}
			return next(c)
		}
	}
}

func (m *JWTMiddleware) authenticate(c echo.Context) error {
	tokenString, err := helpers.GetJWTTokenFromContext(c)
	if err != nil {
		return err
	}

	claims, err := m.validator.ValidateToken(c.Request().Context(), tokenString)
	if err != nil {
		if m.logger != nil {
			m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Path(), "error": err.Error()}).Warn("JWT validation failed")
		}
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}
	if claims.UserID == uuid.Nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "token carries no account")
	}

	helpers.SetCaller(c, claims)

	if m.logger != nil {
		m.logger.WithField("user_id", claims.UserID).Debug("jwt validated and user context set")
	}
	return nil
}
