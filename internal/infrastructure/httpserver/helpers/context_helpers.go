package helpers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/avatarctic/verification-service/internal/core/domain/audit"
)

func GetUserIDFromContext(c echo.Context) (uuid.UUID, error) {
	caller, ok := CallerFrom(c)
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid user context")
	}
	return caller.AccountID, nil
}

// GetOptionalUserID returns the authenticated caller or nil for anonymous requests.
func GetOptionalUserID(c echo.Context) *uuid.UUID {
	caller, ok := CallerFrom(c)
	if !ok {
		return nil
	}
	return &caller.AccountID
}

// HasBearerToken reports whether the request carries any Authorization header.
func HasBearerToken(c echo.Context) bool {
	return c.Request().Header.Get("Authorization") != ""
}

func GetJWTTokenFromContext(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "empty token")
	}
	return token, nil
}

// RequestContext returns the request context annotated with the caller's IP and user agent for audit entries.
func RequestContext(c echo.Context) context.Context {
	return audit.WithClientInfo(c.Request().Context(), audit.ClientInfo{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
}
