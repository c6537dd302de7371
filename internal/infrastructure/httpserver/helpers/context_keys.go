package helpers

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/avatarctic/verification-service/internal/core/domain/auth"
)

const callerKey = "verification.caller"

// Caller is the authenticated principal of a request.
type Caller struct {
	AccountID uuid.UUID
	Email     string
}

// SetCaller stores the principal extracted from validated claims.
func SetCaller(c echo.Context, claims *auth.Claims) {
	c.Set(callerKey, Caller{AccountID: claims.UserID, Email: claims.Email})
}

// CallerFrom returns the principal set by the JWT middleware, if any.
func CallerFrom(c echo.Context) (Caller, bool) {
	caller, ok := c.Get(callerKey).(Caller)
	if !ok || caller.AccountID == uuid.Nil {
		return Caller{}, false
	}
	return caller, true
}
