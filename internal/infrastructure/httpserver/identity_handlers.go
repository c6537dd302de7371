package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/verification-service/internal/core/domain/identity"
	"github.com/avatarctic/verification-service/internal/core/ports"
	"github.com/avatarctic/verification-service/internal/infrastructure/httpserver/helpers"
)

func (s *Server) listOwnIdentities(c echo.Context) error {
	userID, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}
	profiles, err := s.identities.ListProfiles(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list identities")
	}
	if profiles == nil {
		profiles = []*identity.Profile{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"identities": profiles, "total": len(profiles)})
}

func (s *Server) deactivateOwnIdentity(c echo.Context) error {
	userID, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}
	kind := identity.Kind(strings.ToUpper(c.Param("kind")))
	switch kind {
	case identity.KindCoach, identity.KindManager, identity.KindLearner:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown identity kind")
	}

	if err := s.identities.Deactivate(c.Request().Context(), kind, userID); err != nil {
		if errors.Is(err, ports.ErrIdentityNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "identity not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to deactivate identity")
	}
	return c.NoContent(http.StatusNoContent)
}
