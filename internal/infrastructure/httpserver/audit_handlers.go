package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/verification-service/internal/core/domain/audit"
	"github.com/avatarctic/verification-service/internal/infrastructure/httpserver/helpers"
)

// getAuditLogs lists the caller's own audit trail.
func (s *Server) getAuditLogs(c echo.Context) error {
	userID, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}
	var filter audit.AuditLogFilter
	if err := c.Bind(&filter); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	filter.UserID = &userID

	logs, total, err := s.auditSvc.GetAuditLogs(c.Request().Context(), &filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load audit logs")
	}
	if logs == nil {
		logs = []*audit.AuditLog{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"logs": logs, "total": total})
}
