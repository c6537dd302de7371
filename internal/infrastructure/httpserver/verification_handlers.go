package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/verification-service/internal/application/services"
	"github.com/avatarctic/verification-service/internal/core/domain/verification"
	"github.com/avatarctic/verification-service/internal/infrastructure/httpserver/helpers"
)

// envelope is the response shape of every verification endpoint.
type envelope struct {
	Success bool                `json:"success"`
	Data    any                 `json:"data"`
	Token   string              `json:"token,omitempty"`
	Message string              `json:"message"`
	Reason  verification.Reason `json:"reason,omitempty"`
}

type verifyEnvelope struct {
	envelope
	Valid bool `json:"valid"`
}

type consumeRequest struct {
	Type verification.Type `json:"type" query:"type"`
}

func (s *Server) createVerificationRecord(c echo.Context) error {
	callerID, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	var req verification.CreateRecordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.IssuedByAccountID = &callerID

	issued, err := s.issuance.CreateSingle(helpers.RequestContext(c), &req)
	if err != nil {
		return s.renderIssuanceError(c, err)
	}
	return c.JSON(http.StatusCreated, envelope{
		Success: true,
		Data:    issued.Record,
		Token:   issued.Token,
		Message: "verification record created",
	})
}

func (s *Server) createVerificationBatch(c echo.Context) error {
	callerID, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	var req verification.BatchCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.IssuedByAccountID = &callerID

	result, err := s.issuance.CreateBatch(helpers.RequestContext(c), &req)
	if err != nil {
		return s.renderIssuanceError(c, err)
	}
	msg := "verification records created"
	if result.FailedCount > 0 {
		msg = "some verification records could not be created"
	}
	return c.JSON(http.StatusOK, envelope{
		Success: result.FailedCount == 0,
		Data:    result,
		Message: msg,
	})
}

// verifyVerificationRecord is the anonymous lookup. An optional ?type= narrows validity to one type.
func (s *Server) verifyVerificationRecord(c echo.Context) error {
	expected, err := expectedType(c.QueryParam("type"))
	if err != nil {
		return err
	}
	res, err := s.consumption.Verify(c.Request().Context(), c.Param("token"), expected)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Error("verification lookup failed")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to look up verification record")
	}
	out := verifyEnvelope{
		envelope: envelope{
			Success: res.Record != nil,
			Message: res.Message,
			Reason:  res.Reason,
		},
		Valid: res.Valid,
	}
	if res.Record != nil {
		out.Data = res.Record
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) consumeVerificationRecord(c echo.Context) error {
	var req consumeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Type == "" {
		req.Type = verification.Type(c.QueryParam("type"))
	}
	expected, err := expectedType(string(req.Type))
	if err != nil {
		return err
	}

	res, err := s.consumption.Consume(helpers.RequestContext(c), c.Param("token"), helpers.GetOptionalUserID(c), expected)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Error("verification consume failed")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to consume verification record")
	}
	out := envelope{Success: res.Success, Message: res.Message, Reason: res.Reason}
	if res.Record != nil {
		out.Data = res.Record
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) renderIssuanceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidRequest), errors.Is(err, services.ErrUnknownType):
		return c.JSON(http.StatusBadRequest, envelope{Message: err.Error()})
	case errors.Is(err, services.ErrTargetNotFound):
		return c.JSON(http.StatusNotFound, envelope{
			Message: verification.ReasonTargetNotFound.Message(),
			Reason:  verification.ReasonTargetNotFound,
		})
	case errors.Is(err, services.ErrTokenGenerationFailed):
		return c.JSON(http.StatusConflict, envelope{
			Message: verification.ReasonTokenGenerationFailed.Message(),
			Reason:  verification.ReasonTokenGenerationFailed,
		})
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"path": c.Path()}).WithError(err).Error("verification issuance failed")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "failed to create verification record")
}

func expectedType(raw string) (*verification.Type, error) {
	if raw == "" {
		return nil, nil
	}
	t := verification.Type(raw)
	if !t.IsValid() {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unknown verification type")
	}
	return &t, nil
}
