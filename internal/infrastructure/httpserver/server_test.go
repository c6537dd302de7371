package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/verification-service/internal/core/domain/auth"
	"github.com/avatarctic/verification-service/internal/core/ports"
	"github.com/avatarctic/verification-service/internal/infrastructure/httpserver"
	"github.com/avatarctic/verification-service/internal/mocks"
)

const bearer = "Bearer valid-jwt"

type harness struct {
	callerID    uuid.UUID
	issuance    *mocks.IssuanceServiceMock
	consumption *mocks.ConsumptionServiceMock
	identities  *mocks.IdentityDirectoryMock
	auditSvc    *mocks.AuditServiceMock
	limiter     *mocks.RateLimiterMock
	checkers    []ports.HealthChecker
	registry    *prometheus.Registry
}

func newHarness() *harness {
	return &harness{
		callerID:    uuid.New(),
		issuance:    &mocks.IssuanceServiceMock{},
		consumption: &mocks.ConsumptionServiceMock{},
		identities:  &mocks.IdentityDirectoryMock{},
		auditSvc:    &mocks.AuditServiceMock{},
		limiter:     &mocks.RateLimiterMock{},
		registry:    prometheus.NewRegistry(),
	}
}

func (h *harness) server() *httpserver.Server {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	validator := &mocks.TokenValidatorMock{ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
		if token != "valid-jwt" {
			return nil, errors.New("bad token")
		}
		return &auth.Claims{UserID: h.callerID, Email: "caller@example.com"}, nil
	}}
	return httpserver.NewServer(&httpserver.ServerConfig{Environment: "test"}, logger, httpserver.ServerDeps{
		IssuanceService:    h.issuance,
		ConsumptionService: h.consumption,
		IdentityDirectory:  h.identities,
		AuditService:       h.auditSvc,
		RateLimiterService: h.limiter,
		TokenValidator:     validator,
		HealthCheckers:     h.checkers,
		Metrics:            h.registry,
	})
}

func (h *harness) do(t *testing.T, method, target, body, authz string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.server().Echo().ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}
