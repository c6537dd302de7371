package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/verification-service/internal/core/domain/auth"
	"github.com/avatarctic/verification-service/internal/infrastructure/httpserver/helpers"
	"github.com/avatarctic/verification-service/internal/infrastructure/httpserver/middleware"
	"github.com/avatarctic/verification-service/internal/mocks"
)

func validatorFor(id uuid.UUID) *mocks.TokenValidatorMock {
	return &mocks.TokenValidatorMock{ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
		if token != "good" {
			return nil, errors.New("bad token")
		}
		return &auth.Claims{UserID: id, Email: "caller@example.com"}, nil
	}}
}

func run(t *testing.T, mw echo.MiddlewareFunc, authz string) (*uuid.UUID, bool, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var seen *uuid.UUID
	called := false
	err := mw(func(c echo.Context) error {
		called = true
		seen = helpers.GetOptionalUserID(c)
		return c.NoContent(http.StatusOK)
	})(c)
	return seen, called, err
}

func requireHTTPStatus(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	htErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, code, htErr.Code)
}

func TestRequireJWT(t *testing.T) {
	id := uuid.New()
	m := middleware.NewJWTMiddleware(validatorFor(id), logrus.New())

	_, called, err := run(t, m.RequireJWT(), "")
	requireHTTPStatus(t, err, http.StatusUnauthorized)
	require.False(t, called)

	_, called, err = run(t, m.RequireJWT(), "Basic abc")
	requireHTTPStatus(t, err, http.StatusUnauthorized)
	require.False(t, called)

	_, called, err = run(t, m.RequireJWT(), "Bearer nope")
	requireHTTPStatus(t, err, http.StatusUnauthorized)
	require.False(t, called)

	seen, called, err := run(t, m.RequireJWT(), "Bearer good")
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, id, *seen)
}

func TestOptionalJWT(t *testing.T) {
	id := uuid.New()
	m := middleware.NewJWTMiddleware(validatorFor(id), nil)

	seen, called, err := run(t, m.OptionalJWT(), "")
	require.NoError(t, err)
	require.True(t, called)
	require.Nil(t, seen)

	seen, called, err = run(t, m.OptionalJWT(), "Bearer good")
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, id, *seen)

	_, called, err = run(t, m.OptionalJWT(), "Bearer nope")
	requireHTTPStatus(t, err, http.StatusUnauthorized)
	require.False(t, called)
}

func TestRateLimit_PerClientIP(t *testing.T) {
	var keys []string
	allow := true
	limiter := &mocks.RateLimiterMock{AllowFn: func(ctx context.Context, key string) (bool, int, int, time.Time, error) {
		keys = append(keys, key)
		return allow, 3, 10, time.Unix(1700000000, 0), nil
	}}
	m := middleware.NewRateLimitMiddleware(limiter, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRealIP, "203.0.113.7")
	rec := httptest.NewRecorder()
	err := m.PerClientIP()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(e.NewContext(req, rec))
	require.NoError(t, err)
	require.Equal(t, []string{"ip:203.0.113.7"}, keys)
	require.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "3", rec.Header().Get("X-RateLimit-Remaining"))
	require.Equal(t, "1700000000", rec.Header().Get("X-RateLimit-Reset"))

	allow = false
	rec = httptest.NewRecorder()
	err = m.PerClientIP()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(e.NewContext(req, rec))
	requireHTTPStatus(t, err, http.StatusTooManyRequests)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRateLimit_FailsOpenAndNilLimiter(t *testing.T) {
	limiter := &mocks.RateLimiterMock{AllowFn: func(ctx context.Context, key string) (bool, int, int, time.Time, error) {
		return true, 0, 10, time.Now(), errors.New("redis down")
	}}
	for _, m := range []*middleware.RateLimitMiddleware{
		middleware.NewRateLimitMiddleware(limiter, nil),
		middleware.NewRateLimitMiddleware(nil, nil),
	} {
		e := echo.New()
		rec := httptest.NewRecorder()
		called := false
		err := m.PerClientIP()(func(c echo.Context) error {
			called = true
			return nil
		})(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))
		require.NoError(t, err)
		require.True(t, called)
	}
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	total := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "t_requests_total"}, []string{"method", "endpoint", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "t_duration_seconds"}, []string{"method", "endpoint"})
	m := middleware.NewMetricsMiddleware(total, duration)

	e := echo.New()
	e.Use(m.CollectHTTPMetrics())
	e.GET("/records/:token", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/records/SECRETtoken123", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1.0, testutil.ToFloat64(total.WithLabelValues(http.MethodGet, "/records/:token", "200")))
	require.Equal(t, 1, testutil.CollectAndCount(total))
}

func TestRequireJWT_RejectsClaimsWithoutAccount(t *testing.T) {
	m := middleware.NewJWTMiddleware(validatorFor(uuid.Nil), nil)
	_, called, err := run(t, m.RequireJWT(), "Bearer good")
	requireHTTPStatus(t, err, http.StatusUnauthorized)
	require.False(t, called)
}

func TestMetrics_CountsReturnedErrorStatus(t *testing.T) {
	total := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "t_err_requests_total"}, []string{"method", "endpoint", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "t_err_duration_seconds"}, []string{"method", "endpoint"})
	m := middleware.NewMetricsMiddleware(total, duration)

	e := echo.New()
	e.Use(m.CollectHTTPMetrics())
	e.POST("/records", func(c echo.Context) error { return echo.NewHTTPError(http.StatusUnauthorized, "nope") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/records", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, 1.0, testutil.ToFloat64(total.WithLabelValues(http.MethodPost, "/records", "401")))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, 1.0, testutil.ToFloat64(total.WithLabelValues(http.MethodGet, "unmatched", "404")))
}
