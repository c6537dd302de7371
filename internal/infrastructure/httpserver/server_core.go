package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/verification-service/internal/core/ports"
	customMiddleware "github.com/avatarctic/verification-service/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	Environment    string
}

type ServerDeps struct {
	IssuanceService    ports.IssuanceService
	ConsumptionService ports.ConsumptionService
	IdentityDirectory  ports.IdentityDirectory
	AuditService       ports.AuditService
	RateLimiterService ports.RateLimiterService
	TokenValidator     ports.TokenValidator
	HealthCheckers     []ports.HealthChecker
	// Metrics defaults to the global registry
	Metrics MetricsRegistry
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	issuance       ports.IssuanceService
	consumption    ports.ConsumptionService
	identities     ports.IdentityDirectory
	auditSvc       ports.AuditService
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
	metrics        MetricsRegistry
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewRequestValidator()

	registry := deps.Metrics
	if registry == nil {
		registry = globalRegistry()
	}
	httpMetrics, err := newHTTPMetrics(registry)
	if err != nil && logger != nil {
		logger.WithError(err).Warn("HTTP metrics not registered; /metrics will not include them")
	}

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		issuance:       deps.IssuanceService,
		consumption:    deps.ConsumptionService,
		identities:     deps.IdentityDirectory,
		auditSvc:       deps.AuditService,
		healthCheckers: deps.HealthCheckers,
		metrics:        registry,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.TokenValidator,
			deps.RateLimiterService,
			logger,
			httpMetrics.requestsTotal,
			httpMetrics.requestDuration,
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
