package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	config "github.com/avatarctic/verification-service/configs"
	"github.com/avatarctic/verification-service/internal/application/services"
	"github.com/avatarctic/verification-service/internal/core/ports"
	"github.com/avatarctic/verification-service/internal/infrastructure/db"
	"github.com/avatarctic/verification-service/internal/infrastructure/health"
	"github.com/avatarctic/verification-service/internal/infrastructure/httpserver"
	"github.com/avatarctic/verification-service/internal/infrastructure/metrics"
	"github.com/avatarctic/verification-service/internal/infrastructure/redis"
	"github.com/avatarctic/verification-service/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting verification service...")

	// Initialize database (apply pool settings from config)
	database, err := db.NewDatabaseWithConfig(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.WithField("driver", cfg.Database.Driver).Info("Connected to database successfully")

	if err := database.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations:", err)
	}

	verificationMetrics, err := metrics.NewVerificationMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("Failed to register verification metrics:", err)
	}

	hcSlice := []ports.HealthChecker{health.NewDBHealthChecker(database)}

	// Redis is optional: without it there is no read cache and no rate limiting
	var cache ports.Cache
	var rateLimiterService ports.RateLimiterService
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis:", err)
		}
		defer redisClient.Close()
		logger.Info("Connected to Redis successfully")

		cache = redis.NewRedisCache(redisClient, cfg.Cache.KeyPrefix, logger, verificationMetrics.CacheLookups())
		rateLimiterService = services.NewRateLimiterService(
			repositories.NewRateLimitRedisRepository(redisClient),
			&services.RateLimiterConfig{
				DefaultRequestsPerMinute: cfg.RateLimit.DefaultRequestsPerMinute,
				BurstMultiplier:          cfg.RateLimit.BurstMultiplier,
				Window:                   cfg.RateLimit.Window,
				KeyPrefix:                cfg.RateLimit.KeyPrefix,
			},
			logger,
		)
		hcSlice = append(hcSlice, health.NewRedisHealthChecker(redisClient))
	} else {
		logger.Warn("Redis disabled; record cache and rate limiting are off")
	}

	// Repositories, decorated with caching for plain reads
	recordRepo := repositories.NewCachingVerificationRecordRepository(
		repositories.NewVerificationRecordRepository(database, logger), cache, cfg.Cache.RecordTTL)
	accountDir := repositories.NewCachingAccountDirectory(
		repositories.NewAccountRepository(database, logger), cache, cfg.Cache.RecordTTL).WithLoadTimeout(cfg.Verification.DBTimeout)
	identityRepo := repositories.NewIdentityRepository(database, logger)
	auditRepo := repositories.NewAuditRepository(database, logger)

	codec, err := services.NewTokenCodec(cfg.Verification.TokenLength, cfg.Verification.TokenPepper)
	if err != nil {
		logger.Fatal("Failed to initialize token codec:", err)
	}

	handlers, err := services.DefaultHandlers(services.NewIdentityProviders(identityRepo, logger), logger)
	if err != nil {
		logger.Fatal("Failed to build materialization handlers:", err)
	}
	registry, err := services.NewHandlerRegistry(handlers)
	if err != nil {
		logger.Fatal("Failed to build handler registry:", err)
	}

	auditService := services.NewAuditService(auditRepo, logger).WithDBTimeout(cfg.Verification.DBTimeout)

	issuanceService := services.NewIssuanceService(recordRepo, codec, accountDir, auditService, verificationMetrics, &services.IssuanceConfig{
		MaxTokenAttempts: cfg.Verification.MaxTokenAttempts,
		StrictTargets:    cfg.Verification.StrictTargets,
		MaxBatchSize:     cfg.Verification.MaxBatchSize,
		DefaultTTL:       cfg.Verification.DefaultTTL,
		DBTimeout:        cfg.Verification.DBTimeout,
	}, logger)

	consumptionService := services.NewConsumptionService(database, recordRepo, codec, registry, auditService, verificationMetrics, &services.ConsumptionConfig{
		ConsumeTimeout: cfg.Verification.ConsumeTimeout,
		DBTimeout:      cfg.Verification.DBTimeout,
	}, logger)

	logger.WithField("types", registry.Types()).Info("Materialization handlers registered")

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Environment:    cfg.Server.Environment,
	}

	deps := httpserver.ServerDeps{
		IssuanceService:    issuanceService,
		ConsumptionService: consumptionService,
		IdentityDirectory:  services.NewIdentityDirectoryService(identityRepo, logger).WithDBTimeout(cfg.Verification.DBTimeout),
		AuditService:       auditService,
		RateLimiterService: rateLimiterService,
		TokenValidator:     services.NewJWTValidator(cfg.JWT.Secret),
		HealthCheckers:     hcSlice,
	}

	server := httpserver.NewServer(serverConfig, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
