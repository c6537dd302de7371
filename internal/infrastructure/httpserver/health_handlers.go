package httpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName        = "verification-service"
	serviceVersion     = "1.0.0"
	healthCheckTimeout = 2 * time.Second
)

type dependencyHealth struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// healthCheck checks every dependency in parallel. Any failure degrades the service to 503.
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	var (
		mu   sync.Mutex
		deps = make(map[string]dependencyHealth, len(s.healthCheckers))
		g    errgroup.Group
	)
	for _, hc := range s.healthCheckers {
		if hc == nil {
			continue
		}
		hc := hc
		g.Go(func() error {
			start := time.Now()
			err := hc.Check(ctx)
			res := dependencyHealth{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				res.Status = "unhealthy"
				res.Error = err.Error()
				if s.logger != nil {
					s.logger.WithField("dependency", hc.Name()).WithError(err).Warn("health check failed")
				}
			}
			mu.Lock()
			deps[hc.Name()] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	overall, code := "healthy", http.StatusOK
	for _, d := range deps {
		if d.Status != "healthy" {
			overall, code = "degraded", http.StatusServiceUnavailable
			break
		}
	}
	return c.JSON(code, map[string]interface{}{
		"status":       overall,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"version":      serviceVersion,
		"service":      serviceName,
		"dependencies": deps,
	})
}
