package httpserver

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsRegistry is where the HTTP collectors are registered and what /metrics serves.
type MetricsRegistry interface {
	prometheus.Registerer
	prometheus.Gatherer
}

type defaultRegistry struct {
	prometheus.Registerer
	prometheus.Gatherer
}

func globalRegistry() MetricsRegistry {
	return defaultRegistry{Registerer: prometheus.DefaultRegisterer, Gatherer: prometheus.DefaultGatherer}
}

type httpMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// newHTTPMetrics registers the request collectors on reg, reusing ones already registered there.
func newHTTPMetrics(reg prometheus.Registerer) (*httpMetrics, error) {
	m := &httpMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "The total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "The HTTP request latencies in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}
	var err error
	if m.requestsTotal, err = registerOrReuse(reg, m.requestsTotal); err != nil {
		return m, err
	}
	if m.requestDuration, err = registerOrReuse(reg, m.requestDuration); err != nil {
		return m, err
	}
	return m, nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

// LogMetricsInitialization logs that metrics have been initialized
func (s *Server) LogMetricsInitialization() {
	if s.logger != nil {
		s.logger.Info("Prometheus metrics initialized and registered")
		s.logger.WithFields(map[string]interface{}{
			"http_requests_total":               "Counter for HTTP requests by method, endpoint, status",
			"http_request_duration":             "Histogram for HTTP request duration by method, endpoint",
			"verification_records_issued_total": "Counter for issued records by type",
			"verification_consume_total":        "Counter for consumption attempts by type, outcome",
			"verification_cache_lookups_total":  "Counter for read cache lookups by result",
			"metrics_endpoint":                  "/metrics",
		}).Debug("Available Prometheus metrics")
	}
}

// metricsEndpoint serves the configured registry in the Prometheus text format
func (s *Server) metricsEndpoint(c echo.Context) error {
	if s.logger != nil {
		s.logger.Debug("Serving Prometheus metrics")
	}
	promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}).ServeHTTP(c.Response(), c.Request())
	return nil
}
