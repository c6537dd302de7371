package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/avatarctic/verification-service/internal/core/domain/verification"
	"github.com/avatarctic/verification-service/internal/core/ports"
)

// VerificationMetrics holds the domain counters exported on /metrics.
type VerificationMetrics struct {
	issued       *prometheus.CounterVec
	consumed     *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
}

// NewVerificationMetrics creates the counters and registers them on reg.
func NewVerificationMetrics(reg prometheus.Registerer) (*VerificationMetrics, error) {
	m := &VerificationMetrics{
		issued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verification_records_issued_total",
				Help: "The total number of verification records issued",
			},
			[]string{"type"},
		),
		consumed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verification_consume_total",
				Help: "Consumption attempts by record type and outcome",
			},
			[]string{"type", "outcome"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verification_cache_lookups_total",
				Help: "Read cache lookups by result",
			},
			[]string{"result"},
		),
	}
	for _, c := range []prometheus.Collector{m.issued, m.consumed, m.cacheLookups} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register verification metrics: %w", err)
		}
	}
	return m, nil
}

func (m *VerificationMetrics) ObserveIssued(t verification.Type, n int) {
	m.issued.WithLabelValues(string(t)).Add(float64(n))
}

func (m *VerificationMetrics) ObserveConsume(t verification.Type, reason verification.Reason) {
	m.consumed.WithLabelValues(typeLabel(t), Outcome(reason)).Inc()
}

// CacheLookups is handed to the Redis cache so hit ratios show up next to the domain counters.
func (m *VerificationMetrics) CacheLookups() *prometheus.CounterVec {
	return m.cacheLookups
}

// Outcome maps a reason to its metric label.
func Outcome(reason verification.Reason) string {
	if reason == verification.ReasonNone {
		return "success"
	}
	return string(reason)
}

func typeLabel(t verification.Type) string {
	if t == "" {
		return "unknown"
	}
	return string(t)
}

var _ ports.VerificationMetrics = (*VerificationMetrics)(nil)
