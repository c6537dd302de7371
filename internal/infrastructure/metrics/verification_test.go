package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/verification-service/internal/core/domain/verification"
)

func TestVerificationMetrics_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewVerificationMetrics(reg)
	require.NoError(t, err)

	m.ObserveIssued(verification.TypeInviteCoach, 3)
	m.ObserveConsume(verification.TypeInviteCoach, verification.ReasonNone)
	m.ObserveConsume(verification.TypeInviteCoach, verification.ReasonAlreadyConsumed)
	m.ObserveConsume("", verification.ReasonNotFound)
	m.CacheLookups().WithLabelValues("hit").Inc()

	require.Equal(t, 3.0, testutil.ToFloat64(m.issued.WithLabelValues("INVITE_COACH")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.consumed.WithLabelValues("INVITE_COACH", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.consumed.WithLabelValues("INVITE_COACH", "ALREADY_CONSUMED")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.consumed.WithLabelValues("unknown", "NOT_FOUND")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
}

func TestNewVerificationMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewVerificationMetrics(reg)
	require.NoError(t, err)
	_, err = NewVerificationMetrics(reg)
	require.Error(t, err)
}
