package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for subname claims.
type Metrics struct {
	// Claim outcomes: "created", "conflict", "invalid", "upstream_error"
	ClaimOutcome *prometheus.CounterVec

	ClaimLatency prometheus.Histogram

	// Username overrides applied from identity proofs
	UsernameOverrides prometheus.Counter

	InvalidationFailures prometheus.Counter
}

// New creates a new Metrics instance with all identity module metrics registered.
func New() *Metrics {
	return &Metrics{
		ClaimOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tapday_identity_claims_total",
			Help: "Subname claims by outcome",
		}, []string{"outcome"}),

		ClaimLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tapday_identity_claim_duration_seconds",
			Help:    "Duration of the full claim workflow including registrar calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		UsernameOverrides: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tapday_identity_username_overrides_total",
			Help: "Claims whose label was replaced by a proven username",
		}),

		InvalidationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tapday_identity_invalidation_failures_total",
			Help: "Cache invalidation signals that failed after a claim",
		}),
	}
}

func (m *Metrics) IncrementClaimOutcome(outcome string) {
	if m != nil {
		m.ClaimOutcome.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveClaimLatency(d time.Duration) {
	if m != nil {
		m.ClaimLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementUsernameOverride() {
	if m != nil {
		m.UsernameOverrides.Inc()
	}
}

func (m *Metrics) IncrementInvalidationFailure() {
	if m != nil {
		m.InvalidationFailures.Inc()
	}
}
