package identitycache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for snapshot rebuilds.
type Metrics struct {
	Rebuilds        *prometheus.CounterVec
	SharedRebuilds  prometheus.Counter
	StaleServes     prometheus.Counter
	RebuildDuration prometheus.Histogram
	Owners          prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Rebuilds: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tapday_identity_cache_rebuilds_total",
			Help: "Identity cache rebuilds by result",
		}, []string{"result"}),
		SharedRebuilds: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tapday_identity_cache_shared_rebuilds_total",
			Help: "Callers that joined an in-flight rebuild instead of starting one",
		}),
		StaleServes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tapday_identity_cache_stale_serves_total",
			Help: "Reads served from the previous snapshot after a failed rebuild",
		}),
		RebuildDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tapday_identity_cache_rebuild_duration_seconds",
			Help:    "Duration of registrar listing plus indexing",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Owners: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tapday_identity_cache_owners",
			Help: "Addresses with a name in the published snapshot",
		}),
	}
}

func (m *Metrics) IncrementRebuild(result string) {
	if m != nil {
		m.Rebuilds.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementSharedRebuild() {
	if m != nil {
		m.SharedRebuilds.Inc()
	}
}

func (m *Metrics) IncrementStaleServe() {
	if m != nil {
		m.StaleServes.Inc()
	}
}

func (m *Metrics) ObserveRebuild(d time.Duration, owners int) {
	if m != nil {
		m.RebuildDuration.Observe(d.Seconds())
		m.Owners.Set(float64(owners))
	}
}
