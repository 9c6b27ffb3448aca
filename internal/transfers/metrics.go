package transfers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks ledger traffic.
type Metrics struct {
	// Ledger calls by result: "ok", "degraded"
	LedgerCalls    *prometheus.CounterVec
	LedgerDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		LedgerCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tapday_ledger_calls_total",
			Help: "Ledger indexer calls by result",
		}, []string{"result"}),
		LedgerDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tapday_ledger_call_duration_seconds",
			Help:    "Duration of ledger indexer calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

func (m *Metrics) ObserveLedgerCall(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.LedgerCalls.WithLabelValues(result).Inc()
	m.LedgerDuration.Observe(d.Seconds())
}
