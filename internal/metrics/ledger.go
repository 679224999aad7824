package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "spendguard"

// Ledger Prometheus metrics.
var (
	LedgerEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_events_total",
			Help:      "Ledger events by type",
		},
		[]string{"type"},
	)

	LedgerOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_operation_duration_seconds",
			Help:      "Ledger operation duration in seconds, lock wait included",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
		[]string{"op", "status"},
	)

	ActivityWriteErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_write_errors_total",
			Help:      "Activity counter writes that failed or were dropped",
		},
	)
)

var registerLedgerOnce sync.Once

// RegisterLedgerMetrics registers the ledger metrics on the default registry. Safe to call twice.
func RegisterLedgerMetrics() {
	registerLedgerOnce.Do(func() {
		prometheus.MustRegister(LedgerEventsTotal, LedgerOpDuration, ActivityWriteErrorsTotal)
	})
}
