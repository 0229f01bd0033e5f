// Package observability provides Prometheus metrics for the service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Rollup core
	RollupRequests     *prometheus.CounterVec
	RollupDuration     prometheus.Histogram
	EnrichmentFailures prometheus.Counter

	// Ledger writes
	TransactionsCreated *prometheus.CounterVec

	// Reliability
	BackupsTaken   prometheus.Counter
	BackupDuration prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RollupRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ghost_rollup_requests_total",
			Help: "Rollup requests by outcome",
		}, []string{"status"}),

		RollupDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ghost_rollup_duration_seconds",
			Help:    "End-to-end rollup computation time, including feed calls",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		EnrichmentFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ghost_enrichment_failures_total",
			Help: "Market data fetches that failed or timed out",
		}),

		TransactionsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ghost_transactions_created_total",
			Help: "Ledger records written, by kind",
		}, []string{"kind"}),

		BackupsTaken: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ghost_backups_taken_total",
			Help: "Completed database backups",
		}),

		BackupDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ghost_backup_duration_seconds",
			Help:    "Time to create and upload a backup archive",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),
	}
}
