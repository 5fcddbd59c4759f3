package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DigestRunsTotal counts digest job executions by status.
	DigestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_digest_runs_total",
			Help: "Total number of admin digest runs by status (success/failure)",
		},
		[]string{"status"},
	)

	// DigestDuration measures how long one digest run takes.
	DigestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bot_digest_duration_seconds",
			Help:    "Duration of admin digest runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 30, 60},
		},
	)

	// DigestLastSuccess records when a digest last went out.
	DigestLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_digest_last_success_timestamp",
			Help: "Unix timestamp of the last successful admin digest",
		},
	)
)
