// Package metrics provides centralized Prometheus metrics for the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Poll cycle metrics track the channel polling pipeline.
var (
	// PollCyclesTotal counts completed poll cycles by result.
	PollCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_cycles_total",
			Help: "Total number of poll cycles by result",
		},
		[]string{"result"}, // "success" or "error"
	)

	// PollCycleDuration measures the wall time of one full poll cycle.
	PollCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poll_cycle_duration_seconds",
			Help:    "Poll cycle duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// ChannelsPolledTotal counts channels processed by outcome.
	ChannelsPolledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channels_polled_total",
			Help: "Total number of channels polled by outcome",
		},
		[]string{"outcome"}, // "ok", "fetch_error", "store_error"
	)

	// ContentDiscoveredTotal counts newly discovered content items by kind.
	ContentDiscoveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_discovered_total",
			Help: "Total number of newly discovered content items by kind",
		},
		[]string{"kind"}, // "video" or "stream"
	)
)

// Notification metrics track Telegram delivery.
var (
	// NotificationsTotal counts delivery attempts by status.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of notification deliveries by status",
		},
		[]string{"status"}, // "sent", "rejected", "deferred"
	)

	// PendingMessagesGauge tracks messages waiting for redelivery.
	PendingMessagesGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pending_messages",
			Help: "Number of messages queued for redelivery",
		},
	)
)

// Scrape metrics track the YouTube fetch path.
var (
	// ScrapeRequestsTotal counts page fetches by status.
	ScrapeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_requests_total",
			Help: "Total number of page fetch attempts by status",
		},
		[]string{"status"}, // "ok", "http_error", "network_error"
	)

	// ScrapeDuration measures page fetch latency including retries.
	ScrapeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scrape_duration_seconds",
			Help:    "Page fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// RecordCycle records one finished poll cycle.
func RecordCycle(result string, seconds float64) {
	PollCyclesTotal.WithLabelValues(result).Inc()
	PollCycleDuration.Observe(seconds)
}
