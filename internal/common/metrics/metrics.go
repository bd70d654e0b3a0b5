// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EscalationsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escalations_executed_total",
			Help: "Total number of escalation steps executed",
		},
		[]string{"channel"},
	)

	NotificationsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_closed_total",
			Help: "Total number of notifications closed after exhausting their chain",
		},
	)

	DispatchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_dispatch_total",
			Help: "Channel dispatch attempts by channel and delivery outcome",
		},
		[]string{"channel", "delivered"},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "overdue_sweep_duration_seconds",
			Help: "Duration of overdue sweeps in seconds",
		},
	)

	SweepEscalated = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "overdue_sweep_escalated",
			Help:    "Notifications escalated per sweep",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	SweepFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "overdue_sweep_failures_total",
			Help: "Total number of sweeps that ended in error",
		},
	)
)
