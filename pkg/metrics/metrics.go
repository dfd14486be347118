package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// AuthzDecisions counts authorization decisions and their outcome (allow|deny|not_found|error).
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskflow_authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"action", "result"},
	)

	// RemindersSent tracks due-task reminder emails delivered by the background job.
	RemindersSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taskflow_reminders_sent_total",
			Help: "Number of due-task reminder emails sent",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskflow_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
