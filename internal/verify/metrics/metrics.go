package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsTotal tracks finished sessions per target and verdict
	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crashwatch_sessions_total",
			Help: "Total number of finished recovery sessions",
		},
		[]string{"target", "verdict"},
	)

	// SessionDuration tracks wall-clock session duration per verdict
	SessionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crashwatch_session_duration_seconds",
			Help:    "Recovery session duration in seconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"verdict"},
	)

	// ReconnectAttempts tracks reconnection probes per target and outcome
	ReconnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crashwatch_reconnect_attempts_total",
			Help: "Total number of reconnection probes",
		},
		[]string{"target", "outcome"},
	)

	// ScanErrors tracks scan calls that failed on connectivity
	ScanErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crashwatch_scan_errors_total",
			Help: "Total number of scans interrupted by lost connectivity",
		},
		[]string{"target"},
	)

	// InProgressBytes tracks the last observed in-progress marker size
	InProgressBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crashwatch_in_progress_bytes",
			Help: "Last observed size of the in-progress dump marker",
		},
		[]string{"target"},
	)

	// ActiveSessions tracks currently running sessions
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crashwatch_active_sessions",
			Help: "Number of recovery sessions currently running",
		},
	)

	// DiagnosticsCaptures tracks console transcript captures per tag
	DiagnosticsCaptures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crashwatch_diagnostics_captures_total",
			Help: "Total number of diagnostics capture attempts",
		},
		[]string{"target", "tag"},
	)
)
