package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission metrics
var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Total feedback submissions by outcome",
		},
		[]string{"outcome"},
	)

	SubmissionWords = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "submission_words",
			Help:    "Words extracted per accepted submission",
			Buckets: []float64{0, 1, 2, 3, 4, 6, 8},
		},
	)
)

// Hub metrics
var (
	HubActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_active_sessions",
			Help: "Number of sessions with at least one connected client",
		},
	)

	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Total connected WebSocket clients across all sessions",
		},
	)

	HubSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_clients_evicted_total",
			Help: "Clients disconnected because their send buffer was full",
		},
	)

	HubPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hub_publish_duration_seconds",
			Help:    "Per-session event fan-out duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)
)

// Redis metrics
var (
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// Client pipeline metrics (viewer side)
var (
	FlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aggregate_flush_duration_seconds",
			Help:    "Batching engine flush duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01},
		},
	)

	LayoutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "layout_pass_duration_seconds",
			Help:    "Spiral layout pass duration in seconds",
			Buckets: []float64{.0001, .001, .005, .01, .05, .1},
		},
	)

	LayoutWordsOmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "layout_words_omitted_total",
			Help: "Words omitted from a layout pass after exhausting placement attempts",
		},
	)

	ChannelReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "channel_reconnects_total",
			Help: "Realtime channel reconnect attempts",
		},
	)

	ChannelResyncsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "channel_resyncs_total",
			Help: "Full snapshot resyncs performed after (re)connect",
		},
	)
)
