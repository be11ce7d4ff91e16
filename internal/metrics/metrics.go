package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Workflow metrics, exposed by `cram batch --metrics-addr`
var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cram_runs_total",
			Help: "Total number of analysis runs by approval status",
		},
		[]string{"approval_status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cram_run_duration_seconds",
			Help:    "Analysis run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17min
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cram_stage_duration_seconds",
			Help:    "Stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
		},
		[]string{"stage", "status"}, // status: completed/skipped/error
	)

	// LLM metrics
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cram_llm_requests_total",
			Help: "Total number of model calls",
		},
		[]string{"provider", "stage", "status"}, // status: ok/call_failed/parse_failed
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cram_llm_request_duration_seconds",
			Help:    "Model call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3min
		},
		[]string{"provider", "stage"},
	)

	// Retrieval metrics
	RetrievalModeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cram_retrieval_mode_total",
			Help: "Retrieval resolutions by mode",
		},
		[]string{"mode"},
	)

	RetrievalErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cram_retrieval_errors_total",
			Help: "Retrieval collaborator failures treated as zero hits",
		},
	)

	AuditWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cram_audit_write_failures_total",
			Help: "Audit records that could not be written",
		},
	)
)
