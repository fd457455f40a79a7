package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests by route template and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Application lifecycle
var (
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_status_transitions_total",
			Help: "Application status transitions",
		},
		[]string{"from", "to"},
	)

	VotesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_votes_total",
			Help: "Admin approval ledger writes by decision",
		},
		[]string{"decision"},
	)

	AcceptRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_accept_rejections_total",
			Help: "Accept attempts refused, by error code",
		},
		[]string{"reason"},
	)

	LifecyclePublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_lifecycle_publish_failures_total",
			Help: "Lifecycle events that could not be handed to the workflow engine",
		},
		[]string{"event"},
	)

	ProgressCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_progress_cache_lookups_total",
			Help: "Progress cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)

// Job workers
var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)
