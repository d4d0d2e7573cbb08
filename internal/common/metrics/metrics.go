// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AgentInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasoncare_agent_invocations_total",
			Help: "Total number of agent invocations by outcome",
		},
		[]string{"agent", "status", "error_code"},
	)

	AgentInvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reasoncare_agent_invocation_duration_seconds",
			Help:    "Duration of a single agent invocation in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"agent"},
	)

	AgentInvocationsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reasoncare_agent_invocations_active",
			Help: "Number of in-flight agent invocations",
		},
		[]string{"agent"},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasoncare_requests_total",
			Help: "Total number of routed requests by type and status code",
		},
		[]string{"request_type", "status_code"},
	)

	DiagnosisConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reasoncare_diagnosis_confidence",
			Help:    "Aggregate confidence of completed diagnoses",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	DegradedDiagnoses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reasoncare_diagnoses_degraded_total",
			Help: "Diagnoses where at least one specialist failed",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasoncare_generation_cache_lookups_total",
			Help: "Generation cache lookups by result",
		},
		[]string{"result"},
	)

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
)
