// Package metrics exposes Prometheus collectors for the queue runner and the
// daemon API. Collectors are registered on the default registry at init.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunnerStates lists the values the runner state gauge is labelled with.
var RunnerStates = []string{"idle", "processing", "paused"}

var (
	// Job Metrics
	JobsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytqueue_jobs_finished_total",
			Help: "Total number of jobs that left the running state",
		},
		[]string{"kind", "result"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ytqueue_job_duration_seconds",
			Help:    "Wall time of a job from claim to completion or failure",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~4.5 hours
		},
		[]string{"kind"},
	)

	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ytqueue_phase_duration_seconds",
			Help:    "Duration of each external operation phase",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		},
		[]string{"phase", "result"},
	)

	JobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ytqueue_jobs_in_progress",
			Help: "Number of jobs currently running",
		},
	)

	QueueItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ytqueue_queue_items",
			Help: "Number of queue items by status",
		},
		[]string{"status"},
	)

	RetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ytqueue_retries_total",
			Help: "Total number of failed items returned to pending",
		},
	)

	// Runner Metrics
	RunnerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ytqueue_runner_state",
			Help: "Current runner state (1 for the active state, 0 otherwise)",
		},
		[]string{"state"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytqueue_events_published_total",
			Help: "Total number of events published on the progress channel",
		},
		[]string{"type"},
	)

	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytqueue_http_requests_total",
			Help: "Total number of daemon API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ytqueue_http_request_duration_seconds",
			Help:    "Daemon API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytqueue_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordJobFinished records a job leaving the running state.
func RecordJobFinished(kind, result string, duration float64) {
	JobsFinishedTotal.WithLabelValues(kind, result).Inc()
	JobDuration.WithLabelValues(kind).Observe(duration)
}

// RecordPhase records one generate or upload call.
func RecordPhase(phase, result string, duration float64) {
	PhaseDuration.WithLabelValues(phase, result).Observe(duration)
}

// UpdateQueueItems sets the per-status gauges.
func UpdateQueueItems(pending, running, failed, completed int) {
	QueueItems.WithLabelValues("pending").Set(float64(pending))
	QueueItems.WithLabelValues("running").Set(float64(running))
	QueueItems.WithLabelValues("failed").Set(float64(failed))
	QueueItems.WithLabelValues("completed").Set(float64(completed))
	JobsInProgress.Set(float64(running))
}

// RecordRetries adds n retry transitions.
func RecordRetries(n int) {
	if n > 0 {
		RetriesTotal.Add(float64(n))
	}
}

// SetRunnerState marks state as the active runner state.
func SetRunnerState(state string) {
	for _, candidate := range RunnerStates {
		value := 0.0
		if candidate == state {
			value = 1
		}
		RunnerState.WithLabelValues(candidate).Set(value)
	}
}

// RecordEvent counts a published event.
func RecordEvent(eventType string) {
	EventsPublishedTotal.WithLabelValues(eventType).Inc()
}

// RecordHTTPRequest records a daemon API request.
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
