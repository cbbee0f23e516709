// Package metrics provides Prometheus metrics for docvault.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docvault_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docvault_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Upload pipeline metrics
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docvault_uploads_total",
			Help: "Upload attempts by backend kind and outcome",
		},
		[]string{"backend", "outcome"},
	)

	uploadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docvault_upload_duration_seconds",
			Help:    "Time spent transferring a staged file to its backend",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"backend"},
	)

	uploadRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docvault_upload_retries_total",
			Help: "Upload attempts scheduled after a retryable failure",
		},
	)

	uploadSoftLimitTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docvault_upload_soft_limit_exceeded_total",
			Help: "Uploads still running after the soft time limit",
		},
	)

	uploadsReapedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docvault_uploads_reaped_total",
			Help: "Stale UPLOADING claims moved to FAILED",
		},
	)

	dispatchFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docvault_dispatch_failures_total",
			Help: "Upload jobs that could not be enqueued",
		},
	)

	openTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docvault_open_total",
			Help: "Open requests by backend kind and outcome reason",
		},
		[]string{"backend", "reason"},
	)

	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "docvault_queue_depth",
			Help: "Jobs waiting in the upload queue",
		},
		[]string{"queue"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordUpload records one pipeline attempt.
func RecordUpload(backend, outcome string, duration time.Duration) {
	uploadsTotal.WithLabelValues(backend, outcome).Inc()
	if duration > 0 {
		uploadDuration.WithLabelValues(backend).Observe(duration.Seconds())
	}
}

// RecordUploadRetry records a scheduled retry.
func RecordUploadRetry() {
	uploadRetriesTotal.Inc()
}

// RecordSoftLimitExceeded records an upload overrunning its soft limit.
func RecordSoftLimitExceeded() {
	uploadSoftLimitTotal.Inc()
}

// RecordReaped records stale claims failed by the reaper.
func RecordReaped(n int) {
	uploadsReapedTotal.Add(float64(n))
}

// RecordDispatchFailure records a job that never reached the queue.
func RecordDispatchFailure() {
	dispatchFailuresTotal.Inc()
}

// RecordOpen records the outcome of an open request.
func RecordOpen(backend, reason string) {
	openTotal.WithLabelValues(backend, reason).Inc()
}

// SetQueueDepth sets the current depth of a queue.
func SetQueueDepth(queue string, depth int64) {
	queueDepth.WithLabelValues(queue).Set(float64(depth))
}
