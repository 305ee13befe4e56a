// Package metrics provides Prometheus metrics for the evaluation engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	metricPrefix     string
	registry         prometheus.Registerer

	// Ingestion pipeline
	evaluationsIngested  prometheus.Counter
	evaluationsDuplicate prometheus.Counter
	generationLatency    prometheus.Histogram
	generationErrors     prometheus.Counter

	// Store
	storeWriteLatency prometheus.Histogram
	storeQueryLatency prometheus.Histogram
	storeErrors       *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerJobsPerSecond     prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Snapshot archival
	archivalRuns     *prometheus.CounterVec
	archivalDuration prometheus.Histogram
	archivalLastUnix prometheus.Gauge
	snapshotOutcomes *prometheus.CounterVec
	politiciansTotal prometheus.Gauge

	// Read paths
	summaryRequests      *prometheus.CounterVec
	compareRequests      *prometheus.CounterVec
	gradeClassifications *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "politicianfinder",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.evaluationsIngested = m.counter("evaluations_ingested_total", "Total number of evaluations written to the store")
	m.evaluationsDuplicate = m.counter("evaluations_duplicate_total", "Total number of duplicate evaluation submissions")
	m.generationLatency = m.histogram("generation_latency_milliseconds", "Criterion score generation latency in milliseconds", m.histogramBuckets)
	m.generationErrors = m.counter("generation_errors_total", "Total number of criterion score generation failures")

	m.storeWriteLatency = m.histogram("store_write_latency_milliseconds", "Store write latency in milliseconds", m.histogramBuckets)
	m.storeQueryLatency = m.histogram("store_query_latency_milliseconds", "Store query latency in milliseconds", m.histogramBuckets)
	m.storeErrors = m.counterVec("store_errors_total", "Total number of store errors by operation", "operation")

	m.queueSize = m.gauge("queue_size", "Current size of the ingestion queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum ingestion queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Total number of jobs enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Total number of jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of rejected enqueues")

	m.workerCount = m.gauge("worker_count", "Configured number of ingestion workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of running ingestion workers")
	m.workerJobsPerSecond = m.gauge("worker_jobs_per_second", "Average jobs processed per second")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker job processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Total number of worker job failures")

	m.archivalRuns = m.counterVec("archival_runs_total", "Total number of snapshot archival runs by result", "result")
	m.archivalDuration = m.histogram("archival_duration_milliseconds", "Snapshot archival run duration in milliseconds",
		[]float64{10, 50, 100, 500, 1000, 5000, 15000, 60000, 300000})
	m.archivalLastUnix = m.gauge("archival_last_unix", "Unix timestamp of the last completed archival run")
	m.snapshotOutcomes = m.counterVec("snapshot_outcomes_total", "Per-politician snapshot outcomes", "outcome")
	m.politiciansTotal = m.gauge("politicians_total", "Number of politicians seen by the last archival run")

	m.summaryRequests = m.counterVec("summary_requests_total", "Evaluation summary requests by availability", "availability")
	m.compareRequests = m.counterVec("compare_requests_total", "Comparison requests by outcome", "outcome")
	m.gradeClassifications = m.counterVec("grade_classifications_total", "Grade classifications by tier code", "code")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Total number of errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of operations that resulted in errors", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordEvaluationIngested increments the ingested evaluations counter.
func RecordEvaluationIngested() {
	globalManager.evaluationsIngested.Inc()
}

// RecordEvaluationDuplicate increments the duplicate submissions counter.
func RecordEvaluationDuplicate() {
	globalManager.evaluationsDuplicate.Inc()
}

// RecordGenerationLatency records criterion generation latency in milliseconds.
func RecordGenerationLatency(latencyMs float64) {
	globalManager.generationLatency.Observe(latencyMs)
}

// RecordGenerationError increments the generation error counter.
func RecordGenerationError() {
	globalManager.generationErrors.Inc()
}

// RecordStoreWriteLatency records a store write latency.
func RecordStoreWriteLatency(latencyMs float64) {
	globalManager.storeWriteLatency.Observe(latencyMs)
}

// RecordStoreQueryLatency records a store query latency.
func RecordStoreQueryLatency(latencyMs float64) {
	globalManager.storeQueryLatency.Observe(latencyMs)
}

// RecordStoreError increments the store error counter for an operation.
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerJobsPerSecond sets the average jobs processed per second.
func UpdateWorkerJobsPerSecond(rate float64) {
	globalManager.workerJobsPerSecond.Set(rate)
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Archival Metrics Functions.

// RecordArchivalRun records a finished archival run with its result label
// ("completed", "truncated" or "failed") and duration.
func RecordArchivalRun(result string, durationMs float64) {
	if ValidateArchivalResult(result) != nil {
		result = ArchivalFailed
	}
	globalManager.archivalRuns.WithLabelValues(result).Inc()
	globalManager.archivalDuration.Observe(durationMs)
	if result != ArchivalFailed {
		globalManager.archivalLastUnix.Set(float64(time.Now().Unix()))
	}
}

// RecordSnapshotOutcome increments the per-politician outcome counter.
func RecordSnapshotOutcome(outcome string) {
	globalManager.snapshotOutcomes.WithLabelValues(outcome).Inc()
}

// UpdatePoliticiansTotal sets the number of politicians seen by archival.
func UpdatePoliticiansTotal(count int) {
	globalManager.politiciansTotal.Set(float64(count))
}

// Read Path Metrics Functions.

// RecordSummaryRequest counts a summary request by availability.
func RecordSummaryRequest(availability string) {
	globalManager.summaryRequests.WithLabelValues(availability).Inc()
}

// RecordCompareRequest counts a comparison request by outcome.
func RecordCompareRequest(outcome string) {
	globalManager.compareRequests.WithLabelValues(outcome).Inc()
}

// RecordGradeClassification counts a classification by tier code.
func RecordGradeClassification(code string) {
	globalManager.gradeClassifications.WithLabelValues(code).Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
