// Package metrics provides Prometheus metrics for the forecast benchmark engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the benchmark service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Scoring outcomes
	pairsScored      prometheus.Counter
	pairsSkipped     *prometheus.CounterVec
	pairsMissing     prometheus.Counter
	recordOverwrites prometheus.Counter
	undefinedMetrics *prometheus.CounterVec
	scoringLatency   prometheus.Histogram

	// Run lifecycle
	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram
	lastRunUnix prometheus.Gauge

	// Ranking results
	bestScore     *prometheus.GaugeVec
	vendorAverage *prometheus.GaugeVec
	vendorCount   prometheus.Gauge
	datasetCount  prometheus.Gauge

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init rebuilds the global metrics on a fresh custom registry using opts.
// It must run before anything records metrics, typically once at startup.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "forecastbench",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.pairsScored = auto.NewCounter(m.counterOpts("pairs_scored_total",
		"Total number of vendor/dataset pairs scored"))
	m.pairsSkipped = auto.NewCounterVec(m.counterOpts("pairs_skipped_total",
		"Total number of vendor/dataset pairs skipped by failure kind"), []string{"reason"})
	m.pairsMissing = auto.NewCounter(m.counterOpts("pairs_missing_total",
		"Total number of configured vendor/dataset pairs with no source data"))
	m.recordOverwrites = auto.NewCounter(m.counterOpts("record_overwrites_total",
		"Total number of metric records replaced by a later result for the same pair"))
	m.undefinedMetrics = auto.NewCounterVec(m.counterOpts("undefined_metric_values_total",
		"Total number of metric values that were not applicable for a pair"), []string{"metric"})
	m.scoringLatency = auto.NewHistogram(m.histogramOpts("scoring_latency_milliseconds",
		"Histogram of per-pair scoring latency in milliseconds"))

	m.runsTotal = auto.NewCounterVec(m.counterOpts("runs_total",
		"Total number of benchmark runs by outcome"), []string{"status"})
	m.runDuration = auto.NewHistogram(m.histogramOpts("run_duration_milliseconds",
		"Benchmark run duration in milliseconds"))
	m.lastRunUnix = auto.NewGauge(m.gaugeOpts("last_run_unix",
		"Unix timestamp of the last completed benchmark run"))

	m.bestScore = auto.NewGaugeVec(m.gaugeOpts("dataset_best_score",
		"Best ranking-metric value per dataset"), []string{"dataset", "vendor"})
	m.vendorAverage = auto.NewGaugeVec(m.gaugeOpts("vendor_average_score",
		"Average ranking-metric value per vendor across its datasets"), []string{"vendor"})
	m.vendorCount = auto.NewGauge(m.gaugeOpts("vendors",
		"Number of vendors in the last benchmark result"))
	m.datasetCount = auto.NewGauge(m.gaugeOpts("datasets",
		"Number of datasets in the last benchmark result"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size",
		"Current size of the job queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity",
		"Maximum job queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio",
		"Queue utilization ratio (current size / capacity)"))
	m.queueEnqueueRate = auto.NewCounter(m.counterOpts("queue_enqueue_total",
		"Total number of jobs enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counterOpts("queue_dequeue_total",
		"Total number of jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total",
		"Total number of rejected enqueue attempts"))

	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count",
		"Number of active scoring workers"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds",
		"Worker job latency in milliseconds, including loading and alignment"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total",
		"Total number of jobs that ended in an error"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"Total number of HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Total number of errors by component"), []string{"component", "error_type"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total",
		"Total number of errors by endpoint"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes",
		"System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count",
		"Number of goroutines"))
}

// RecordPairScored increments the scored pairs counter.
func RecordPairScored() {
	globalManager.pairsScored.Inc()
}

// RecordPairSkipped increments the skipped pairs counter for a failure kind.
func RecordPairSkipped(reason string) {
	globalManager.pairsSkipped.WithLabelValues(reason).Inc()
}

// RecordPairMissing increments the missing pairs counter.
func RecordPairMissing() {
	globalManager.pairsMissing.Inc()
}

// RecordOverwrite increments the record overwrite counter.
func RecordOverwrite() {
	globalManager.recordOverwrites.Inc()
}

// RecordUndefinedMetric increments the undefined value counter for a metric name.
func RecordUndefinedMetric(metric string) {
	globalManager.undefinedMetrics.WithLabelValues(metric).Inc()
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordRun records a finished run with its outcome and duration.
func RecordRun(status string, durationMs float64, finishedUnix int64) {
	globalManager.runsTotal.WithLabelValues(status).Inc()
	globalManager.runDuration.Observe(durationMs)
	globalManager.lastRunUnix.Set(float64(finishedUnix))
}

// UpdateBestScore publishes the winning score for a dataset.
// Previous winners of the dataset are cleared first.
func UpdateBestScore(dataset, vendor string, score float64) {
	globalManager.bestScore.DeletePartialMatch(prometheus.Labels{"dataset": dataset})
	globalManager.bestScore.WithLabelValues(dataset, vendor).Set(score)
}

// UpdateVendorAverage publishes a vendor's average ranking score.
func UpdateVendorAverage(vendor string, avg float64) {
	globalManager.vendorAverage.WithLabelValues(vendor).Set(avg)
}

// UpdateVendorCount sets the number of vendors in the last result.
func UpdateVendorCount(count int) {
	globalManager.vendorCount.Set(float64(count))
}

// UpdateDatasetCount sets the number of datasets in the last result.
func UpdateDatasetCount(count int) {
	globalManager.datasetCount.Set(float64(count))
}

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
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
