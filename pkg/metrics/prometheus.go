// Package metrics provides Prometheus metrics for the duel match server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every metric of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Match lifecycle
	sessionsCreated  prometheus.Counter
	playersJoined    prometheus.Counter
	runs             *prometheus.CounterVec
	runsRejected     *prometheus.CounterVec
	roundsConcluded  *prometheus.CounterVec
	matchesCompleted prometheus.Counter
	activeSessions   prometheus.Gauge
	sessionsSwept    prometheus.Counter
	eventsPublished  *prometheus.CounterVec

	// Executor
	executionLatency *prometheus.HistogramVec

	// Store
	storeLatency *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Workers
	workerActiveCount   prometheus.Gauge
	workerJobsPerSecond prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "duel",
		subsystem:        "match",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.sessionsCreated = m.counter("sessions_created_total", "Sessions created")
	m.playersJoined = m.counter("players_joined_total", "Second players seated")
	m.runs = m.counterVec("runs_total", "Judged runs by verdict", "verdict")
	m.runsRejected = m.counterVec("runs_rejected_total", "Runs refused before execution", "reason")
	m.roundsConcluded = m.counterVec("rounds_concluded_total", "Rounds concluded by outcome", "outcome")
	m.matchesCompleted = m.counter("matches_completed_total", "Matches that reached completed")
	m.activeSessions = m.gauge("sessions_active", "Sessions currently stored")
	m.sessionsSwept = m.counter("sessions_swept_total", "Idle sessions removed")
	m.eventsPublished = m.counterVec("events_published_total", "Match events published", "type")

	m.executionLatency = m.histogramVec("execution_latency_milliseconds", "Code execution latency",
		[]float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}, "verdict")
	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Session store operation latency",
		m.histogramBuckets, "op")

	m.queueSize = m.gauge("queue_size", "Jobs waiting for an executor")
	m.queueCapacity = m.gauge("queue_capacity", "Executor queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Executor queue fill ratio")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Jobs dequeued")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Jobs refused by the queue", "reason")

	m.workerActiveCount = m.gauge("worker_active_count", "Executor workers")
	m.workerJobsPerSecond = m.gauge("worker_jobs_per_second", "Jobs finished per second")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration",
		m.histogramBuckets, "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordSessionCreated increments the created sessions counter.
func RecordSessionCreated() { globalManager.sessionsCreated.Inc() }

// RecordPlayerJoined increments the joined players counter.
func RecordPlayerJoined() { globalManager.playersJoined.Inc() }

// RecordRun counts a judged run.
func RecordRun(verdict string) { globalManager.runs.WithLabelValues(verdict).Inc() }

// RecordRunRejected counts a run refused before execution.
func RecordRunRejected(reason string) { globalManager.runsRejected.WithLabelValues(reason).Inc() }

// RecordRoundConcluded counts a concluded round; outcome is won or draw.
func RecordRoundConcluded(outcome string) { globalManager.roundsConcluded.WithLabelValues(outcome).Inc() }

// RecordMatchCompleted increments the completed matches counter.
func RecordMatchCompleted() { globalManager.matchesCompleted.Inc() }

// UpdateActiveSessions sets the stored sessions gauge.
func UpdateActiveSessions(n int) { globalManager.activeSessions.Set(float64(n)) }

// RecordSessionsSwept adds n removed idle sessions.
func RecordSessionsSwept(n int) { globalManager.sessionsSwept.Add(float64(n)) }

// RecordEventPublished counts a published match event.
func RecordEventPublished(eventType string) {
	globalManager.eventsPublished.WithLabelValues(eventType).Inc()
}

// RecordExecution records one execution's latency in milliseconds.
func RecordExecution(verdict string, latencyMs float64) {
	globalManager.executionLatency.WithLabelValues(verdict).Observe(latencyMs)
}

// RecordStoreLatency records a store operation latency in milliseconds.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError counts a refused enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
	RecordErrorByComponent("queue", reason)
}

// UpdateWorkerActiveCount sets the number of workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// UpdateWorkerJobsPerSecond sets the recent job throughput.
func UpdateWorkerJobsPerSecond(rate float64) { globalManager.workerJobsPerSecond.Set(rate) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the registry the global metrics live on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
