// Package metrics provides Prometheus metrics for the palantir dashboard.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the dashboard.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Dashboard HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Upstream palantir server
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	upstreamErrors   *prometheus.CounterVec

	// Operator actions (resolve, toggle, run)
	viewActions *prometheus.CounterVec

	// Live alert feed
	activeAlerts      prometheus.Gauge
	feedSubscribers   prometheus.Gauge
	feedPublished     prometheus.Counter
	feedDropped       prometheus.Counter
	feedPollErrors    prometheus.Counter
	feedQueueCapacity prometheus.Gauge

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

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
		namespace:        "palantir",
		subsystem:        "dashboard",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
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

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_requests_total"),
			Help:        "Total number of dashboard HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_request_duration_milliseconds"),
			Help:        "Dashboard HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.upstreamRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "upstream",
			Name:        m.name("requests_total"),
			Help:        "Requests sent to the palantir server by route name and status",
			ConstLabels: labels,
		},
		[]string{"route", "status_code"},
	)

	m.upstreamLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   "upstream",
			Name:        m.name("request_duration_milliseconds"),
			Help:        "Palantir server round trip time in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"route"},
	)

	m.upstreamErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "upstream",
			Name:        m.name("errors_total"),
			Help:        "Failed palantir server requests by route and error kind",
			ConstLabels: labels,
		},
		[]string{"route", "kind"},
	)

	m.viewActions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("actions_total"),
			Help:        "Operator actions by view and action",
			ConstLabels: labels,
		},
		[]string{"view", "action"},
	)

	m.activeAlerts = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "feed",
		Name:        m.name("active_alerts"),
		Help:        "Number of active alerts in the latest snapshot",
		ConstLabels: labels,
	})

	m.feedSubscribers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "feed",
		Name:        m.name("subscribers"),
		Help:        "Connected live feed subscribers",
		ConstLabels: labels,
	})

	m.feedPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "feed",
		Name:        m.name("snapshots_published_total"),
		Help:        "Alert snapshots delivered to subscriber queues",
		ConstLabels: labels,
	})

	m.feedDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "feed",
		Name:        m.name("snapshots_dropped_total"),
		Help:        "Alert snapshots dropped because a subscriber queue was full or closed",
		ConstLabels: labels,
	})

	m.feedPollErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "feed",
		Name:        m.name("poll_errors_total"),
		Help:        "Failed alert polls",
		ConstLabels: labels,
	})

	m.feedQueueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "feed",
		Name:        m.name("queue_capacity"),
		Help:        "Capacity of each subscriber queue",
		ConstLabels: labels,
	})

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_component_total"),
			Help:        "Errors by component and type",
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_type_total"),
			Help:        "Errors by type and severity",
			ConstLabels: labels,
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_endpoint_total"),
			Help:        "Errors by endpoint, method and type",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        m.name("memory_usage_bytes"),
		Help:        "Heap bytes allocated",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        m.name("goroutines"),
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        m.name("gc_pause_milliseconds"),
		Help:        "Average GC pause in milliseconds",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50},
		ConstLabels: labels,
	})
}

// Enabled reports whether recording is on for this manager.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is how often gauges fed by background updaters refresh.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Dashboard HTTP Functions.

// RecordHTTPRequest increments the request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records a request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Upstream Functions.

// RecordUpstreamRequest counts a completed call to the palantir server.
func RecordUpstreamRequest(route, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.upstreamRequests.WithLabelValues(route, statusCode).Inc()
}

// RecordUpstreamLatency records the round trip time of a call in milliseconds.
func RecordUpstreamLatency(route string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.upstreamLatency.WithLabelValues(route).Observe(latencyMs)
}

// RecordUpstreamError counts a failed call. kind is one of request, status, decode, not_found.
func RecordUpstreamError(route, kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.upstreamErrors.WithLabelValues(route, kind).Inc()
}

// RecordViewAction counts an operator action.
func RecordViewAction(view, action string) {
	if !globalManager.enabled {
		return
	}
	globalManager.viewActions.WithLabelValues(view, action).Inc()
}

// Feed Functions.

// UpdateActiveAlerts sets the alert count of the latest snapshot.
func UpdateActiveAlerts(count int) {
	globalManager.activeAlerts.Set(float64(count))
}

// UpdateFeedSubscribers sets the number of connected subscribers.
func UpdateFeedSubscribers(count int) {
	globalManager.feedSubscribers.Set(float64(count))
}

// UpdateFeedQueueCapacity sets the per-subscriber queue capacity.
func UpdateFeedQueueCapacity(capacity int) {
	globalManager.feedQueueCapacity.Set(float64(capacity))
}

// RecordFeedPublished counts a snapshot handed to a subscriber queue.
func RecordFeedPublished() {
	globalManager.feedPublished.Inc()
}

// RecordFeedDropped counts a snapshot a subscriber queue refused.
func RecordFeedDropped() {
	globalManager.feedDropped.Inc()
}

// RecordFeedPollError counts a failed alert poll.
func RecordFeedPollError() {
	globalManager.feedPollErrors.Inc()
}

// Error Functions.

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

// System Functions.

// UpdateSystemMemoryUsage sets the heap usage in bytes.
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
