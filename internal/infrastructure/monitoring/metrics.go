package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status labels.
const (
	StatusSuccess  = "success"
	StatusFailure  = "failure"
	StatusRejected = "rejected"
)

// Metrics holds all Prometheus metrics. Each instance owns its registry, so
// several servers (and tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Registry metrics
	ComponentsRegistered prometheus.Gauge
	BundleLoads          *prometheus.CounterVec
	LoadDuration         prometheus.Histogram
	Instantiations       *prometheus.CounterVec

	// Transfer metrics
	Uploads           *prometheus.CounterVec
	Downloads         *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	startTime time.Time

	// Snapshot for the health endpoint
	snapshot MetricsSnapshot
	mu       sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON responses
type MetricsSnapshot struct {
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	Components    int64   `json:"components"`
	BundlesLoaded int64   `json:"bundles_loaded"`
	BundlesFailed int64   `json:"bundles_failed"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bundlehost_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bundlehost_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bundlehost_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000, 100000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bundlehost_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000, 100000000},
			},
			[]string{"method", "path"},
		),

		ComponentsRegistered: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bundlehost_components_registered",
				Help: "Number of component descriptors in the registry",
			},
		),
		BundleLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bundlehost_bundle_loads_total",
				Help: "Total number of bundle load attempts",
			},
			[]string{"status"},
		),
		LoadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bundlehost_bundle_load_duration_seconds",
				Help:    "Bundle load duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		Instantiations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bundlehost_component_instantiations_total",
				Help: "Total number of component constructions",
			},
			[]string{"scope", "status"},
		),

		Uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bundlehost_uploads_total",
				Help: "Total number of bundle uploads",
			},
			[]string{"status"},
		),
		Downloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bundlehost_downloads_total",
				Help: "Total number of bundle downloads",
			},
			[]string{"status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bundlehost_operation_duration_seconds",
				Help:    "Transfer operation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation", "status"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "bundlehost_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format for this collector only.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SetComponents sets the number of registered descriptors.
func (m *Metrics) SetComponents(count int) {
	if m == nil {
		return
	}
	m.ComponentsRegistered.Set(float64(count))
	m.mu.Lock()
	m.snapshot.Components = int64(count)
	m.mu.Unlock()
}

// RecordBundleLoad records one load attempt.
func (m *Metrics) RecordBundleLoad(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.BundleLoads.WithLabelValues(status).Inc()
	m.LoadDuration.Observe(duration.Seconds())

	m.mu.Lock()
	if status == StatusSuccess {
		m.snapshot.BundlesLoaded++
	} else {
		m.snapshot.BundlesFailed++
	}
	m.mu.Unlock()
}

// RecordInstantiation records one constructor invocation.
func (m *Metrics) RecordInstantiation(scope, status string) {
	if m == nil {
		return
	}
	m.Instantiations.WithLabelValues(scope, status).Inc()
}

// RecordUpload records the outcome of an upload.
func (m *Metrics) RecordUpload(status string) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(status).Inc()
}

// RecordDownload records the outcome of a download.
func (m *Metrics) RecordDownload(status string) {
	if m == nil {
		return
	}
	m.Downloads.WithLabelValues(status).Inc()
}

// Snapshot returns the current values tracked for JSON responses.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
