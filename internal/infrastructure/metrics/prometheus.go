package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Transport labels
const (
	TransportGRPC = "grpc"
	TransportHTTP = "http"
)

// PrometheusExporter exports metrics to Prometheus format.
type PrometheusExporter struct {
	collector *Collector
	gatherer  prometheus.Gatherer

	cacheHitRate     prometheus.Gauge
	cacheKeys        prometheus.Gauge
	cacheMemoryBytes prometheus.Gauge
	requests         *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	errors           *prometheus.CounterVec
}

// NewPrometheusExporter registers the flock metrics on a fresh registry.
// Cache counters are read from the collector at scrape time.
func NewPrometheusExporter(collector *Collector) *PrometheusExporter {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	e := &PrometheusExporter{
		collector: collector,
		gatherer:  reg,
		cacheHitRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "flock_apikey_cache_hit_rate",
			Help: "Current API key cache hit rate (0.0 to 1.0)",
		}),
		cacheKeys: factory.NewGauge(prometheus.GaugeOpts{
			Name: "flock_apikey_cache_keys_current",
			Help: "Current number of keys in the API key cache",
		}),
		cacheMemoryBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "flock_apikey_cache_memory_bytes",
			Help: "Current memory usage of the API key cache in bytes",
		}),
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flock_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"transport", "method"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flock_request_duration_seconds",
				Help:    "Duration of API requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"transport", "method"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flock_errors_total",
				Help: "Total number of failed API requests",
			},
			[]string{"transport", "method"},
		),
	}

	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "flock_apikey_cache_hits_total",
		Help: "Total number of API key cache hits",
	}, func() float64 { return float64(collector.GetCacheMetrics().Hits) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "flock_apikey_cache_misses_total",
		Help: "Total number of API key cache misses",
	}, func() float64 { return float64(collector.GetCacheMetrics().Misses) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "flock_apikey_cache_evictions_total",
		Help: "Total number of API key cache evictions due to memory limits",
	}, func() float64 { return float64(collector.GetCacheMetrics().Evictions) })

	return e
}

// Update updates Gauge metrics from the collector.
// This should be called periodically (e.g., every 10 seconds).
func (e *PrometheusExporter) Update() {
	cacheMetrics := e.collector.GetCacheMetrics()
	e.cacheHitRate.Set(cacheMetrics.HitRate)
	e.cacheKeys.Set(float64(cacheMetrics.KeysCurrent))
	e.cacheMemoryBytes.Set(float64(cacheMetrics.MemoryBytes))
}

// RecordRequest records a request in Prometheus.
func (e *PrometheusExporter) RecordRequest(transport, method string) {
	e.requests.WithLabelValues(transport, method).Inc()
}

// RecordDuration records a duration in Prometheus.
func (e *PrometheusExporter) RecordDuration(transport, method string, durationSeconds float64) {
	e.duration.WithLabelValues(transport, method).Observe(durationSeconds)
}

// RecordError records an error in Prometheus.
func (e *PrometheusExporter) RecordError(transport, method string) {
	e.errors.WithLabelValues(transport, method).Inc()
}

// Handler serves the registry in the Prometheus text format
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.gatherer, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests and custom servers
func (e *PrometheusExporter) Gatherer() prometheus.Gatherer {
	return e.gatherer
}
