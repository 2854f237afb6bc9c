package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "sales_dashboard"

// Metrics holds the Prometheus collectors for the dashboard. Each instance
// owns its registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	CacheLookups   *prometheus.CounterVec
	DatasetLoads   *prometheus.CounterVec
	LoadDuration   prometheus.Histogram
	DatasetRecords prometheus.Gauge
	Invalidations  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "dataset",
			Name:      "cache_lookups_total",
			Help:      "Dataset cache lookups by result (hit, miss).",
		}, []string{"result"}),
		DatasetLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "dataset",
			Name:      "loads_total",
			Help:      "Dataset file loads by status (success, error).",
		}, []string{"status"}),
		LoadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "dataset",
			Name:      "load_duration_seconds",
			Help:      "Time spent reading and parsing the data file.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		DatasetRecords: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "dataset",
			Name:      "records",
			Help:      "Number of records in the currently cached dataset.",
		}),
		Invalidations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "dataset",
			Name:      "invalidations_total",
			Help:      "Explicit cache invalidations by reason (manual, file_change).",
		}, []string{"reason"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
