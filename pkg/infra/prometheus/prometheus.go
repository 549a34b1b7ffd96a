package prometheus

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	// Latency buckets in milliseconds
	latencyBuckets = []float64{
		5, 10, 25,
		50, 100, 250,
		500, 1000, 2500,
		5000, 10000, 30000,
	}

	RequestTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotegate_requests_total",
			Help: "Total number of requests processed",
		},
		[]string{"route", "method", "status"},
	)

	RequestLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quotegate_latency_ms",
			Help:    "Request latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"route"},
	)

	UpstreamLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quotegate_upstream_latency_ms",
			Help:    "Quote API latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"operation"},
	)

	UpstreamErrors = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotegate_upstream_errors_total",
			Help: "Quote API calls that ended in a gateway error",
		},
		[]string{"route", "kind"},
	)

	Connections = promauto.With(registerer).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quotegate_connections",
			Help: "Number of requests in flight",
		},
		[]string{"state"},
	)

	// 0 closed, 1 half-open, 2 open
	CircuitBreakerState = promauto.With(registerer).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quotegate_circuit_breaker_state",
			Help: "Current state of the upstream circuit breaker",
		},
		[]string{"name"},
	)
)

type MetricsConfig struct {
	EnableLatency     bool // request latency histogram
	EnableUpstream    bool // upstream latency and error series
	EnableConnections bool // in-flight gauge
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		EnableLatency:     true,
		EnableUpstream:    true,
		EnableConnections: false,
	}
}

var (
	Config   = DefaultMetricsConfig()
	initOnce sync.Once
)

// Initialize sets the metrics config. Process and Go runtime collectors are
// registered on the first call only.
func Initialize(cfg MetricsConfig) {
	Config = cfg
	initOnce.Do(func() {
		registry.MustRegister(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewGoCollector(),
		)
	})
}

func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

func Gatherer() prometheus.Gatherer {
	return registry
}
