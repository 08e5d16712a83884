package pipfuzz

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the fuzzer's Prometheus collectors.
type Metrics struct {
	// NodesTotal counts finished node tasks by result (ok, failed, empty).
	NodesTotal *prometheus.CounterVec

	// SinksTotal counts finished sinks by terminal state (solved, failed).
	SinksTotal *prometheus.CounterVec

	// SamplesTotal counts samples registered with solver contexts.
	SamplesTotal prometheus.Counter

	// BuildDuration tracks design variant build latency.
	BuildDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		NodesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pipfuzz_nodes_total",
			Help: "Node tasks finished, by result",
		}, []string{"result"}),
		SinksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pipfuzz_sinks_total",
			Help: "Sinks finished, by terminal state",
		}, []string{"result"}),
		SamplesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "pipfuzz_samples_total",
			Help: "Samples registered with solver contexts",
		}),
		BuildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipfuzz_build_duration_seconds",
			Help:    "Design variant build duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4min
		}),
	}
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
)

// DefaultMetrics returns collectors registered with the default registry.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}
