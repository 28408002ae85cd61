package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the compiler's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	compiles        *prometheus.CounterVec
	compileDuration prometheus.Histogram
	runs            *prometheus.CounterVec
	nodeExecutions  *prometheus.CounterVec
	nodeDuration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		compiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_compile_total",
				Help: "Total number of manifest compilations",
			},
			[]string{"result"},
		),
		compileDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lattice_compile_duration_seconds",
				Help:    "Duration of manifest compilations",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_run_total",
				Help: "Total number of compiled graph runs",
			},
			[]string{"result"},
		),
		nodeExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_node_executions_total",
				Help: "Total number of node step executions",
			},
			[]string{"node_type"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "lattice_node_duration_seconds",
				Help: "Duration of node step executions",
			},
			[]string{"node_type"},
		),
	}
	m.registry.MustRegister(m.compiles, m.compileDuration, m.runs, m.nodeExecutions, m.nodeDuration)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCompile records one compilation.
func (m *Metrics) ObserveCompile(success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.compiles.WithLabelValues(result(success)).Inc()
	m.compileDuration.Observe(elapsed.Seconds())
}

// ObserveRun records one graph run.
func (m *Metrics) ObserveRun(success bool) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result(success)).Inc()
}

// ObserveNode records one node step execution.
func (m *Metrics) ObserveNode(nodeType string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.nodeExecutions.WithLabelValues(nodeType).Inc()
	m.nodeDuration.WithLabelValues(nodeType).Observe(elapsed.Seconds())
}

func result(success bool) string {
	if success {
		return ResultSuccess
	}
	return ResultFailure
}
