package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the tracking pipeline
type Registry struct {
	// Compiler Metrics
	CompilerPositionsTotal      prometheus.Counter
	CompilerLinksTotal          prometheus.Counter
	CompilerLinksPrunedTotal    prometheus.Counter
	CompilerDivisionHypotheses  prometheus.Counter
	CompilerMissingDataTotal    *prometheus.CounterVec

	// Solver Metrics
	SolverRunsTotal    *prometheus.CounterVec
	SolverDuration     *prometheus.HistogramVec
	SolverLinksChosen  prometheus.Counter

	// Post-processing Metrics
	PassChangesTotal           *prometheus.CounterVec
	GapsBridgedTotal           prometheus.Counter
	OversegmentationsFixedTotal prometheus.Counter
	PositionsRemovedTotal      *prometheus.CounterVec

	// Consistency Metrics
	CheckerErrorsTotal    *prometheus.CounterVec
	CheckerWarningCount   prometheus.Gauge
	CheckerUnlinkedCount  prometheus.Gauge

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initCompilerMetrics()
	r.initSolverMetrics()
	r.initPostprocessMetrics()
	r.initCheckerMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
