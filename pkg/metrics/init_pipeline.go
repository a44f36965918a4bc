package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCompilerMetrics() {
	r.CompilerPositionsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "celltrack_compiler_positions_total",
			Help: "Total number of positions compiled into segmentation hypotheses",
		},
	)

	r.CompilerLinksTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "celltrack_compiler_links_total",
			Help: "Total number of candidate links examined by the compiler",
		},
	)

	r.CompilerLinksPrunedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "celltrack_compiler_links_pruned_total",
			Help: "Total number of candidate links pruned before solving",
		},
	)

	r.CompilerDivisionHypotheses = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "celltrack_compiler_division_hypotheses_total",
			Help: "Total number of positions that qualified as plausible divisions",
		},
	)

	r.CompilerMissingDataTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "celltrack_compiler_missing_data_total",
			Help: "Total number of missing penalty values recovered with a default",
		},
		[]string{"key"},
	)
}

func (r *Registry) initSolverMetrics() {
	r.SolverRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "celltrack_solver_runs_total",
			Help: "Total number of solver invocations",
		},
		[]string{"method", "status"}, // status: ok, error
	)

	r.SolverDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "celltrack_solver_duration_seconds",
			Help:    "Duration of solver invocations in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1.0, 5.0, 30.0, 120.0, 600.0},
		},
		[]string{"method"},
	)

	r.SolverLinksChosen = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "celltrack_solver_links_chosen_total",
			Help: "Total number of links selected by the solver",
		},
	)
}

func (r *Registry) initPostprocessMetrics() {
	r.PassChangesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "celltrack_postprocess_pass_changes_total",
			Help: "Total number of lineage changes made, per repair pass",
		},
		[]string{"pass"},
	)

	r.GapsBridgedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "celltrack_postprocess_gaps_bridged_total",
			Help: "Total number of track gaps bridged",
		},
	)

	r.OversegmentationsFixedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "celltrack_postprocess_oversegmentations_fixed_total",
			Help: "Total number of oversegmented track fragments reconnected",
		},
	)

	r.PositionsRemovedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "celltrack_postprocess_positions_removed_total",
			Help: "Total number of positions removed, per reason",
		},
		[]string{"reason"}, // short_track, isolated, too_deep, margin, spur, oversegmentation
	)
}

func (r *Registry) initCheckerMetrics() {
	r.CheckerErrorsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "celltrack_checker_errors_total",
			Help: "Total number of positions flagged, per error code",
		},
		[]string{"code"},
	)

	r.CheckerWarningCount = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "celltrack_checker_warning_count",
			Help: "Flagged positions with links in the most recent check",
		},
	)

	r.CheckerUnlinkedCount = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "celltrack_checker_unlinked_count",
			Help: "Flagged positions without any links in the most recent check",
		},
	)
}
