package metrics

import "time"

// RecordCompiledProblem records the outcome of compiling an experiment
// into a solver problem.
func (r *Registry) RecordCompiledProblem(positions, links, pruned, divisions int) {
	r.CompilerPositionsTotal.Add(float64(positions))
	r.CompilerLinksTotal.Add(float64(links))
	r.CompilerLinksPrunedTotal.Add(float64(pruned))
	r.CompilerDivisionHypotheses.Add(float64(divisions))
}

// RecordMissingData records a penalty value that was absent from the
// input and replaced with a default.
func (r *Registry) RecordMissingData(key string) {
	r.CompilerMissingDataTotal.WithLabelValues(key).Inc()
}

// RecordSolverRun records a solver invocation and its duration.
func (r *Registry) RecordSolverRun(method, status string, duration time.Duration) {
	r.SolverRunsTotal.WithLabelValues(method, status).Inc()
	r.SolverDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordLinksChosen records the number of links the solver selected.
func (r *Registry) RecordLinksChosen(count int) {
	r.SolverLinksChosen.Add(float64(count))
}

// RecordPassChanges records the number of changes a repair pass made.
func (r *Registry) RecordPassChanges(pass string, changes int) {
	r.PassChangesTotal.WithLabelValues(pass).Add(float64(changes))
}

// RecordGapsBridged records bridged track gaps.
func (r *Registry) RecordGapsBridged(count int) {
	r.GapsBridgedTotal.Add(float64(count))
}

// RecordOversegmentationsFixed records reconnected oversegmented fragments.
func (r *Registry) RecordOversegmentationsFixed(count int) {
	r.OversegmentationsFixedTotal.Add(float64(count))
}

// RecordPositionsRemoved records positions removed by a cleanup pass.
func (r *Registry) RecordPositionsRemoved(reason string, count int) {
	r.PositionsRemovedTotal.WithLabelValues(reason).Add(float64(count))
}

// RecordCheckerError records a position flagged with the given error code.
func (r *Registry) RecordCheckerError(code string) {
	r.CheckerErrorsTotal.WithLabelValues(code).Inc()
}

// RecordCheckerCounts records the totals of the most recent full check.
func (r *Registry) RecordCheckerCounts(warnings, unlinked int) {
	r.CheckerWarningCount.Set(float64(warnings))
	r.CheckerUnlinkedCount.Set(float64(unlinked))
}
