package consistency

import (
	"testing"

	"github.com/tdebruin/celltrack/pkg/lineage"
	"github.com/tdebruin/celltrack/pkg/logging"
	"github.com/tdebruin/celltrack/pkg/metrics"
)

func newTestChecker(limits WarningLimits) *Checker {
	return NewChecker(limits, logging.NewNopLogger(), metrics.NewRegistry())
}

// newTestExperiment creates an experiment spanning t=0..9 with one anchor
// position per time point, so "last time point" is well defined regardless of
// the scenario under test.
func newTestExperiment() *lineage.Experiment {
	exp := lineage.NewExperiment("test")
	exp.Resolution = lineage.Resolution{
		PixelSizeXUm:       1,
		PixelSizeYUm:       1,
		PixelSizeZUm:       1,
		TimePointIntervalM: 12,
	}
	for t := 0; t < 10; t++ {
		exp.AddPosition(lineage.Position{X: 100, Y: 100, Z: 0, T: t})
	}
	return exp
}

func addSelected(t *testing.T, exp *lineage.Experiment, p1, p2 lineage.Position) {
	t.Helper()
	exp.AddPosition(p1)
	exp.AddPosition(p2)
	if err := exp.Links.AddLink(p1, p2); err != nil {
		t.Fatalf("AddLink(%v, %v): %v", p1, p2, err)
	}
	if err := exp.Links.SelectLink(p1, p2); err != nil {
		t.Fatalf("SelectLink(%v, %v): %v", p1, p2, err)
	}
}

// importSelected bypasses the degree checks, for building deliberately broken
// lineages.
func importSelected(t *testing.T, exp *lineage.Experiment, p1, p2 lineage.Position) {
	t.Helper()
	exp.AddPosition(p1)
	exp.AddPosition(p2)
	if err := exp.Links.ImportSelectedLink(p1, p2); err != nil {
		t.Fatalf("ImportSelectedLink(%v, %v): %v", p1, p2, err)
	}
}

func TestTooManyDaughtersBeatsOtherChecks(t *testing.T) {
	exp := newTestExperiment()
	checker := newTestChecker(DefaultWarningLimits())

	mother := lineage.Position{X: 10, Y: 10, T: 4}
	past := lineage.Position{X: 10, Y: 10, T: 3}
	addSelected(t, exp, past, mother)
	for i := 0; i < 3; i++ {
		importSelected(t, exp, mother, lineage.Position{X: float64(8 + 2*i), Y: 10, T: 5})
	}
	// A suspicious incoming link as well; the topology violation must win.
	exp.LinkData.Set(past, mother, lineage.DataMarginalProbability, 0.01)

	if got := checker.CalculateError(exp, mother); got != ErrorTooManyDaughterCells {
		t.Errorf("CalculateError = %q, want %q", got, ErrorTooManyDaughterCells)
	}
	if ErrorTooManyDaughterCells.Severity() != SeverityError {
		t.Errorf("expected a hard error severity")
	}
}

func TestCellMergeNeedsTwoPasts(t *testing.T) {
	exp := newTestExperiment()
	checker := newTestChecker(DefaultWarningLimits())

	target := lineage.Position{X: 10, Y: 10, T: 5}
	pastA := lineage.Position{X: 9, Y: 10, T: 4}
	pastB := lineage.Position{X: 11, Y: 10, T: 4}
	next := lineage.Position{X: 10, Y: 10, T: 6}
	addSelected(t, exp, pastA, target)
	// A continuing track, so only the number of predecessors is in question.
	addSelected(t, exp, target, next)
	if got := checker.CalculateError(exp, target); got == ErrorCellMerge {
		t.Fatalf("single past flagged as merge")
	}

	importSelected(t, exp, pastB, target)
	if got := checker.CalculateError(exp, target); got != ErrorCellMerge {
		t.Errorf("CalculateError = %q, want %q", got, ErrorCellMerge)
	}
}

func TestTrackEndNeedsMissingMarker(t *testing.T) {
	exp := newTestExperiment()
	checker := newTestChecker(DefaultWarningLimits())

	last := lineage.Position{X: 10, Y: 10, T: 5}
	addSelected(t, exp, lineage.Position{X: 10, Y: 10, T: 4}, last)

	if got := checker.CalculateError(exp, last); got != ErrorTrackEnd {
		t.Errorf("CalculateError = %q, want %q", got, ErrorTrackEnd)
	}

	exp.PositionData.SetTrackEndMarker(last, lineage.EndMarkerDeath)
	if got := checker.CalculateError(exp, last); got != ErrorNone {
		t.Errorf("CalculateError with death marker = %q, want none", got)
	}
}

func TestNoPastPositionRespectsStartMarker(t *testing.T) {
	exp := newTestExperiment()
	checker := newTestChecker(DefaultWarningLimits())

	start := lineage.Position{X: 10, Y: 10, T: 5}
	addSelected(t, exp, start, lineage.Position{X: 10, Y: 10, T: 6})

	if got := checker.CalculateError(exp, start); got != ErrorNoPastPosition {
		t.Errorf("CalculateError = %q, want %q", got, ErrorNoPastPosition)
	}

	exp.PositionData.SetTrackStartMarker(start, lineage.StartMarkerGoesIntoView)
	if got := checker.CalculateError(exp, start); got != ErrorNone {
		t.Errorf("CalculateError with start marker = %q, want none", got)
	}
}

func TestShortCellCycle(t *testing.T) {
	exp := newTestExperiment()
	limits := DefaultWarningLimits()
	checker := newTestChecker(limits)

	// First division at t=1, second at t=3. Two frames of 12 minutes is far
	// below the 10 hour minimum.
	grandmother := lineage.Position{X: 10, Y: 10, T: 0}
	d1 := lineage.Position{X: 8, Y: 10, T: 1}
	d2 := lineage.Position{X: 12, Y: 10, T: 1}
	addSelected(t, exp, grandmother, d1)
	addSelected(t, exp, grandmother, d2)

	mother := lineage.Position{X: 8, Y: 10, T: 3}
	addSelected(t, exp, d1, lineage.Position{X: 8, Y: 10, T: 2})
	addSelected(t, exp, lineage.Position{X: 8, Y: 10, T: 2}, mother)
	addSelected(t, exp, mother, lineage.Position{X: 7, Y: 10, T: 4})
	addSelected(t, exp, mother, lineage.Position{X: 9, Y: 10, T: 4})
	exp.PositionData.Set(mother, lineage.DataDivisionProbability, 0.9)

	if got := checker.CalculateError(exp, mother); got != ErrorShortCellCycle {
		t.Errorf("CalculateError = %q, want %q", got, ErrorShortCellCycle)
	}

	// The grandmother's own birth is unknown, so its cycle length cannot be
	// judged.
	exp.PositionData.Set(grandmother, lineage.DataDivisionProbability, 0.9)
	exp.PositionData.SetTrackStartMarker(grandmother, lineage.StartMarkerGoesIntoView)
	if got := checker.CalculateError(exp, grandmother); got != ErrorNone {
		t.Errorf("CalculateError(grandmother) = %q, want none", got)
	}
}

func TestLowDivisionScore(t *testing.T) {
	exp := newTestExperiment()
	checker := newTestChecker(DefaultWarningLimits())

	mother := lineage.Position{X: 10, Y: 10, T: 4}
	addSelected(t, exp, lineage.Position{X: 10, Y: 10, T: 3}, mother)
	addSelected(t, exp, mother, lineage.Position{X: 8, Y: 10, T: 5})
	addSelected(t, exp, mother, lineage.Position{X: 12, Y: 10, T: 5})
	exp.PositionData.Set(mother, lineage.DataDivisionProbability, 0.05)

	if got := checker.CalculateError(exp, mother); got != ErrorLowDivisionScore {
		t.Errorf("CalculateError = %q, want %q", got, ErrorLowDivisionScore)
	}
}

func TestMissedDivision(t *testing.T) {
	exp := newTestExperiment()
	checker := newTestChecker(DefaultWarningLimits())

	p := lineage.Position{X: 10, Y: 10, T: 4}
	next := lineage.Position{X: 10, Y: 10, T: 5}
	addSelected(t, exp, lineage.Position{X: 10, Y: 10, T: 3}, p)
	addSelected(t, exp, p, next)
	addSelected(t, exp, next, lineage.Position{X: 10, Y: 10, T: 6})
	exp.PositionData.Set(p, lineage.DataDivisionProbability, 0.95)

	if got := checker.CalculateError(exp, p); got != ErrorMissedDivision {
		t.Errorf("CalculateError = %q, want %q", got, ErrorMissedDivision)
	}
}

func TestMissedDivisionSuppressedByImminentDivision(t *testing.T) {
	exp := newTestExperiment()
	checker := newTestChecker(DefaultWarningLimits())

	p := lineage.Position{X: 10, Y: 10, T: 4}
	next := lineage.Position{X: 10, Y: 10, T: 5}
	addSelected(t, exp, lineage.Position{X: 10, Y: 10, T: 3}, p)
	addSelected(t, exp, p, next)
	addSelected(t, exp, next, lineage.Position{X: 8, Y: 10, T: 6})
	addSelected(t, exp, next, lineage.Position{X: 12, Y: 10, T: 6})
	exp.PositionData.Set(p, lineage.DataDivisionProbability, 0.95)

	if got := checker.CalculateError(exp, p); got != ErrorNone {
		t.Errorf("CalculateError = %q, want none when the cell divides one frame later", got)
	}
}

func TestMovedTooFast(t *testing.T) {
	exp := newTestExperiment()
	limits := DefaultWarningLimits()
	checker := newTestChecker(limits)

	past := lineage.Position{X: 10, Y: 10, T: 4}
	// 40 micrometers in one 12 minute frame is 3.3 um/min, above the limit.
	p := lineage.Position{X: 50, Y: 10, T: 5}
	addSelected(t, exp, lineage.Position{X: 10, Y: 10, T: 3}, past)
	addSelected(t, exp, past, p)
	addSelected(t, exp, p, lineage.Position{X: 50, Y: 10, T: 6})

	if got := checker.CalculateError(exp, p); got != ErrorMovedTooFast {
		t.Errorf("CalculateError = %q, want %q", got, ErrorMovedTooFast)
	}

	// Cells launched into their death are allowed to move fast.
	deadEnd := lineage.Position{X: 50, Y: 10, T: 6}
	exp.Links.DeselectLink(p, deadEnd)
	exp.Links.RemoveLink(p, deadEnd)
	exp.Positions.Remove(deadEnd)
	exp.PositionData.SetTrackEndMarker(p, lineage.EndMarkerDeath)
	if got := checker.CalculateError(exp, p); got != ErrorNone {
		t.Errorf("CalculateError of dying cell = %q, want none", got)
	}
}

func TestLowLinkScoreMarginalBeatsSpeed(t *testing.T) {
	exp := newTestExperiment()
	checker := newTestChecker(DefaultWarningLimits())

	past := lineage.Position{X: 10, Y: 10, T: 4}
	p := lineage.Position{X: 50, Y: 10, T: 5}
	addSelected(t, exp, lineage.Position{X: 10, Y: 10, T: 3}, past)
	addSelected(t, exp, past, p)
	addSelected(t, exp, p, lineage.Position{X: 50, Y: 10, T: 6})
	exp.LinkData.Set(past, p, lineage.DataMarginalProbability, 0.1)

	// Both the marginal probability and the speed are bad; the marginal
	// probability is checked first.
	if got := checker.CalculateError(exp, p); got != ErrorLowLinkScore {
		t.Errorf("CalculateError = %q, want %q", got, ErrorLowLinkScore)
	}
}

func TestLowLinkScoreFromRawProbability(t *testing.T) {
	exp := newTestExperiment()
	checker := newTestChecker(DefaultWarningLimits())

	past := lineage.Position{X: 10, Y: 10, T: 4}
	p := lineage.Position{X: 11, Y: 10, T: 5}
	addSelected(t, exp, lineage.Position{X: 10, Y: 10, T: 3}, past)
	addSelected(t, exp, past, p)
	addSelected(t, exp, p, lineage.Position{X: 11, Y: 10, T: 6})
	exp.LinkData.Set(past, p, lineage.DataLinkProbability, 0.01)

	if got := checker.CalculateError(exp, p); got != ErrorLowLinkScore {
		t.Errorf("CalculateError = %q, want %q", got, ErrorLowLinkScore)
	}
}

func TestUncertainPositionWinsOverEverything(t *testing.T) {
	exp := newTestExperiment()
	checker := newTestChecker(DefaultWarningLimits())

	target := lineage.Position{X: 10, Y: 10, T: 5}
	importSelected(t, exp, lineage.Position{X: 9, Y: 10, T: 4}, target)
	importSelected(t, exp, lineage.Position{X: 11, Y: 10, T: 4}, target)
	exp.PositionData.SetUncertain(target, true)

	if got := checker.CalculateError(exp, target); got != ErrorUncertainPosition {
		t.Errorf("CalculateError = %q, want %q", got, ErrorUncertainPosition)
	}
}

func TestExcludedErrorsAreSuppressed(t *testing.T) {
	exp := newTestExperiment()
	limits := DefaultWarningLimits()
	limits.ExcludedErrors = []ErrorCode{ErrorTrackEnd}
	checker := newTestChecker(limits)

	last := lineage.Position{X: 10, Y: 10, T: 5}
	addSelected(t, exp, lineage.Position{X: 10, Y: 10, T: 4}, last)

	if got := checker.CalculateError(exp, last); got != ErrorNone {
		t.Errorf("CalculateError = %q, want suppressed", got)
	}
}

func TestFindErrorsCountsAndMarks(t *testing.T) {
	exp := newTestExperiment()
	checker := newTestChecker(DefaultWarningLimits())

	// One clean chain over the whole experiment.
	for tp := 0; tp < 9; tp++ {
		addSelected(t, exp,
			lineage.Position{X: 10, Y: 10, T: tp},
			lineage.Position{X: 10, Y: 10, T: tp + 1})
	}
	// One track ending without explanation at t=5.
	broken := lineage.Position{X: 30, Y: 30, T: 5}
	addSelected(t, exp, lineage.Position{X: 30, Y: 30, T: 4}, broken)
	exp.PositionData.SetTrackStartMarker(lineage.Position{X: 30, Y: 30, T: 4}, lineage.StartMarkerGoesIntoView)

	// An anchor with a stale marker from an earlier pass; it has no links, so
	// it must be counted as unlinked and its marker cleared.
	stale := lineage.Position{X: 100, Y: 100, Z: 0, T: 0}
	exp.PositionData.SetErrorMarker(stale, string(ErrorTrackEnd))

	warnings, unlinked := checker.FindErrors(exp)
	if warnings != 1 {
		t.Errorf("warnings = %d, want 1", warnings)
	}
	// The ten anchor positions never got links.
	if unlinked != 10 {
		t.Errorf("unlinked = %d, want 10", unlinked)
	}
	if got := exp.PositionData.ErrorMarker(broken); got != string(ErrorTrackEnd) {
		t.Errorf("error marker = %q, want %q", got, ErrorTrackEnd)
	}
	if got := exp.PositionData.ErrorMarker(lineage.Position{X: 10, Y: 10, T: 5}); got != "" {
		t.Errorf("clean position has marker %q", got)
	}
	if got := exp.PositionData.ErrorMarker(stale); got != "" {
		t.Errorf("unlinked position kept stale marker %q", got)
	}
}

func TestFindErrorsInPositionsRechecksNeighbors(t *testing.T) {
	exp := newTestExperiment()
	checker := newTestChecker(DefaultWarningLimits())

	a := lineage.Position{X: 10, Y: 10, T: 4}
	b := lineage.Position{X: 10, Y: 10, T: 5}
	addSelected(t, exp, lineage.Position{X: 10, Y: 10, T: 3}, a)
	addSelected(t, exp, a, b)

	checker.FindErrorsInPositions(exp, a)
	if got := exp.PositionData.ErrorMarker(b); got != string(ErrorTrackEnd) {
		t.Errorf("neighbor marker = %q, want %q", got, ErrorTrackEnd)
	}
}

func TestCheckDividingCells(t *testing.T) {
	exp := newTestExperiment()
	checker := newTestChecker(DefaultWarningLimits())

	grandmother := lineage.Position{X: 10, Y: 10, T: 0}
	d1 := lineage.Position{X: 8, Y: 10, T: 1}
	addSelected(t, exp, grandmother, d1)
	addSelected(t, exp, grandmother, lineage.Position{X: 12, Y: 10, T: 1})

	mother := lineage.Position{X: 8, Y: 10, T: 2}
	addSelected(t, exp, d1, mother)
	addSelected(t, exp, mother, lineage.Position{X: 7, Y: 10, T: 3})
	addSelected(t, exp, mother, lineage.Position{X: 9, Y: 10, T: 3})

	if flagged := checker.CheckDividingCells(exp); flagged != 1 {
		t.Fatalf("flagged = %d, want 1", flagged)
	}
	if got := exp.PositionData.ErrorMarker(mother); got != string(ErrorShortCellCycle) {
		t.Errorf("mother marker = %q, want %q", got, ErrorShortCellCycle)
	}
}
