package linker

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tdebruin/celltrack/pkg/lineage"
	"github.com/tdebruin/celltrack/pkg/logging"
	"github.com/tdebruin/celltrack/pkg/metrics"
)

func newTestExperiment(t *testing.T) *lineage.Experiment {
	t.Helper()
	exp := lineage.NewExperiment("test")
	exp.Resolution = lineage.Resolution{
		PixelSizeXUm: 1, PixelSizeYUm: 1, PixelSizeZUm: 1, TimePointIntervalM: 12,
	}
	return exp
}

func addCandidateLink(t *testing.T, exp *lineage.Experiment, from, to lineage.Position, penalty float64) {
	t.Helper()
	exp.AddPosition(from)
	exp.AddPosition(to)
	if err := exp.Links.AddLink(from, to); err != nil {
		t.Fatalf("AddLink(%v, %v): %v", from, to, err)
	}
	exp.LinkData.Set(from, to, lineage.DataLinkPenalty, penalty)
}

func TestCompileSimpleDivision(t *testing.T) {
	exp := newTestExperiment(t)
	mother := lineage.Position{X: 10, Y: 10, Z: 5, T: 0}
	daughter1 := lineage.Position{X: 8, Y: 10, Z: 5, T: 1}
	daughter2 := lineage.Position{X: 12, Y: 10, Z: 5, T: 1}

	addCandidateLink(t, exp, mother, daughter1, 0.5)
	addCandidateLink(t, exp, mother, daughter2, 0.6)

	exp.PositionData.Set(mother, lineage.DataDivisionPenalty, 0.5)
	exp.PositionData.Set(mother, lineage.DataDisappearancePenalty, 5)
	for _, d := range []lineage.Position{daughter1, daughter2} {
		exp.PositionData.Set(d, lineage.DataDivisionPenalty, 5)
		exp.PositionData.Set(d, lineage.DataAppearancePenalty, 2)
	}

	problem, naive, _, stats := Compile(exp, DefaultCompileConfig(), logging.NewNopLogger(), metrics.NewRegistry())

	if !problem.HasDivisions() {
		t.Fatal("Expected a division hypothesis for the mother position")
	}
	if stats.Divisions != 1 {
		t.Errorf("Expected 1 division hypothesis, got %d", stats.Divisions)
	}
	if stats.PrunedLinks != 0 {
		t.Errorf("Expected no pruned links, got %d", stats.PrunedLinks)
	}
	if !naive.ContainsLink(mother, daughter1) || !naive.ContainsLink(mother, daughter2) {
		t.Error("Expected both candidate links to survive")
	}

	for _, h := range problem.SegmentationHypotheses {
		if h.TimeStep == 0 {
			if !h.HasDivision {
				t.Error("Mother hypothesis should carry the division option")
			}
			if h.DivisionCost != 0.5 {
				t.Errorf("Expected division cost 0.5, got %v", h.DivisionCost)
			}
			if h.AppearanceCost != 0 {
				t.Errorf("First time point should have zero appearance cost, got %v", h.AppearanceCost)
			}
		}
	}
}

func TestCompilePrunesUnlikelyLink(t *testing.T) {
	exp := newTestExperiment(t)
	p := lineage.Position{X: 10, Y: 10, Z: 5, T: 0}
	q := lineage.Position{X: 11, Y: 10, Z: 5, T: 1}
	r := lineage.Position{X: 40, Y: 40, Z: 5, T: 1}

	addCandidateLink(t, exp, p, q, 0.2)
	addCandidateLink(t, exp, p, r, 4.5)

	for _, pos := range []lineage.Position{p, q, r} {
		exp.PositionData.Set(pos, lineage.DataDivisionPenalty, 5)
		exp.PositionData.Set(pos, lineage.DataAppearancePenalty, 2)
		exp.PositionData.Set(pos, lineage.DataDisappearancePenalty, 2)
	}

	problem, naive, _, stats := Compile(exp, DefaultCompileConfig(), logging.NewNopLogger(), metrics.NewRegistry())

	if stats.PrunedLinks != 1 {
		t.Fatalf("Expected exactly 1 pruned link, got %d", stats.PrunedLinks)
	}
	if naive.ContainsLink(p, r) {
		t.Error("Link above the absolute cutoff should be pruned from the candidate pool")
	}
	if !naive.ContainsLink(p, q) {
		t.Error("Cheap link should survive pruning")
	}
	if len(problem.LinkingHypotheses) != 1 {
		t.Errorf("Expected 1 linking hypothesis, got %d", len(problem.LinkingHypotheses))
	}
}

func TestCompileNoDivisionWithoutSecondCandidate(t *testing.T) {
	exp := newTestExperiment(t)
	a := lineage.Position{X: 10, Y: 10, Z: 5, T: 0}
	b := lineage.Position{X: 11, Y: 10, Z: 5, T: 1}

	addCandidateLink(t, exp, a, b, 0.5)
	// Low division penalty, but only one candidate successor.
	exp.PositionData.Set(a, lineage.DataDivisionPenalty, 0.5)
	exp.PositionData.Set(a, lineage.DataDisappearancePenalty, 5)
	exp.PositionData.Set(b, lineage.DataDivisionPenalty, 5)
	exp.PositionData.Set(b, lineage.DataAppearancePenalty, 2)

	problem, _, _, _ := Compile(exp, DefaultCompileConfig(), logging.NewNopLogger(), metrics.NewRegistry())

	if problem.HasDivisions() {
		t.Error("A single candidate successor should not qualify as a division")
	}
}

func TestCompileNoDivisionWhenEndingIsCheaper(t *testing.T) {
	exp := newTestExperiment(t)
	a := lineage.Position{X: 10, Y: 10, Z: 5, T: 0}
	b1 := lineage.Position{X: 9, Y: 10, Z: 5, T: 1}
	b2 := lineage.Position{X: 11, Y: 10, Z: 5, T: 1}

	addCandidateLink(t, exp, a, b1, 0.5)
	addCandidateLink(t, exp, a, b2, 2.5)
	exp.PositionData.Set(a, lineage.DataDivisionPenalty, 0.5)
	// Disappearing is cheaper than keeping the second child.
	exp.PositionData.Set(a, lineage.DataDisappearancePenalty, 1.0)
	for _, b := range []lineage.Position{b1, b2} {
		exp.PositionData.Set(b, lineage.DataDivisionPenalty, 5)
		exp.PositionData.Set(b, lineage.DataAppearancePenalty, 2)
	}

	problem, _, _, _ := Compile(exp, DefaultCompileConfig(), logging.NewNopLogger(), metrics.NewRegistry())

	if problem.HasDivisions() {
		t.Error("Division should not qualify when disappearance is cheaper than the second child")
	}
}

func TestCompileMissingDataUsesDefaults(t *testing.T) {
	exp := newTestExperiment(t)
	a := lineage.Position{X: 10, Y: 10, Z: 5, T: 0}
	b := lineage.Position{X: 11, Y: 10, Z: 5, T: 1}

	exp.AddPosition(a)
	exp.AddPosition(b)
	if err := exp.Links.AddLink(a, b); err != nil {
		t.Fatal(err)
	}
	// No link penalty, no position penalties at all.

	problem, naive, _, stats := Compile(exp, DefaultCompileConfig(), logging.NewNopLogger(), metrics.NewRegistry())

	if stats.MissingData == 0 {
		t.Error("Expected missing data to be counted")
	}
	// Default link penalty 2 is under the absolute cutoff 3, so the link survives.
	if !naive.ContainsLink(a, b) {
		t.Error("Link with defaulted penalty should survive")
	}
	if len(problem.LinkingHypotheses) != 1 || problem.LinkingHypotheses[0].Cost != 2 {
		t.Errorf("Expected one linking hypothesis with default cost 2, got %+v", problem.LinkingHypotheses)
	}
}

// Tightening the absolute cutoff can only shrink the set of surviving links.
func TestPruningMonotonicity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("lower cutoff never keeps more links", prop.ForAll(
		func(penalties []float64, tightCutoff, extra float64) bool {
			exp := lineage.NewExperiment("prop")
			for i, penalty := range penalties {
				from := lineage.Position{X: float64(i), Y: 0, Z: 0, T: 0}
				to := lineage.Position{X: float64(i), Y: 1, Z: 0, T: 1}
				exp.AddPosition(from)
				exp.AddPosition(to)
				if err := exp.Links.AddLink(from, to); err != nil {
					return false
				}
				exp.LinkData.Set(from, to, lineage.DataLinkPenalty, penalty)
				exp.PositionData.Set(from, lineage.DataDivisionPenalty, 5)
				exp.PositionData.Set(from, lineage.DataDisappearancePenalty, 2)
				exp.PositionData.Set(to, lineage.DataDivisionPenalty, 5)
				exp.PositionData.Set(to, lineage.DataAppearancePenalty, 2)
			}

			tight := DefaultCompileConfig()
			tight.PenaltyAbsCutOff = tightCutoff
			loose := DefaultCompileConfig()
			loose.PenaltyAbsCutOff = tightCutoff + extra

			log := logging.NewNopLogger()
			_, naiveTight, _, _ := Compile(exp, tight, log, metrics.NewRegistry())
			_, naiveLoose, _, _ := Compile(exp, loose, log, metrics.NewRegistry())

			return naiveTight.LinkCount() <= naiveLoose.LinkCount()
		},
		gen.SliceOf(gen.Float64Range(0, 10)),
		gen.Float64Range(0.1, 5),
		gen.Float64Range(0, 5),
	))

	properties.TestingRun(t)
}
