package linker

import (
	"context"
	"errors"
	"testing"

	"github.com/tdebruin/celltrack/pkg/lineage"
	"github.com/tdebruin/celltrack/pkg/logging"
	"github.com/tdebruin/celltrack/pkg/metrics"
)

func TestRunSimpleDivision(t *testing.T) {
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

	result, err := Run(context.Background(), exp, DefaultConfig(), logging.NewNopLogger(), metrics.NewRegistry())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	futures := result.Links.FindSelectedFutures(mother)
	if len(futures) != 2 {
		t.Fatalf("Expected the mother to keep both daughters, got %d selected futures", len(futures))
	}
	if !result.Links.IsSelected(mother, daughter1) || !result.Links.IsSelected(mother, daughter2) {
		t.Error("Both division links should be selected")
	}

	// The input experiment stays untouched.
	if exp.Links.SelectedCount() != 0 {
		t.Error("Run must not mutate the input experiment")
	}
}

func TestRunPrunedLinkNeverSelected(t *testing.T) {
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

	result, err := Run(context.Background(), exp, DefaultConfig(), logging.NewNopLogger(), metrics.NewRegistry())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Links.ContainsLink(p, r) {
		t.Error("Pruned link must not appear in the result pool")
	}
	if result.Links.IsSelected(p, r) {
		t.Error("Pruned link must never be selected")
	}
	if !result.Links.IsSelected(p, q) {
		t.Error("Cheap link should be selected")
	}
}

func TestRunChain(t *testing.T) {
	exp := newTestExperiment(t)
	a := lineage.Position{X: 10, Y: 10, Z: 5, T: 0}
	b := lineage.Position{X: 11, Y: 10, Z: 5, T: 1}
	c := lineage.Position{X: 12, Y: 10, Z: 5, T: 2}

	addCandidateLink(t, exp, a, b, 0.3)
	addCandidateLink(t, exp, b, c, 0.4)
	for _, pos := range []lineage.Position{a, b, c} {
		exp.PositionData.Set(pos, lineage.DataDivisionPenalty, 5)
		exp.PositionData.Set(pos, lineage.DataAppearancePenalty, 2)
		exp.PositionData.Set(pos, lineage.DataDisappearancePenalty, 2)
	}

	result, err := Run(context.Background(), exp, DefaultConfig(), logging.NewNopLogger(), metrics.NewRegistry())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !result.Links.IsSelected(a, b) || !result.Links.IsSelected(b, c) {
		t.Error("Expected the full chain to be selected")
	}
	track := result.Links.TrackOf(a)
	if track.Len() != 3 {
		t.Errorf("Expected one track of length 3, got %d", track.Len())
	}
}

func TestRunRequiresLinks(t *testing.T) {
	exp := newTestExperiment(t)
	exp.AddPosition(lineage.Position{X: 1, Y: 1, Z: 1, T: 0})

	_, err := Run(context.Background(), exp, DefaultConfig(), logging.NewNopLogger(), metrics.NewRegistry())
	if err == nil {
		t.Fatal("Expected an error for an experiment without candidate links")
	}
	if !errors.Is(err, lineage.ErrNoLinks) {
		t.Errorf("Expected ErrNoLinks, got %v", err)
	}
}

func TestRunUnknownMethodFallsBack(t *testing.T) {
	exp := newTestExperiment(t)
	a := lineage.Position{X: 10, Y: 10, Z: 5, T: 0}
	b := lineage.Position{X: 11, Y: 10, Z: 5, T: 1}

	addCandidateLink(t, exp, a, b, 0.3)
	for _, pos := range []lineage.Position{a, b} {
		exp.PositionData.Set(pos, lineage.DataDivisionPenalty, 5)
		exp.PositionData.Set(pos, lineage.DataAppearancePenalty, 2)
		exp.PositionData.Set(pos, lineage.DataDisappearancePenalty, 2)
	}

	cfg := DefaultConfig()
	cfg.Method = "Simplex"

	result, err := Run(context.Background(), exp, cfg, logging.NewNopLogger(), metrics.NewRegistry())
	if err != nil {
		t.Fatalf("Unknown method should fall back, not fail: %v", err)
	}
	if !result.Links.IsSelected(a, b) {
		t.Error("Fallback solve should still select the obvious link")
	}
}

func TestRunCancelled(t *testing.T) {
	exp := newTestExperiment(t)
	a := lineage.Position{X: 10, Y: 10, Z: 5, T: 0}
	b := lineage.Position{X: 11, Y: 10, Z: 5, T: 1}
	addCandidateLink(t, exp, a, b, 0.3)
	for _, pos := range []lineage.Position{a, b} {
		exp.PositionData.Set(pos, lineage.DataDivisionPenalty, 5)
		exp.PositionData.Set(pos, lineage.DataAppearancePenalty, 2)
		exp.PositionData.Set(pos, lineage.DataDisappearancePenalty, 2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, exp, DefaultConfig(), logging.NewNopLogger(), metrics.NewRegistry())
	if err == nil {
		t.Fatal("Expected an error for a cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in the chain, got %v", err)
	}
}

func TestCalculateAppearancePenalties(t *testing.T) {
	exp := newTestExperiment(t)
	edge := lineage.Position{X: 1, Y: 50, Z: 10, T: 0}
	center := lineage.Position{X: 50, Y: 50, Z: 10, T: 0}
	exp.AddPosition(edge)
	exp.AddPosition(center)

	bounds := lineage.Bounds{MinX: 0, MinY: 0, MinZ: 0, MaxX: 100, MaxY: 100, MaxZ: 20}
	CalculateAppearancePenalties(exp, bounds, 0.1, 0.1)

	edgePenalty, ok := exp.PositionData.Get(edge, lineage.DataAppearancePenalty)
	if !ok {
		t.Fatal("Expected an appearance penalty for the edge position")
	}
	centerPenalty, ok := exp.PositionData.Get(center, lineage.DataAppearancePenalty)
	if !ok {
		t.Fatal("Expected an appearance penalty for the center position")
	}

	// Appearing near the boundary is more plausible, so cheaper.
	if edgePenalty >= centerPenalty {
		t.Errorf("Edge penalty %v should be below center penalty %v", edgePenalty, centerPenalty)
	}

	want := PenaltyFromProbability(0.1)
	if centerPenalty != want {
		t.Errorf("Center penalty = %v, want %v", centerPenalty, want)
	}
}

func TestPenaltyProbabilityRoundTrip(t *testing.T) {
	for _, p := range []float64{0.1, 0.25, 0.5, 0.9} {
		penalty := PenaltyFromProbability(p)
		back := ProbabilityFromPenalty(penalty)
		if diff := back - p; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Round trip for %v came back as %v", p, back)
		}
	}
}
