package postprocess

import (
	"context"

	"github.com/tdebruin/celltrack/pkg/lineage"
	"github.com/tdebruin/celltrack/pkg/logging"
)

// finetuneRounds is how often the finetune pass runs before the other
// repairs; each repair can expose new opportunities for the next round.
const finetuneRounds = 4

// Summary reports what the repair pipeline changed.
type Summary struct {
	FinetuneChanges          int
	OversegmentationsFixed   int
	GapsBridged              int
	SameFrameGapsBridged     int
	DivisionsPinpointed      int
	DivisionSpursRemoved     int
	DeepTrackPositions       int
	EdgePositionsRemoved     int
	ShortTrackPositions      int
	IsolatedPositionsRemoved int
}

// Run executes the full repair sequence in its fixed order. The passes
// mutate the experiment in place and run strictly sequentially; each depends
// on the corrected topology the previous one left behind.
func (pr *Processor) Run(ctx context.Context, exp *lineage.Experiment, bounds lineage.Bounds) (Summary, error) {
	var s Summary

	for round := 0; round < finetuneRounds; round++ {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		changes := pr.FinetuneSolution(exp)
		s.FinetuneChanges += changes
		if changes == 0 {
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return s, err
	}
	s.OversegmentationsFixed = pr.ConnectLooseEnds(exp)
	s.GapsBridged = pr.BridgeGaps(exp)
	s.SameFrameGapsBridged = pr.BridgeSkippedLinks(exp)

	if err := ctx.Err(); err != nil {
		return s, err
	}
	s.DivisionsPinpointed = pr.PinpointDivisions(exp)
	s.DivisionSpursRemoved = pr.RemoveDivisionSpurs(exp)

	if err := ctx.Err(); err != nil {
		return s, err
	}
	s.DeepTrackPositions = pr.RemoveDeepTracks(exp)
	s.EdgePositionsRemoved = pr.FilterEdgeMargin(exp, bounds)
	s.ShortTrackPositions = pr.RemoveShortTracks(exp)
	s.IsolatedPositionsRemoved = pr.RemoveIsolatedPositions(exp)

	pr.log.Info("repair pipeline done",
		logging.Int("finetune_changes", s.FinetuneChanges),
		logging.Int("oversegmentations_fixed", s.OversegmentationsFixed),
		logging.Int("gaps_bridged", s.GapsBridged+s.SameFrameGapsBridged),
		logging.Int("positions_removed",
			s.DeepTrackPositions+s.EdgePositionsRemoved+s.ShortTrackPositions+s.IsolatedPositionsRemoved))
	return s, nil
}
