package postprocess

import (
	"github.com/tdebruin/celltrack/pkg/lineage"
	"github.com/tdebruin/celltrack/pkg/logging"
)

// looseEndCandidates returns the positions whose tracks end mid-experiment,
// plus positions the division signal says should divide but currently have a
// single successor. Both can be the near side of a missed detection.
func (pr *Processor) looseEndCandidates(exp *lineage.Experiment) []lineage.Position {
	ends := exp.Links.FindDisappearedPositions(exp.Positions.LastTimePointNumber())
	for _, position := range exp.Positions.All() {
		divisionPenalty, ok := exp.PositionData.Get(position, lineage.DataDivisionPenalty)
		if ok && divisionPenalty < 0 && len(exp.Links.FindSelectedFutures(position)) == 1 {
			ends = append(ends, position)
		}
	}
	return ends
}

func contains(positions []lineage.Position, p lineage.Position) bool {
	for _, candidate := range positions {
		if candidate == p {
			return true
		}
	}
	return false
}

func reversed(positions []lineage.Position) []lineage.Position {
	out := make([]lineage.Position, len(positions))
	for i, p := range positions {
		out[len(positions)-1-i] = p
	}
	return out
}

// BridgeGaps reconnects tracks broken by a single missed detection: a track
// that ends at time t and a track that starts nearby at t+2 are joined
// through a synthesized position at t+1. The synthesized position gets
// negative appearance and disappearance penalties so a later re-solve prefers
// using it, and alternative candidate links for downstream marginalization.
func (pr *Processor) BridgeGaps(exp *lineage.Experiment) int {
	res := exp.Resolution
	firstTimePoint := exp.Positions.FirstTimePointNumber()

	looseStarts := exp.Links.FindAppearedPositions(firstTimePoint)
	looseEnds := pr.looseEndCandidates(exp)

	fixed := make(map[lineage.Position]bool)
	gapsBridged := 0

	for _, position := range looseEnds {
		prevTimePoint := position.T
		nextTimePoint := position.T + 2

		neighbors := reversed(exp.Positions.ClosestN(nextTimePoint, position,
			gapNeighborCount, pr.cfg.GapMaxDistanceUm, res))
		if len(neighbors) == 0 {
			// Fall back to the single closest position regardless of
			// distance, which keeps the rule scale free.
			neighbors = exp.Positions.ClosestN(nextTimePoint, position, 1, 0, res)
		}

		for _, neighbor := range neighbors {
			if !contains(looseStarts, neighbor) {
				continue
			}

			// Only bridge when this end is the neighbor's best option among
			// all nearby loose ends.
			distance := position.DistanceUm(neighbor, res)
			closestAlternative := position
			closestDistance := distance
			for _, alternative := range exp.Positions.ClosestN(prevTimePoint, neighbor,
				gapNeighborCount, pr.cfg.GapMaxDistanceUm, res) {
				d := alternative.DistanceUm(neighbor, res)
				if d < closestDistance && contains(looseEnds, alternative) {
					closestDistance = d
					closestAlternative = alternative
				}
			}
			if closestAlternative != position || fixed[position] || fixed[neighbor] {
				continue
			}

			disappearance := pr.disappearancePenalty(exp, position)
			appearance := pr.appearancePenalty(exp, neighbor)
			if pr.cfg.MissPenalty >= disappearance+appearance {
				continue
			}

			fixed[position] = true
			fixed[neighbor] = true
			gapsBridged++

			bridge := lineage.Midpoint(position, neighbor)
			exp.AddPosition(bridge)
			exp.PositionData.Set(bridge, lineage.DataDivisionPenalty, gapDivisionPenalty)
			exp.PositionData.Set(bridge, lineage.DataDivisionProbability, 0)
			// Skipping the synthesized position again must cost something.
			exp.PositionData.Set(bridge, lineage.DataAppearancePenalty, -pr.cfg.MissPenalty)
			exp.PositionData.Set(bridge, lineage.DataDisappearancePenalty, -pr.cfg.MissPenalty)

			linkPenalty := penaltyFromProbability(0.5)
			pr.selectLink(exp, position, bridge)
			pr.selectLink(exp, bridge, neighbor)
			exp.LinkData.Set(position, bridge, lineage.DataLinkPenalty, linkPenalty)
			exp.LinkData.Set(bridge, neighbor, lineage.DataLinkPenalty, linkPenalty)

			// Offer nearby alternatives as unselected candidates with the
			// same uniform penalty, for later marginalization.
			alternatives := append(
				exp.Positions.ClosestN(prevTimePoint, position,
					gapNeighborCount, pr.cfg.SameFrameMaxDistanceUm, res),
				exp.Positions.ClosestN(nextTimePoint, neighbor,
					gapNeighborCount, pr.cfg.SameFrameMaxDistanceUm, res)...)
			for _, alternative := range alternatives {
				if exp.Links.ContainsLink(bridge, alternative) {
					continue
				}
				if err := exp.Links.AddLink(bridge, alternative); err != nil {
					continue
				}
				exp.LinkData.Set(bridge, alternative, lineage.DataLinkPenalty, linkPenalty)
			}
		}
	}

	pr.log.Info("gaps bridged", logging.Pass("bridge_gaps"), logging.Count(gapsBridged))
	pr.reg.RecordPassChanges("bridge_gaps", gapsBridged)
	pr.reg.RecordGapsBridged(gapsBridged)
	return gapsBridged
}

// BridgeSkippedLinks joins a track that ends with a track that starts in the
// same frame nearby, treating the pair as duplicate detections of one cell.
// The duplicate end position is removed unless it may still be a division.
func (pr *Processor) BridgeSkippedLinks(exp *lineage.Experiment) int {
	res := exp.Resolution
	firstTimePoint := exp.Positions.FirstTimePointNumber()

	looseStarts := exp.Links.FindAppearedPositions(firstTimePoint)
	looseEnds := pr.looseEndCandidates(exp)

	fixed := make(map[lineage.Position]bool)
	gapsBridged := 0

	for _, position := range looseEnds {
		neighbors := reversed(exp.Positions.ClosestN(position.T, position,
			gapNeighborCount, pr.cfg.SameFrameMaxDistanceUm, res))

		for _, neighbor := range neighbors {
			if !contains(looseStarts, neighbor) {
				continue
			}

			distance := position.DistanceUm(neighbor, res)
			closestAlternative := position
			closestDistance := distance
			for _, alternative := range exp.Positions.ClosestN(position.T, neighbor,
				gapNeighborCount, pr.cfg.SameFrameMaxDistanceUm, res) {
				d := alternative.DistanceUm(neighbor, res)
				if d < closestDistance && contains(looseEnds, alternative) {
					closestDistance = d
					closestAlternative = alternative
				}
			}
			if closestAlternative != position || fixed[position] || fixed[neighbor] {
				continue
			}

			disappearance := pr.disappearancePenalty(exp, position)
			appearance := pr.appearancePenalty(exp, neighbor)
			if pr.cfg.MissPenalty >= disappearance+appearance {
				continue
			}

			fixed[position] = true
			fixed[neighbor] = true

			prev, ok := exp.Links.FindSingleSelectedPast(position)
			if !ok {
				// The predecessor can be gone when a very short track was
				// already consumed by an earlier fix.
				continue
			}

			if len(exp.Links.FindSelectedFutures(position)) == 0 {
				exp.RemovePosition(position)
			}

			if pr.selectLink(exp, prev, neighbor) {
				exp.LinkData.Set(prev, neighbor, lineage.DataLinkPenalty, pr.cfg.MissPenalty)
				gapsBridged++
			}
		}
	}

	pr.log.Info("same frame gaps bridged", logging.Pass("bridge_skipped_links"), logging.Count(gapsBridged))
	pr.reg.RecordPassChanges("bridge_skipped_links", gapsBridged)
	pr.reg.RecordGapsBridged(gapsBridged)
	return gapsBridged
}
