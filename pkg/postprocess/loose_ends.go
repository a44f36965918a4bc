package postprocess

import (
	"github.com/tdebruin/celltrack/pkg/lineage"
	"github.com/tdebruin/celltrack/pkg/logging"
)

// ConnectLooseEnds reconnects tracks broken up by oversegmentation: a track
// that ends is glued to a track that starts a little later nearby, and the
// spurious fragment positions in between are removed. The bridged link's
// penalty is raised by the oversegmentation penalty so downstream consumers
// see the reduced confidence.
func (pr *Processor) ConnectLooseEnds(exp *lineage.Experiment) int {
	firstTimePoint := exp.Positions.FirstTimePointNumber()
	lastTimePoint := exp.Positions.LastTimePointNumber()

	looseStarts := exp.Links.FindAppearedPositions(firstTimePoint)
	startsPlusWindow := make(map[lineage.Position]bool)
	for _, position := range looseStarts {
		future := exp.Links.IterateToFuture(position)
		limit := pr.cfg.Window
		if limit > len(future) {
			limit = len(future)
		}
		for _, p := range future[:limit] {
			startsPlusWindow[p] = true
		}
	}

	// Walk the candidates in time order to avoid mix-ups between fixes.
	var ordered []lineage.Position
	for _, t := range exp.Positions.TimePoints() {
		for _, position := range exp.Positions.OfTimePoint(t) {
			if startsPlusWindow[position] {
				ordered = append(ordered, position)
			}
		}
	}

	endsPlusWindow := make(map[lineage.Position]bool)
	for _, position := range exp.Links.FindDisappearedPositions(lastTimePoint) {
		track := exp.Links.TrackOf(position)
		endsPlusWindow[position] = true
		for t := 0; t < pr.cfg.Window; t++ {
			if position.T-t > track.FirstTimePointNumber() {
				if p, ok := track.PositionAt(position.T - t); ok {
					endsPlusWindow[p] = true
				}
			}
		}
	}

	fixedEnds := make(map[lineage.Position]bool)
	fixedStarts := make(map[lineage.Position]bool)
	oversegmentationsFixed := 0

	for _, position := range ordered {
		track := exp.Links.TrackOf(position)
		inTrack := make(map[lineage.Position]bool)
		for _, p := range track.Positions() {
			inTrack[p] = true
		}

		for _, past := range exp.Links.FindPasts(position) {
			if !endsPlusWindow[past] || inTrack[past] || fixedEnds[past] || fixedStarts[position] {
				continue
			}

			linkPenalty := pr.linkPenalty(exp, past, position)
			disappearance := pr.disappearancePenalty(exp, past)
			appearance := pr.appearancePenalty(exp, position)

			if linkPenalty+pr.cfg.OversegmentationPenalty >= disappearance+appearance {
				continue
			}

			// Drop the oversegmented fragments: everything selected before
			// this position and everything selected after the loose end.
			removePast := exp.Links.IterateToPast(position)[1:]
			removeFuture := exp.Links.IterateToFuture(past)[1:]
			exp.RemovePositions(removePast)
			exp.RemovePositions(removeFuture)
			oversegmentationsFixed += len(removePast) + len(removeFuture)

			if !pr.selectLink(exp, past, position) {
				continue
			}

			for _, p := range removePast {
				fixedStarts[p] = true
				fixedEnds[p] = true
			}
			for _, p := range removeFuture {
				fixedStarts[p] = true
				fixedEnds[p] = true
			}
			future := exp.Links.IterateToFuture(position)
			limit := pr.cfg.Window + 1
			if limit > len(future) {
				limit = len(future)
			}
			for _, p := range future[:limit] {
				fixedStarts[p] = true
			}
			pastChain := exp.Links.IterateToPast(position)
			limit = pr.cfg.Window + 1
			if limit > len(pastChain) {
				limit = len(pastChain)
			}
			for _, p := range pastChain[:limit] {
				fixedEnds[p] = true
			}

			bridged := linkPenalty + pr.cfg.OversegmentationPenalty
			exp.LinkData.Set(past, position, lineage.DataLinkPenalty, bridged)
			exp.LinkData.Set(past, position, lineage.DataLinkProbability, probabilityFromPenalty(bridged))
		}
	}

	pr.log.Info("oversegmentations fixed",
		logging.Pass("connect_loose_ends"), logging.Count(oversegmentationsFixed))
	pr.reg.RecordPassChanges("connect_loose_ends", oversegmentationsFixed)
	pr.reg.RecordOversegmentationsFixed(oversegmentationsFixed)
	return oversegmentationsFixed
}
