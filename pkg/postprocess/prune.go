package postprocess

import (
	"github.com/tdebruin/celltrack/pkg/lineage"
	"github.com/tdebruin/celltrack/pkg/logging"
)

// RemoveShortTracks deletes lineages shorter than the configured minimum,
// divisions included, unless they run into the end of the experiment and may
// simply have been cut off.
func (pr *Processor) RemoveShortTracks(exp *lineage.Experiment) int {
	removed := 0
	lastTimePoint := exp.Positions.LastTimePointNumber()

	for _, position := range exp.Links.FindAppearedPositions(exp.Positions.FirstTimePointNumber()) {
		track := exp.Links.TrackOf(position)
		toRemove := track.Positions()
		reachesEnd := track.LastTimePointNumber() == lastTimePoint

		descendants := track.NextTracks()
		for len(descendants) > 0 {
			next := descendants[0]
			descendants = descendants[1:]
			toRemove = append(toRemove, next.Positions()...)
			if next.LastTimePointNumber() == lastTimePoint {
				reachesEnd = true
			}
			descendants = append(descendants, next.NextTracks()...)
		}

		if len(toRemove) <= pr.cfg.MinTrackLength && !reachesEnd {
			exp.RemovePositions(toRemove)
			removed += len(toRemove)
		}
	}

	pr.log.Info("short tracks removed", logging.Pass("remove_short_tracks"), logging.Count(removed))
	pr.reg.RecordPassChanges("remove_short_tracks", removed)
	pr.reg.RecordPositionsRemoved("short_track", removed)
	return removed
}

// RemoveIsolatedPositions deletes positions with no selected links at all;
// they are noise, not trajectories.
func (pr *Processor) RemoveIsolatedPositions(exp *lineage.Experiment) int {
	var toRemove []lineage.Position
	for _, position := range exp.Positions.All() {
		if !exp.Links.HasSelectedLink(position) {
			toRemove = append(toRemove, position)
		}
	}
	exp.RemovePositions(toRemove)

	pr.log.Info("isolated positions removed",
		logging.Pass("remove_isolated_positions"), logging.Count(len(toRemove)))
	pr.reg.RecordPassChanges("remove_isolated_positions", len(toRemove))
	pr.reg.RecordPositionsRemoved("isolated", len(toRemove))
	return len(toRemove)
}

// RemoveDeepTracks deletes tracks that both start and end deeper than the
// trusted imaging depth.
func (pr *Processor) RemoveDeepTracks(exp *lineage.Experiment) int {
	removed := 0

	for _, position := range exp.Links.FindDisappearedPositions(exp.Positions.LastTimePointNumber() + 1) {
		if position.Z <= pr.cfg.MaxZ {
			continue
		}
		chain := exp.Links.IterateToPast(position)
		if len(chain) < 2 {
			continue
		}
		first := chain[len(chain)-1]
		if first.Z > pr.cfg.MaxZ {
			exp.RemovePositions(chain)
			removed += len(chain)
		}
	}

	pr.log.Info("deep tracks removed", logging.Pass("remove_deep_tracks"), logging.Count(removed))
	pr.reg.RecordPassChanges("remove_deep_tracks", removed)
	pr.reg.RecordPositionsRemoved("too_deep", removed)
	return removed
}

// FilterEdgeMargin deletes positions outside the trusted region at the
// volume edge, first marking their neighbors so it stays clear why those
// tracks start or end there.
func (pr *Processor) FilterEdgeMargin(exp *lineage.Experiment, bounds lineage.Bounds) int {
	removed := 0

	for _, position := range exp.Positions.All() {
		if bounds.Contains(position, pr.cfg.MarginXY) {
			continue
		}
		for _, linked := range exp.Links.FindLinksOf(position) {
			if linked.T < position.T {
				exp.PositionData.SetTrackEndMarker(linked, lineage.EndMarkerOutOfView)
			} else {
				exp.PositionData.SetTrackStartMarker(linked, lineage.StartMarkerGoesIntoView)
			}
		}
		exp.RemovePosition(position)
		removed++
	}

	pr.log.Info("edge positions removed", logging.Pass("filter_edge_margin"), logging.Count(removed))
	pr.reg.RecordPassChanges("filter_edge_margin", removed)
	pr.reg.RecordPositionsRemoved("margin", removed)
	return removed
}
