package postprocess

import (
	"github.com/tdebruin/celltrack/pkg/lineage"
	"github.com/tdebruin/celltrack/pkg/logging"
)

// FinetuneSolution adds, deselects or swaps single links wherever that lowers
// the total energy of the solution, consulting the full candidate pool rather
// than only the links the solver chose. Returns the number of changes; a
// second run immediately after reaches a fixed point and reports zero.
func (pr *Processor) FinetuneSolution(exp *lineage.Experiment) int {
	changes := 0
	changes += pr.removeExpensiveLinks(exp)
	changes += pr.connectLooseStarts(exp)
	changes += pr.reconnectLooseEnds(exp)
	changes += pr.addMissedDivisionLinks(exp)
	changes += pr.swapLinks(exp)
	changes += pr.removeUnlikelyDivisions(exp)

	pr.log.Info("finetune pass done", logging.Pass("finetune"), logging.Count(changes))
	pr.reg.RecordPassChanges("finetune", changes)
	return changes
}

// removeExpensiveLinks deselects links that are cheaper to replace by an
// appearance plus a disappearance.
func (pr *Processor) removeExpensiveLinks(exp *lineage.Experiment) int {
	changes := 0
	mothers := make(map[lineage.Position]bool)
	for _, m := range exp.Links.FindMothers(false) {
		mothers[m] = true
	}

	for _, position := range exp.Positions.All() {
		prev, ok := exp.Links.FindSingleSelectedPast(position)
		if !ok {
			continue
		}

		var oldPenalty, newPenalty float64
		if mothers[prev] {
			// The mother keeps her other daughter, so only the appearance
			// of this position has to be paid for.
			oldPenalty = pr.linkPenalty(exp, prev, position) + pr.divisionPenalty(exp, prev)
			newPenalty = pr.appearancePenalty(exp, position)
		} else {
			oldPenalty = pr.linkPenalty(exp, prev, position)
			newPenalty = pr.appearancePenalty(exp, position) + pr.disappearancePenalty(exp, prev)
		}

		if oldPenalty > newPenalty {
			exp.Links.DeselectLink(prev, position)
			changes++
		}
	}
	return changes
}

// connectLooseStarts attaches tracks that appear out of nowhere to a nearby
// candidate predecessor, breaking that predecessor's current continuation
// when the total cost goes down.
func (pr *Processor) connectLooseStarts(exp *lineage.Experiment) int {
	changes := 0
	firstTimePoint := exp.Positions.FirstTimePointNumber()

	for _, position := range exp.Links.FindAppearedPositions(firstTimePoint) {
		oldAppearance := pr.appearancePenalty(exp, position)

		var source, oldTarget lineage.Position
		var haveSource, haveOldTarget bool
		minDiff := 0.0

		for _, prev := range exp.Links.FindPasts(position) {
			newLinkPenalty := pr.linkPenalty(exp, prev, position)

			nexts := exp.Links.FindSelectedFutures(prev)
			for _, next := range nexts {
				diff := -pr.linkPenalty(exp, prev, next) - oldAppearance +
					newLinkPenalty + pr.appearancePenalty(exp, next)
				if diff < minDiff {
					source, oldTarget = prev, next
					haveSource, haveOldTarget = true, true
					minDiff = diff
				}
			}
			if len(nexts) == 0 {
				diff := -pr.disappearancePenalty(exp, prev) - oldAppearance + newLinkPenalty
				if diff < minDiff {
					source = prev
					haveSource, haveOldTarget = true, false
					minDiff = diff
				}
			}
		}

		if haveSource {
			if haveOldTarget {
				exp.Links.DeselectLink(source, oldTarget)
			}
			if pr.selectLink(exp, source, position) {
				changes++
			}
		}
	}
	return changes
}

// reconnectLooseEnds is the mirror image of connectLooseStarts for tracks
// that end mid-experiment.
func (pr *Processor) reconnectLooseEnds(exp *lineage.Experiment) int {
	changes := 0
	lastTimePoint := exp.Positions.LastTimePointNumber()

	for _, position := range exp.Links.FindDisappearedPositions(lastTimePoint) {
		oldDisappearance := pr.disappearancePenalty(exp, position)

		var target, oldSource lineage.Position
		var haveTarget, haveOldSource bool
		minDiff := 0.0

		for _, next := range exp.Links.FindFutures(position) {
			newLinkPenalty := pr.linkPenalty(exp, position, next)

			prevs := exp.Links.FindSelectedPasts(next)
			for _, prev := range prevs {
				diff := -pr.linkPenalty(exp, prev, next) - oldDisappearance +
					newLinkPenalty + pr.disappearancePenalty(exp, prev)
				if diff < minDiff {
					target, oldSource = next, prev
					haveTarget, haveOldSource = true, true
					minDiff = diff
				}
			}
			if len(prevs) == 0 {
				diff := -pr.appearancePenalty(exp, next) - oldDisappearance + newLinkPenalty
				if diff < minDiff {
					target = next
					haveTarget, haveOldSource = true, false
					minDiff = diff
				}
			}
		}

		if haveTarget {
			if haveOldSource {
				exp.Links.DeselectLink(oldSource, target)
			}
			if pr.selectLink(exp, position, target) {
				changes++
			}
		}
	}
	return changes
}

// addMissedDivisionLinks turns a single continuation into a division when a
// second candidate daughter is cheaper to claim than to explain away.
func (pr *Processor) addMissedDivisionLinks(exp *lineage.Experiment) int {
	changes := 0

	for _, position := range exp.Positions.All() {
		if len(exp.Links.FindSelectedFutures(position)) != 1 {
			continue
		}
		divisionPenalty := pr.divisionPenalty(exp, position)

		for _, candidate := range exp.Links.FindFutures(position) {
			if exp.Links.IsSelected(position, candidate) {
				continue
			}
			prevs := exp.Links.FindSelectedPasts(candidate)

			if len(prevs) == 1 {
				prev := prevs[0]
				oldLinkPenalty := pr.linkPenalty(exp, prev, candidate)
				newLinkPenalty := pr.linkPenalty(exp, position, candidate)
				newDisappearance := pr.disappearancePenalty(exp, prev)

				if divisionPenalty+newLinkPenalty+newDisappearance < oldLinkPenalty {
					exp.Links.DeselectLink(prev, candidate)
					if pr.selectLink(exp, position, candidate) {
						changes++
					}
					break
				}
			} else if len(prevs) == 0 {
				newLinkPenalty := pr.linkPenalty(exp, position, candidate)
				oldAppearance := pr.appearancePenalty(exp, candidate)

				if divisionPenalty+newLinkPenalty < oldAppearance {
					if pr.selectLink(exp, position, candidate) {
						changes++
					}
					break
				}
			}
		}
	}
	return changes
}

// swapLinks exchanges the successors of two positions when the crossed
// assignment is cheaper, optionally breaking one track into a disappearance
// plus an appearance.
func (pr *Processor) swapLinks(exp *lineage.Experiment) int {
	changes := 0

	for _, position := range exp.Positions.All() {
		fixed := false

		for _, next := range exp.Links.FindSelectedFutures(position) {
			for _, past := range exp.Links.FindPasts(next) {
				if past == position {
					continue
				}
				for _, alternativeNext := range exp.Links.FindSelectedFutures(past) {
					oldPenalty := pr.linkPenalty(exp, position, next) +
						pr.linkPenalty(exp, past, alternativeNext)
					newLinkPenalty := pr.linkPenalty(exp, past, next)

					var otherPenalty float64
					breakTrack := false
					if exp.Links.ContainsLink(position, alternativeNext) {
						otherPenalty = pr.linkPenalty(exp, position, alternativeNext)
					} else {
						otherPenalty = pr.disappearancePenalty(exp, position) +
							pr.appearancePenalty(exp, alternativeNext)
						breakTrack = true
					}

					if !fixed && oldPenalty > newLinkPenalty+otherPenalty {
						fixed = true
						exp.Links.DeselectLink(past, alternativeNext)
						exp.Links.DeselectLink(position, next)
						if !breakTrack {
							pr.selectLink(exp, position, alternativeNext)
						}
						pr.selectLink(exp, past, next)
						changes++
					}
				}
			}
		}
	}
	return changes
}

// removeUnlikelyDivisions splits up divisions whose division signal is poor,
// keeping the cheaper daughter link.
func (pr *Processor) removeUnlikelyDivisions(exp *lineage.Experiment) int {
	changes := 0

	for _, mother := range exp.Links.FindMothers(false) {
		if pr.divisionPenalty(exp, mother) <= unlikelyDivisionPenalty {
			continue
		}
		daughters := exp.Links.FindSelectedFutures(mother)
		if len(daughters) < 2 {
			continue
		}

		drop := daughters[0]
		if pr.linkPenalty(exp, mother, daughters[0]) <= pr.linkPenalty(exp, mother, daughters[1]) {
			drop = daughters[1]
		}
		exp.Links.DeselectLink(mother, drop)
		changes++
	}
	return changes
}
