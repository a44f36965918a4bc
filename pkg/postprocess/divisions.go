package postprocess

import (
	"github.com/tdebruin/celltrack/pkg/lineage"
	"github.com/tdebruin/celltrack/pkg/logging"
)

// PinpointDivisions moves a division event onto a daughter when the division
// signal peaks there instead of at the position the solver chose. The
// redundant sibling detection is removed and its continuation is reattached
// to the daughter that divides.
func (pr *Processor) PinpointDivisions(exp *lineage.Experiment) int {
	changes := 0
	mothers := make(map[lineage.Position]bool)
	motherList := exp.Links.FindMothers(true)
	for _, m := range motherList {
		mothers[m] = true
	}

	for _, mother := range motherList {
		daughters := exp.Links.FindSelectedFutures(mother)
		if len(daughters) != 2 {
			continue
		}

		motherPenalty := pr.divisionPenalty(exp, mother)
		penalty0 := pr.divisionPenalty(exp, daughters[0])
		penalty1 := pr.divisionPenalty(exp, daughters[1])

		if penalty0 < penalty1 && penalty0+pr.cfg.PinpointPenaltyDiff < motherPenalty && !mothers[daughters[0]] {
			if pr.moveDivision(exp, daughters[0], daughters[1]) {
				changes++
			}
		} else if penalty1+pr.cfg.PinpointPenaltyDiff < motherPenalty && !mothers[daughters[1]] {
			if pr.moveDivision(exp, daughters[1], daughters[0]) {
				changes++
			}
		}
	}

	pr.log.Info("divisions pinpointed", logging.Pass("pinpoint_divisions"), logging.Count(changes))
	pr.reg.RecordPassChanges("pinpoint_divisions", changes)
	return changes
}

// moveDivision removes the sibling and hands its continuation to the new
// mother, provided the candidate pool supports the rewired link.
func (pr *Processor) moveDivision(exp *lineage.Experiment, newMother, sibling lineage.Position) bool {
	continuations := exp.Links.FindSelectedFutures(sibling)
	if len(continuations) != 1 {
		return false
	}
	continuation := continuations[0]
	if !exp.Links.ContainsLink(newMother, continuation) {
		return false
	}

	exp.RemovePosition(sibling)
	return pr.selectLink(exp, newMother, continuation)
}

// RemoveDivisionSpurs deletes daughters that end immediately after a division
// with a weak division signal; they are segmentation artifacts rather than
// real cells.
func (pr *Processor) RemoveDivisionSpurs(exp *lineage.Experiment) int {
	changes := 0

	for _, mother := range exp.Links.FindMothers(true) {
		divisionPenalty := pr.divisionPenalty(exp, mother)
		if divisionPenalty <= 0 {
			continue
		}
		for _, daughter := range exp.Links.FindSelectedFutures(mother) {
			if len(exp.Links.FindSelectedFutures(daughter)) == 0 {
				exp.RemovePosition(daughter)
				changes++
			}
		}
	}

	pr.log.Info("division spurs removed", logging.Pass("remove_division_spurs"), logging.Count(changes))
	pr.reg.RecordPassChanges("remove_division_spurs", changes)
	pr.reg.RecordPositionsRemoved("spur", changes)
	return changes
}
