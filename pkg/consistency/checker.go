package consistency

import (
	"github.com/tdebruin/celltrack/pkg/lineage"
	"github.com/tdebruin/celltrack/pkg/logging"
	"github.com/tdebruin/celltrack/pkg/metrics"
)

// Checker annotates positions of a finished lineage with error markers. It
// never modifies links; repairing is the post-processor's job.
type Checker struct {
	limits WarningLimits
	log    logging.Logger
	reg    *metrics.Registry
}

// NewChecker creates a checker with the given thresholds. A nil logger or
// registry falls back to the package defaults.
func NewChecker(limits WarningLimits, log logging.Logger, reg *metrics.Registry) *Checker {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	return &Checker{limits: limits, log: log.With(logging.Component("consistency")), reg: reg}
}

// CalculateError classifies a single position. Rules are evaluated in a fixed
// order and the first match wins, so a position never carries more than one
// code. Codes listed in ExcludedErrors are reported as ErrorNone.
func (c *Checker) CalculateError(exp *lineage.Experiment, p lineage.Position) ErrorCode {
	code := c.rawError(exp, p)
	if code != ErrorNone && c.limits.isExcluded(code) {
		return ErrorNone
	}
	return code
}

func (c *Checker) rawError(exp *lineage.Experiment, p lineage.Position) ErrorCode {
	if exp.PositionData.IsUncertain(p) {
		return ErrorUncertainPosition
	}
	if !exp.Links.HasSelectedLinks() {
		// Without any linking data every position would look like an
		// orphan, which helps nobody.
		return ErrorNone
	}

	futures := exp.Links.FindSelectedFutures(p)
	switch {
	case len(futures) > 2:
		return ErrorTooManyDaughterCells
	case len(futures) == 0:
		if p.T < exp.Positions.LastTimePointNumber() && exp.PositionData.TrackEndMarker(p) == "" {
			return ErrorTrackEnd
		}
	case len(futures) == 2:
		if prob, ok := exp.PositionData.Get(p, lineage.DataDivisionProbability); ok && prob < c.limits.MinProbability {
			return ErrorLowDivisionScore
		}
		if age, ok := exp.Links.AgeSinceDivision(p); ok {
			if float64(age)*exp.Resolution.TimePointIntervalH() < c.limits.MinTimeBetweenDivisionsH {
				return ErrorShortCellCycle
			}
		}
	default: // exactly one future
		prob, ok := exp.PositionData.Get(p, lineage.DataDivisionProbability)
		if ok && prob > 1-c.limits.MinProbability && !c.divisionImminent(exp, p) {
			return ErrorMissedDivision
		}
	}

	pasts := exp.Links.FindSelectedPasts(p)
	switch {
	case len(pasts) == 0:
		if p.T > exp.Positions.FirstTimePointNumber() && exp.PositionData.TrackStartMarker(p) == "" {
			return ErrorNoPastPosition
		}
	case len(pasts) >= 2:
		return ErrorCellMerge
	default:
		past := pasts[0]
		if marginal, ok := exp.LinkData.Get(past, p, lineage.DataMarginalProbability); ok {
			if marginal < c.limits.MinMarginalProbability {
				return ErrorLowLinkScore
			}
		}
		// Fast movement is allowed when a cell is launched into its death.
		if exp.PositionData.IsLive(p) {
			elapsedM := float64(p.T-past.T) * exp.Resolution.TimePointIntervalM
			if elapsedM > 0 && past.DistanceUm(p, exp.Resolution)/elapsedM > c.limits.MaxDistanceMovedUmPerMin {
				return ErrorMovedTooFast
			}
			if prob, ok := exp.LinkData.Get(past, p, lineage.DataLinkProbability); ok && prob < c.limits.MinProbability {
				return ErrorLowLinkScore
			}
		}
	}
	return ErrorNone
}

// divisionImminent reports whether the successor chain shows a division, or a
// high division probability, within the next two time points. Used to avoid
// flagging a missed division one frame before the actual one.
func (c *Checker) divisionImminent(exp *lineage.Experiment, p lineage.Position) bool {
	current := p
	for step := 0; step < 2; step++ {
		futures := exp.Links.FindSelectedFutures(current)
		if len(futures) >= 2 {
			return true
		}
		if len(futures) == 0 {
			return false
		}
		next := futures[0]
		if exp.PositionData.GetOr(next, lineage.DataDivisionProbability, 0) > 1-c.limits.MinProbability {
			return true
		}
		current = next
	}
	return false
}

// FindErrors checks every position of the experiment and stores the outcome
// as an error marker, overwriting any previous marker. Positions without any
// candidate links are not checked: their marker is cleared and every one of
// them counts as unlinked, flagged before or not, so the unlinked count is a
// full tally of the detections the linker left behind. The warnings count
// covers the linked positions that received a non-empty marker.
func (c *Checker) FindErrors(exp *lineage.Experiment) (warnings, unlinked int) {
	for _, p := range exp.Positions.All() {
		if !exp.Links.ContainsPosition(p) {
			exp.PositionData.SetErrorMarker(p, "")
			unlinked++
			continue
		}
		code := c.CalculateError(exp, p)
		exp.PositionData.SetErrorMarker(p, string(code))
		if code != ErrorNone {
			warnings++
			c.reg.RecordCheckerError(string(code))
		}
	}
	c.reg.RecordCheckerCounts(warnings, unlinked)
	c.log.Info("consistency check complete",
		logging.Int("warnings", warnings),
		logging.Int("unlinked_positions", unlinked))
	return warnings, unlinked
}

// FindErrorsInPositions rechecks the given positions and their direct link
// partners. Used after a local edit so surrounding markers stay accurate
// without a full pass.
func (c *Checker) FindErrorsInPositions(exp *lineage.Experiment, positions ...lineage.Position) {
	seen := make(map[lineage.Position]bool)
	var queue []lineage.Position
	add := func(p lineage.Position) {
		if !seen[p] {
			seen[p] = true
			queue = append(queue, p)
		}
	}
	for _, p := range positions {
		add(p)
		for _, partner := range exp.Links.FindLinksOf(p) {
			add(partner)
		}
	}
	for _, p := range queue {
		if !exp.Positions.Contains(p) {
			continue
		}
		code := c.CalculateError(exp, p)
		exp.PositionData.SetErrorMarker(p, string(code))
	}
}

// CheckDividingCells rechecks every mother position for a too short cell
// cycle. The per-position rules only see a division from the mother itself,
// so a mother whose own age was unknown at check time can be missed; walking
// the track structure catches those.
func (c *Checker) CheckDividingCells(exp *lineage.Experiment) int {
	flagged := 0
	for _, mother := range exp.Links.FindMothers(true) {
		if exp.PositionData.ErrorMarker(mother) != "" {
			continue
		}
		age, ok := exp.Links.AgeSinceDivision(mother)
		if !ok {
			continue
		}
		if float64(age)*exp.Resolution.TimePointIntervalH() < c.limits.MinTimeBetweenDivisionsH {
			if c.limits.isExcluded(ErrorShortCellCycle) {
				continue
			}
			exp.PositionData.SetErrorMarker(mother, string(ErrorShortCellCycle))
			c.reg.RecordCheckerError(string(ErrorShortCellCycle))
			flagged++
		}
	}
	return flagged
}
