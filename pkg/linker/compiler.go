package linker

import (
	"github.com/tdebruin/celltrack/pkg/flownet"
	"github.com/tdebruin/celltrack/pkg/lineage"
	"github.com/tdebruin/celltrack/pkg/logging"
	"github.com/tdebruin/celltrack/pkg/metrics"
)

// CompileConfig holds the pruning cutoffs used while turning a candidate
// graph into a flow problem.
type CompileConfig struct {
	// IgnorePenalty is the fixed cost of treating a detection as spurious.
	IgnorePenalty float64

	// DivisionPenaltyCutOff bounds which positions get a division option.
	DivisionPenaltyCutOff float64

	// PenaltyDifferenceCutOff prunes links that are much worse than the best
	// alternative at either endpoint.
	PenaltyDifferenceCutOff float64

	// PenaltyAbsCutOff prunes links above an absolute ceiling regardless of
	// alternatives.
	PenaltyAbsCutOff float64
}

// DefaultCompileConfig returns the standard cutoffs.
func DefaultCompileConfig() CompileConfig {
	return CompileConfig{
		IgnorePenalty:           2.0,
		DivisionPenaltyCutOff:   2.0,
		PenaltyDifferenceCutOff: 3.0,
		PenaltyAbsCutOff:        3.0,
	}
}

// CompileStats summarizes one compile.
type CompileStats struct {
	Positions   int
	Links       int
	PrunedLinks int
	Divisions   int
	MissingData int
}

// Defaults substituted when upstream inference left a penalty unset. The run
// continues; the substitution is logged and counted.
const (
	defaultLinkPenalty     = 2.0
	defaultDivisionPenalty = 2.0
)

// unsetPenalty is the sentinel the per-position penalty bookkeeping starts
// at, high enough that any real link penalty replaces it.
const unsetPenalty = 10.0

// linkStats is compiler-local scratch per position, discarded after the
// compile. Never persisted on the position data store.
type linkStats struct {
	minIn        float64
	minOut       float64
	secondMinOut float64
}

type compiler struct {
	cfg   CompileConfig
	log   logging.Logger
	reg   *metrics.Registry
	table *positionTable

	missing int
}

// Compile builds a min-cost-flow problem from the experiment's candidate
// links. It returns the problem, the surviving candidate pool as a fresh
// graph, the id table for mapping the solver's answer back to positions, and
// counters describing what was pruned.
//
// A position only gets a division option when its division penalty is under
// the cutoff, it has more than one candidate successor, and keeping a second
// child is cheaper than ending the track. When no position qualifies the
// problem is built without division terms and the solver runs with the
// shorter weight vector.
func Compile(exp *lineage.Experiment, cfg CompileConfig, log logging.Logger, reg *metrics.Registry) (*flownet.Problem, *lineage.LinkGraph, *positionTable, CompileStats) {
	c := &compiler{cfg: cfg, log: log, reg: reg, table: newPositionTable()}

	firstTimePoint := exp.Positions.FirstTimePointNumber()
	lastTimePoint := exp.Positions.LastTimePointNumber()

	stats := c.collectLinkStats(exp)

	problem := &flownet.Problem{StatesShareWeights: true}
	divisions := 0

	positions := exp.Links.AllPositions()
	for _, p := range positions {
		appearancePenalty := 0.0
		if p.T > firstTimePoint {
			appearancePenalty = c.positionPenalty(exp, p, lineage.DataAppearancePenalty, 0)
		}
		disappearancePenalty := 0.0
		if p.T < lastTimePoint {
			disappearancePenalty = c.positionPenalty(exp, p, lineage.DataDisappearancePenalty, 0)
		}
		divisionPenalty := c.positionPenalty(exp, p, lineage.DataDivisionPenalty, defaultDivisionPenalty)

		hypothesis := flownet.SegmentationHypothesis{
			ID:                c.table.ID(p),
			IgnoreCost:        cfg.IgnorePenalty,
			AppearanceCost:    appearancePenalty,
			DisappearanceCost: disappearancePenalty,
			TimeStep:          p.T,
		}

		if c.qualifiesForDivision(exp, p, divisionPenalty, disappearancePenalty, stats) {
			hypothesis.HasDivision = true
			hypothesis.DivisionCost = divisionPenalty
			divisions++
		}
		problem.SegmentationHypotheses = append(problem.SegmentationHypotheses, hypothesis)
	}

	naive := lineage.NewLinkGraph()
	pruned := 0
	links := exp.Links.AllLinks()
	for _, link := range links {
		penalty := c.linkPenalty(exp, link.From, link.To)
		if !c.survivesPruning(exp, link.From, link.To, penalty, stats) {
			pruned++
			continue
		}
		if err := naive.AddLink(link.From, link.To); err != nil {
			// Candidate links always span time points; AddLink cannot fail
			// for links that came out of a valid graph.
			c.log.Error("dropping malformed candidate link",
				logging.String("from", link.From.String()),
				logging.String("to", link.To.String()),
				logging.Error(err))
			continue
		}
		problem.LinkingHypotheses = append(problem.LinkingHypotheses, flownet.LinkingHypothesis{
			Src:  c.table.ID(link.From),
			Dest: c.table.ID(link.To),
			Cost: penalty,
		})
	}

	compileStats := CompileStats{
		Positions:   len(positions),
		Links:       len(links),
		PrunedLinks: pruned,
		Divisions:   divisions,
		MissingData: c.missing,
	}
	return problem, naive, c.table, compileStats
}

// collectLinkStats does the first cycle over all links, recording the lowest
// and second lowest penalties incident to every position.
func (c *compiler) collectLinkStats(exp *lineage.Experiment) map[lineage.Position]*linkStats {
	stats := make(map[lineage.Position]*linkStats)
	get := func(p lineage.Position) *linkStats {
		s, ok := stats[p]
		if !ok {
			s = &linkStats{minIn: unsetPenalty, minOut: unsetPenalty, secondMinOut: unsetPenalty}
			stats[p] = s
		}
		return s
	}

	for _, link := range exp.Links.AllLinks() {
		penalty := c.linkPenalty(exp, link.From, link.To)

		in := get(link.To)
		if penalty < in.minIn {
			in.minIn = penalty
		}

		out := get(link.From)
		if penalty < out.minOut {
			out.secondMinOut = out.minOut
			out.minOut = penalty
		} else if penalty < out.secondMinOut {
			out.secondMinOut = penalty
		}
	}
	return stats
}

func (c *compiler) qualifiesForDivision(exp *lineage.Experiment, p lineage.Position,
	divisionPenalty, disappearancePenalty float64, stats map[lineage.Position]*linkStats) bool {
	if divisionPenalty >= c.cfg.DivisionPenaltyCutOff {
		return false
	}
	if len(exp.Links.FindFutures(p)) <= 1 {
		return false
	}
	s, ok := stats[p]
	if !ok {
		return false
	}
	// Ending the track must not be cheaper than keeping two children.
	return s.secondMinOut < disappearancePenalty
}

// survivesPruning applies the link pruning rules. A pruned link is omitted
// from the problem and never reconsidered.
func (c *compiler) survivesPruning(exp *lineage.Experiment, from, to lineage.Position,
	penalty float64, stats map[lineage.Position]*linkStats) bool {
	if penalty >= c.cfg.PenaltyAbsCutOff {
		return false
	}

	in := stats[to]
	if in == nil || penalty >= in.minIn+c.cfg.PenaltyDifferenceCutOff {
		return false
	}

	out := stats[from]
	if out == nil || penalty >= out.secondMinOut+c.cfg.PenaltyDifferenceCutOff {
		return false
	}

	// A strong division candidate keeps links that are merely worse than its
	// single best outgoing option.
	if penalty >= out.minOut+c.cfg.PenaltyDifferenceCutOff {
		divisionPenalty := exp.PositionData.GetOr(from, lineage.DataDivisionPenalty, defaultDivisionPenalty)
		if divisionPenalty >= c.cfg.DivisionPenaltyCutOff {
			return false
		}
	}
	return true
}

func (c *compiler) linkPenalty(exp *lineage.Experiment, from, to lineage.Position) float64 {
	if penalty, ok := exp.LinkData.Get(from, to, lineage.DataLinkPenalty); ok {
		return penalty
	}
	c.missing++
	c.reg.RecordMissingData(lineage.DataLinkPenalty)
	c.log.Warn("link penalty missing, using default",
		logging.String("from", from.String()),
		logging.String("to", to.String()),
		logging.Float64("default", defaultLinkPenalty))
	return defaultLinkPenalty
}

func (c *compiler) positionPenalty(exp *lineage.Experiment, p lineage.Position, key string, fallback float64) float64 {
	if penalty, ok := exp.PositionData.Get(p, key); ok {
		return penalty
	}
	c.missing++
	c.reg.RecordMissingData(key)
	c.log.Warn("position penalty missing, using default",
		logging.String("position", p.String()),
		logging.String("key", key),
		logging.Float64("default", fallback))
	return fallback
}
