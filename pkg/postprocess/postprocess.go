// Package postprocess repairs the solver's raw lineage with a fixed sequence
// of local repair passes. The flow relaxation produces systematic artifacts
// near divisions and track ends; each pass fixes one class of them using the
// full candidate pool, with purely local cost comparisons and no global
// re-solve.
package postprocess

import (
	"math"

	"github.com/tdebruin/celltrack/pkg/lineage"
	"github.com/tdebruin/celltrack/pkg/logging"
	"github.com/tdebruin/celltrack/pkg/metrics"
)

// Config holds the repair pass knobs. The small constants are tuning values
// carried over unchanged; their derivation is not documented upstream.
type Config struct {
	// MinTrackLength is the shortest lineage worth keeping, in frames.
	MinTrackLength int

	// MaxZ drops tracks that start and end deeper than this, where
	// detections are systematically unreliable.
	MaxZ float64

	// MarginXY shrinks the trusted region at the volume edge.
	MarginXY float64

	// OversegmentationPenalty is the cost of assuming a broken track is one
	// oversegmented cell.
	OversegmentationPenalty float64

	// MissPenalty is the cost of assuming a detection was missed entirely.
	MissPenalty float64

	// Window is how many frames around a loose end are considered when
	// reconnecting track fragments.
	Window int

	// GapMaxDistanceUm bounds the search for a continuation across a
	// skipped frame.
	GapMaxDistanceUm float64

	// SameFrameMaxDistanceUm bounds the search for a duplicate detection in
	// the same frame.
	SameFrameMaxDistanceUm float64

	// PinpointPenaltyDiff is how much better a daughter's division signal
	// must be before the division event is moved onto it.
	PinpointPenaltyDiff float64
}

// DefaultConfig returns the standard repair configuration.
func DefaultConfig() Config {
	return Config{
		MinTrackLength:          6,
		MaxZ:                    25,
		MarginXY:                0,
		OversegmentationPenalty: 2.0,
		MissPenalty:             2.0,
		Window:                  4,
		GapMaxDistanceUm:        10,
		SameFrameMaxDistanceUm:  7,
		PinpointPenaltyDiff:     1.0,
	}
}

// unlikelyDivisionPenalty is the threshold above which a division produced by
// the solver is considered implausible and split back up.
const unlikelyDivisionPenalty = 2.0

// gapDivisionPenalty marks synthesized gap positions as certainly
// non-dividing.
const gapDivisionPenalty = 10.0

// gapNeighborCount is how many nearby positions are offered as alternative
// links for a synthesized gap position.
const gapNeighborCount = 6

// Processor runs the repair passes.
type Processor struct {
	cfg Config
	log logging.Logger
	reg *metrics.Registry
}

// NewProcessor creates a processor with the given configuration.
func NewProcessor(cfg Config, log logging.Logger, reg *metrics.Registry) *Processor {
	return &Processor{
		cfg: cfg,
		log: log.With(logging.Component("postprocess")),
		reg: reg,
	}
}

// Penalty defaults for partially populated metadata. Upstream inference can
// leave values unset; the passes continue with these and log the substitution.
const (
	defaultLinkPenalty     = 2.0
	defaultDivisionPenalty = 2.0
)

func (pr *Processor) linkPenalty(exp *lineage.Experiment, from, to lineage.Position) float64 {
	if penalty, ok := exp.LinkData.Get(from, to, lineage.DataLinkPenalty); ok {
		return penalty
	}
	pr.log.Warn("link penalty missing, using default",
		logging.String("from", from.String()),
		logging.String("to", to.String()))
	return defaultLinkPenalty
}

func (pr *Processor) positionPenalty(exp *lineage.Experiment, p lineage.Position, key string, fallback float64) float64 {
	if penalty, ok := exp.PositionData.Get(p, key); ok {
		return penalty
	}
	pr.log.Warn("position penalty missing, using default",
		logging.String("position", p.String()),
		logging.String("key", key),
		logging.Float64("default", fallback))
	return fallback
}

func (pr *Processor) appearancePenalty(exp *lineage.Experiment, p lineage.Position) float64 {
	return pr.positionPenalty(exp, p, lineage.DataAppearancePenalty, 0)
}

func (pr *Processor) disappearancePenalty(exp *lineage.Experiment, p lineage.Position) float64 {
	return pr.positionPenalty(exp, p, lineage.DataDisappearancePenalty, 0)
}

func (pr *Processor) divisionPenalty(exp *lineage.Experiment, p lineage.Position) float64 {
	return pr.positionPenalty(exp, p, lineage.DataDivisionPenalty, defaultDivisionPenalty)
}

// selectLink marks the link selected, adding it to the candidate pool first
// when it is not there yet. Degree violations are logged and skipped; the
// consistency checker flags whatever remains.
func (pr *Processor) selectLink(exp *lineage.Experiment, from, to lineage.Position) bool {
	if !exp.Links.ContainsLink(from, to) {
		if err := exp.Links.AddLink(from, to); err != nil {
			pr.log.Error("cannot add repair link",
				logging.String("from", from.String()),
				logging.String("to", to.String()),
				logging.Error(err))
			return false
		}
	}
	if err := exp.Links.SelectLink(from, to); err != nil {
		pr.log.Warn("repair link rejected by degree limits",
			logging.String("from", from.String()),
			logging.String("to", to.String()),
			logging.Error(err))
		return false
	}
	return true
}

// probabilityFromPenalty converts a penalty in log-odds units back to a
// probability.
func probabilityFromPenalty(penalty float64) float64 {
	return 1 / (1 + math.Pow(10, penalty))
}

// penaltyFromProbability is the inverse, guarded against the endpoints.
func penaltyFromProbability(p float64) float64 {
	const eps = 1e-10
	return math.Log10((1 - p + eps) / (p + eps))
}
