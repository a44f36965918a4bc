// Package flownet models cell tracking as a minimum-cost-flow problem and
// solves it. The formulation follows the generalized successive shortest
// paths approach for tracking dividing targets: every detection becomes a
// segmentation hypothesis with ignore, appearance, disappearance and
// (optionally) division costs, and every candidate link becomes a linking
// hypothesis with a link cost. The solver picks the set of links that
// minimizes total weighted cost under flow conservation.
package flownet

import (
	"errors"
	"fmt"
)

// SegmentationHypothesis is one detection offered to the solver. Costs are
// penalties in log-odds units; lower means more likely.
type SegmentationHypothesis struct {
	ID int // caller-assigned identity, echoed back in the result

	// IgnoreCost is paid when the detection is not used at all (a spurious
	// detection). Using the detection is free.
	IgnoreCost float64

	// AppearanceCost is paid when a track starts here; zero at the first
	// time point in range.
	AppearanceCost float64

	// DisappearanceCost is paid when a track ends here; zero at the last
	// time point in range.
	DisappearanceCost float64

	// DivisionCost is paid when the cell divides here. Only meaningful when
	// HasDivision is set; most hypotheses have no division option at all.
	DivisionCost float64
	HasDivision  bool

	TimeStep int
}

// LinkingHypothesis is one candidate identity connection between two
// segmentation hypotheses in different time points.
type LinkingHypothesis struct {
	Src, Dest int
	Cost      float64
}

// Problem is a complete min-cost-flow tracking problem.
type Problem struct {
	// StatesShareWeights mirrors the solver setting of the same name: all
	// hypotheses of one kind share one weight.
	StatesShareWeights bool

	SegmentationHypotheses []SegmentationHypothesis
	LinkingHypotheses      []LinkingHypothesis
}

// HasDivisions reports whether any segmentation hypothesis carries a division
// option.
func (p *Problem) HasDivisions() bool {
	for _, h := range p.SegmentationHypotheses {
		if h.HasDivision {
			return true
		}
	}
	return false
}

// Weights multiply the cost categories of the problem. All default to 1.
type Weights struct {
	Link          float64
	Detection     float64
	Division      float64
	Appearance    float64
	Disappearance float64
}

// DefaultWeights returns the neutral weight set.
func DefaultWeights() Weights {
	return Weights{Link: 1, Detection: 1, Division: 1, Appearance: 1, Disappearance: 1}
}

// ErrWeightVector is returned when the weight vector length does not match
// the problem's active feature set.
var ErrWeightVector = errors.New("weight vector length does not match feature set")

// Vector returns the ordered weight vector for a problem. The division entry
// is present only when the problem has division hypotheses, since the
// solver's vector length must match the active feature set.
func (w Weights) Vector(hasDivisions bool) []float64 {
	if hasDivisions {
		return []float64{w.Link, w.Detection, w.Division, w.Appearance, w.Disappearance}
	}
	return []float64{w.Link, w.Detection, w.Appearance, w.Disappearance}
}

// WeightsFromVector parses an ordered weight vector back into Weights,
// validating its length against the active feature set.
func WeightsFromVector(vector []float64, hasDivisions bool) (Weights, error) {
	if hasDivisions {
		if len(vector) != 5 {
			return Weights{}, fmt.Errorf("%w: want 5 entries for a problem with divisions, got %d",
				ErrWeightVector, len(vector))
		}
		return Weights{
			Link: vector[0], Detection: vector[1], Division: vector[2],
			Appearance: vector[3], Disappearance: vector[4],
		}, nil
	}
	if len(vector) != 4 {
		return Weights{}, fmt.Errorf("%w: want 4 entries for a problem without divisions, got %d",
			ErrWeightVector, len(vector))
	}
	return Weights{
		Link: vector[0], Detection: vector[1], Division: 0,
		Appearance: vector[2], Disappearance: vector[3],
	}, nil
}

// SelectedLink is one link chosen by the solver, identified by the
// segmentation hypothesis IDs it connects.
type SelectedLink struct {
	Src, Dest int
}
