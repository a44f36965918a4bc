package linker

import (
	"math"

	"github.com/tdebruin/celltrack/pkg/lineage"
)

// bufferDistanceUm is the distance from the volume boundary within which a
// cell can plausibly move in or out of view between frames.
const bufferDistanceUm = 5.0

// CalculateBoundaryPenalties writes a penalty under the given key for every
// position, based on its distance to the imaged volume's boundary. Positions
// near an edge get a low penalty since cells really do enter and leave there;
// positions deep inside the volume get the penalty that corresponds to
// minProbability.
func CalculateBoundaryPenalties(exp *lineage.Experiment, bounds lineage.Bounds, minProbability float64, key string) {
	res := exp.Resolution
	for _, p := range exp.Positions.All() {
		distances := []float64{
			(bounds.MaxX - p.X) * res.PixelSizeXUm,
			(bounds.MaxY - p.Y) * res.PixelSizeYUm,
			(bounds.MaxZ - p.Z) * res.PixelSizeZUm,
			(p.X - bounds.MinX) * res.PixelSizeXUm,
			(p.Y - bounds.MinY) * res.PixelSizeYUm,
			(p.Z - bounds.MinZ) * res.PixelSizeZUm,
		}
		minDistance := distances[0]
		for _, d := range distances[1:] {
			if d < minDistance {
				minDistance = d
			}
		}

		probability := minProbability
		if minDistance < bufferDistanceUm {
			probability = 0.5*(1-minDistance/bufferDistanceUm) + minProbability
		}

		exp.PositionData.Set(p, key, PenaltyFromProbability(probability))
	}
}

// CalculateAppearancePenalties writes appearance and disappearance penalties
// for every position from its distance to the volume boundary.
func CalculateAppearancePenalties(exp *lineage.Experiment, bounds lineage.Bounds, minAppearanceProbability, minDisappearanceProbability float64) {
	CalculateBoundaryPenalties(exp, bounds, minAppearanceProbability, lineage.DataAppearancePenalty)
	CalculateBoundaryPenalties(exp, bounds, minDisappearanceProbability, lineage.DataDisappearancePenalty)
}

// PenaltyFromProbability converts a probability to a penalty in log-odds
// units. Lower penalties mean the event is more likely to happen.
func PenaltyFromProbability(p float64) float64 {
	return -math.Log10(p) + math.Log10(1-p)
}

// ProbabilityFromPenalty is the inverse of PenaltyFromProbability.
func ProbabilityFromPenalty(penalty float64) float64 {
	return 1 / (1 + math.Pow(10, penalty))
}
