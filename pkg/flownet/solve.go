package flownet

import (
	"context"
)

// Solve runs the given method on the problem. The weight vector must match
// the problem's active feature set: five entries (link, detection, division,
// appearance, disappearance) when the problem carries division hypotheses,
// four entries (division omitted) otherwise. The call blocks until the solve
// completes or the context is cancelled.
func Solve(ctx context.Context, p *Problem, weightVector []float64, method Method) ([]SelectedLink, error) {
	weights, err := WeightsFromVector(weightVector, p.HasDivisions())
	if err != nil {
		return nil, err
	}
	switch method {
	case MethodMagnusson:
		return solveMagnusson(ctx, p, weights)
	default:
		return solveFlowBased(ctx, p, weights)
	}
}
