package flownet

import (
	"context"
	"math"
)

// epsilon below which residual capacities and path gains are treated as zero.
const epsilon = 1e-9

// arc is one edge of the expanded flow network, kept with its residual state.
type arc struct {
	from, to  int
	cost      float64
	capacity  int
	flow      int
	linkIndex int // index into Problem.LinkingHypotheses, or -1
}

// solveFlowBased translates the problem into a flow network and runs
// successive shortest paths until no cost-reducing augmenting path remains.
//
// Network shape: every segmentation hypothesis i becomes an in/out node pair.
// The detection edge in->out (capacity 1) carries the negated ignore cost, so
// that routing flow through a detection recovers the penalty of calling it
// spurious. Appearance edges run source->in, disappearance edges out->sink
// and linking hypotheses out_i->in_j. A division hypothesis adds a second
// source->out_i edge: the extra unit injected at the out node is what permits
// one incoming and two outgoing links at a division.
//
// Shortest paths are computed with Bellman-Ford because detection edges are
// negative by construction. The context is checked between augmentations.
func solveFlowBased(ctx context.Context, p *Problem, w Weights) ([]SelectedLink, error) {
	const source, sink = 0, 1
	nodeCount := 2 + 2*len(p.SegmentationHypotheses)
	inNode := func(i int) int { return 2 + 2*i }
	outNode := func(i int) int { return 3 + 2*i }

	indexByID := make(map[int]int, len(p.SegmentationHypotheses))
	for i, h := range p.SegmentationHypotheses {
		indexByID[h.ID] = i
	}

	arcs := make([]arc, 0, 4*len(p.SegmentationHypotheses)+len(p.LinkingHypotheses))
	for i, h := range p.SegmentationHypotheses {
		arcs = append(arcs,
			arc{from: inNode(i), to: outNode(i), cost: -w.Detection * h.IgnoreCost, capacity: 1, linkIndex: -1},
			arc{from: source, to: inNode(i), cost: w.Appearance * h.AppearanceCost, capacity: 1, linkIndex: -1},
			arc{from: outNode(i), to: sink, cost: w.Disappearance * h.DisappearanceCost, capacity: 1, linkIndex: -1},
		)
		if h.HasDivision {
			arcs = append(arcs,
				arc{from: source, to: outNode(i), cost: w.Division * h.DivisionCost, capacity: 1, linkIndex: -1})
		}
	}
	for li, link := range p.LinkingHypotheses {
		srcIdx, okSrc := indexByID[link.Src]
		destIdx, okDest := indexByID[link.Dest]
		if !okSrc || !okDest {
			continue // link references a hypothesis that was never emitted
		}
		arcs = append(arcs,
			arc{from: outNode(srcIdx), to: inNode(destIdx), cost: w.Link * link.Cost, capacity: 1, linkIndex: li})
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, gain := shortestResidualPath(arcs, nodeCount, source, sink)
		if path == nil || gain >= -epsilon {
			break // no path left that lowers the total cost
		}
		for _, step := range path {
			if step.forward {
				arcs[step.arcIndex].flow++
			} else {
				arcs[step.arcIndex].flow--
			}
		}
	}

	var selected []SelectedLink
	for _, a := range arcs {
		if a.linkIndex >= 0 && a.flow > 0 {
			link := p.LinkingHypotheses[a.linkIndex]
			selected = append(selected, SelectedLink{Src: link.Src, Dest: link.Dest})
		}
	}
	return selected, nil
}

// pathStep records one residual arc traversal of an augmenting path.
type pathStep struct {
	arcIndex int
	forward  bool
}

// shortestResidualPath runs Bellman-Ford over the residual network and
// returns the cheapest source-to-sink path with its total cost, or nil when
// the sink is unreachable.
func shortestResidualPath(arcs []arc, nodeCount, source, sink int) ([]pathStep, float64) {
	dist := make([]float64, nodeCount)
	via := make([]pathStep, nodeCount)
	reached := make([]bool, nodeCount)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	dist[source] = 0
	reached[source] = true

	for round := 0; round < nodeCount; round++ {
		improved := false
		for i := range arcs {
			a := &arcs[i]
			// Forward residual: unused capacity.
			if a.capacity-a.flow > 0 && reached[a.from] && dist[a.from]+a.cost < dist[a.to]-epsilon {
				dist[a.to] = dist[a.from] + a.cost
				via[a.to] = pathStep{arcIndex: i, forward: true}
				reached[a.to] = true
				improved = true
			}
			// Backward residual: cancel existing flow.
			if a.flow > 0 && reached[a.to] && dist[a.to]-a.cost < dist[a.from]-epsilon {
				dist[a.from] = dist[a.to] - a.cost
				via[a.from] = pathStep{arcIndex: i, forward: false}
				reached[a.from] = true
				improved = true
			}
		}
		if !improved {
			break
		}
	}

	if !reached[sink] {
		return nil, 0
	}
	var path []pathStep
	node := sink
	for node != source {
		step := via[node]
		path = append(path, step)
		if step.forward {
			node = arcs[step.arcIndex].from
		} else {
			node = arcs[step.arcIndex].to
		}
	}
	return path, dist[sink]
}
