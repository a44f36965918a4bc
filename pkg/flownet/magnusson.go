package flownet

import (
	"context"
	"sort"
)

// solveMagnusson accepts linking hypotheses greedily in ascending weighted
// cost order, respecting the degree constraints directly instead of solving a
// flow relaxation: at most one incoming link per detection, at most one
// outgoing link unless a division hypothesis pays for a second one. A link is
// only accepted when it beats the do-nothing alternative of ending one track
// and starting another.
func solveMagnusson(ctx context.Context, p *Problem, w Weights) ([]SelectedLink, error) {
	byID := make(map[int]SegmentationHypothesis, len(p.SegmentationHypotheses))
	for _, h := range p.SegmentationHypotheses {
		byID[h.ID] = h
	}

	order := make([]int, len(p.LinkingHypotheses))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		la, lb := p.LinkingHypotheses[order[a]], p.LinkingHypotheses[order[b]]
		ca, cb := w.Link*la.Cost, w.Link*lb.Cost
		if ca != cb {
			return ca < cb
		}
		if la.Src != lb.Src {
			return la.Src < lb.Src
		}
		return la.Dest < lb.Dest
	})

	outCount := make(map[int]int)
	inCount := make(map[int]int)
	var selected []SelectedLink

	for _, idx := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		link := p.LinkingHypotheses[idx]
		src, okSrc := byID[link.Src]
		dest, okDest := byID[link.Dest]
		if !okSrc || !okDest {
			continue
		}
		if inCount[link.Dest] >= 1 {
			continue // never build a merge
		}
		linkCost := w.Link * link.Cost
		switch outCount[link.Src] {
		case 0:
			// Worth linking at all? The alternative is a track end plus a
			// track start.
			breakCost := w.Disappearance*src.DisappearanceCost + w.Appearance*dest.AppearanceCost
			if linkCost >= breakCost {
				continue
			}
		case 1:
			// A second outgoing link needs a division hypothesis that,
			// together with the link, is cheaper than the daughter appearing
			// on its own.
			if !src.HasDivision {
				continue
			}
			if w.Division*src.DivisionCost+linkCost >= w.Appearance*dest.AppearanceCost {
				continue
			}
		default:
			continue
		}
		outCount[link.Src]++
		inCount[link.Dest]++
		selected = append(selected, SelectedLink{Src: link.Src, Dest: link.Dest})
	}
	return selected, nil
}
