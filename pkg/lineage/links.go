package lineage

import (
	"sort"
)

// LinkGraph holds the candidate link pool of an experiment as one directed
// graph, keyed by position. Every edge runs from an earlier to a later time
// point. Each edge carries a selected flag: the selected subgraph is the
// lineage chosen by the solver and repaired by post-processing, while the
// full edge set remains available as the candidate pool for re-examination.
//
// Degree invariants are enforced on the selected subgraph only: a position
// keeps at most two selected successors (a division) and at most one selected
// predecessor (no merges). SelectLink rejects violations.
type LinkGraph struct {
	futures map[Position]map[Position]bool // earlier -> later -> selected
	pasts   map[Position]map[Position]bool // later -> earlier -> selected

	linkCount     int
	selectedCount int
}

// NewLinkGraph creates an empty graph.
func NewLinkGraph() *LinkGraph {
	return &LinkGraph{
		futures: make(map[Position]map[Position]bool),
		pasts:   make(map[Position]map[Position]bool),
	}
}

// order returns the pair with the earlier position first.
func order(p1, p2 Position) (Position, Position) {
	if p2.T < p1.T {
		return p2, p1
	}
	return p1, p2
}

// AddLink adds an unselected candidate link between the two positions. The
// earlier position is stored as the source regardless of argument order.
// Linking two positions in the same time point is an error.
func (g *LinkGraph) AddLink(p1, p2 Position) error {
	if p1.T == p2.T {
		return &TrackingError{Op: "AddLink", Position: p1, Cause: ErrSameTimePoint}
	}
	p1, p2 = order(p1, p2)
	if _, ok := g.futures[p1][p2]; ok {
		return nil
	}
	if g.futures[p1] == nil {
		g.futures[p1] = make(map[Position]bool)
	}
	if g.pasts[p2] == nil {
		g.pasts[p2] = make(map[Position]bool)
	}
	g.futures[p1][p2] = false
	g.pasts[p2][p1] = false
	g.linkCount++
	return nil
}

// RemoveLink drops the candidate link entirely, selected or not.
func (g *LinkGraph) RemoveLink(p1, p2 Position) {
	p1, p2 = order(p1, p2)
	selected, ok := g.futures[p1][p2]
	if !ok {
		return
	}
	if selected {
		g.selectedCount--
	}
	delete(g.futures[p1], p2)
	delete(g.pasts[p2], p1)
	if len(g.futures[p1]) == 0 {
		delete(g.futures, p1)
	}
	if len(g.pasts[p2]) == 0 {
		delete(g.pasts, p2)
	}
	g.linkCount--
}

// ContainsLink reports whether the candidate link exists, in either argument
// order.
func (g *LinkGraph) ContainsLink(p1, p2 Position) bool {
	p1, p2 = order(p1, p2)
	_, ok := g.futures[p1][p2]
	return ok
}

// IsSelected reports whether the link exists and is part of the lineage.
func (g *LinkGraph) IsSelected(p1, p2 Position) bool {
	p1, p2 = order(p1, p2)
	return g.futures[p1][p2]
}

// SelectLink marks the link as part of the lineage, adding it to the
// candidate pool first if necessary. It rejects a third selected successor
// on the source and a second selected predecessor on the destination, so a
// biologically impossible topology cannot be built through this method.
func (g *LinkGraph) SelectLink(p1, p2 Position) error {
	if p1.T == p2.T {
		return &TrackingError{Op: "SelectLink", Position: p1, Cause: ErrSameTimePoint}
	}
	p1, p2 = order(p1, p2)
	if g.futures[p1][p2] {
		return nil
	}
	if len(g.selectedIn(g.futures[p1])) >= 2 {
		return &TrackingError{Op: "SelectLink", Position: p1, Cause: ErrTooManyDaughters}
	}
	if len(g.selectedIn(g.pasts[p2])) >= 1 {
		return &TrackingError{Op: "SelectLink", Position: p2, Cause: ErrCellMerge}
	}
	if err := g.AddLink(p1, p2); err != nil {
		return err
	}
	g.futures[p1][p2] = true
	g.pasts[p2][p1] = true
	g.selectedCount++
	return nil
}

// ImportSelectedLink adds and selects a link without degree checking. It
// exists for ingesting externally produced lineages (manual edits, data from
// other tools) that may contain the very topology violations the consistency
// checker reports on. New lineage edits made by this package itself go
// through SelectLink.
func (g *LinkGraph) ImportSelectedLink(p1, p2 Position) error {
	if err := g.AddLink(p1, p2); err != nil {
		return err
	}
	p1, p2 = order(p1, p2)
	if !g.futures[p1][p2] {
		g.futures[p1][p2] = true
		g.pasts[p2][p1] = true
		g.selectedCount++
	}
	return nil
}

// DeselectLink removes the link from the lineage but keeps it as a candidate.
func (g *LinkGraph) DeselectLink(p1, p2 Position) {
	p1, p2 = order(p1, p2)
	if g.futures[p1][p2] {
		g.futures[p1][p2] = false
		g.pasts[p2][p1] = false
		g.selectedCount--
	}
}

func (g *LinkGraph) selectedIn(edges map[Position]bool) []Position {
	var result []Position
	for p, selected := range edges {
		if selected {
			result = append(result, p)
		}
	}
	return result
}

func sortedKeys(edges map[Position]bool, selectedOnly bool) []Position {
	result := make([]Position, 0, len(edges))
	for p, selected := range edges {
		if selectedOnly && !selected {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return positionLess(result[i], result[j]) })
	return result
}

// FindFutures returns all candidate successors of the position.
func (g *LinkGraph) FindFutures(p Position) []Position {
	return sortedKeys(g.futures[p], false)
}

// FindPasts returns all candidate predecessors of the position.
func (g *LinkGraph) FindPasts(p Position) []Position {
	return sortedKeys(g.pasts[p], false)
}

// FindSelectedFutures returns the successors of the position in the lineage.
func (g *LinkGraph) FindSelectedFutures(p Position) []Position {
	return sortedKeys(g.futures[p], true)
}

// FindSelectedPasts returns the predecessors of the position in the lineage.
func (g *LinkGraph) FindSelectedPasts(p Position) []Position {
	return sortedKeys(g.pasts[p], true)
}

// FindSingleSelectedFuture returns the only selected successor, if there is
// exactly one.
func (g *LinkGraph) FindSingleSelectedFuture(p Position) (Position, bool) {
	futures := g.FindSelectedFutures(p)
	if len(futures) == 1 {
		return futures[0], true
	}
	return Position{}, false
}

// FindSingleSelectedPast returns the only selected predecessor, if there is
// exactly one.
func (g *LinkGraph) FindSingleSelectedPast(p Position) (Position, bool) {
	pasts := g.FindSelectedPasts(p)
	if len(pasts) == 1 {
		return pasts[0], true
	}
	return Position{}, false
}

// FindLinksOf returns all lineage neighbours of the position, past and
// future.
func (g *LinkGraph) FindLinksOf(p Position) []Position {
	neighbours := g.FindSelectedPasts(p)
	neighbours = append(neighbours, g.FindSelectedFutures(p)...)
	return neighbours
}

// ContainsPosition reports whether the position has any candidate link.
func (g *LinkGraph) ContainsPosition(p Position) bool {
	return len(g.futures[p]) > 0 || len(g.pasts[p]) > 0
}

// HasSelectedLink reports whether the position takes part in the lineage.
func (g *LinkGraph) HasSelectedLink(p Position) bool {
	for _, selected := range g.futures[p] {
		if selected {
			return true
		}
	}
	for _, selected := range g.pasts[p] {
		if selected {
			return true
		}
	}
	return false
}

// LinkCount returns the number of candidate links.
func (g *LinkGraph) LinkCount() int {
	return g.linkCount
}

// SelectedCount returns the number of links in the lineage.
func (g *LinkGraph) SelectedCount() int {
	return g.selectedCount
}

// HasSelectedLinks reports whether any lineage link exists at all.
func (g *LinkGraph) HasSelectedLinks() bool {
	return g.selectedCount > 0
}

// Link is one directed candidate connection between two time points.
type Link struct {
	From, To Position
	Selected bool
}

// AllPositions returns every position with at least one candidate link,
// ordered by time point and coordinates.
func (g *LinkGraph) AllPositions() []Position {
	seen := make(map[Position]struct{}, len(g.futures)+len(g.pasts))
	for p := range g.futures {
		seen[p] = struct{}{}
	}
	for p := range g.pasts {
		seen[p] = struct{}{}
	}
	result := make([]Position, 0, len(seen))
	for p := range seen {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return positionLess(result[i], result[j]) })
	return result
}

// AllLinks returns every candidate link, ordered by source then destination.
func (g *LinkGraph) AllLinks() []Link {
	links := make([]Link, 0, g.linkCount)
	for from, edges := range g.futures {
		for to, selected := range edges {
			links = append(links, Link{From: from, To: to, Selected: selected})
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].From != links[j].From {
			return positionLess(links[i].From, links[j].From)
		}
		return positionLess(links[i].To, links[j].To)
	})
	return links
}

// SelectedLinks returns every lineage link, ordered.
func (g *LinkGraph) SelectedLinks() []Link {
	links := make([]Link, 0, g.selectedCount)
	for _, link := range g.AllLinks() {
		if link.Selected {
			links = append(links, link)
		}
	}
	return links
}

// FindAppearedPositions returns positions that have selected links but no
// selected predecessor, skipping the given time point (normally the first
// one, where every track legitimately starts).
func (g *LinkGraph) FindAppearedPositions(ignoreTimePoint int) []Position {
	var result []Position
	for _, p := range g.AllPositions() {
		if p.T == ignoreTimePoint || !g.HasSelectedLink(p) {
			continue
		}
		if len(g.FindSelectedPasts(p)) == 0 {
			result = append(result, p)
		}
	}
	return result
}

// FindDisappearedPositions returns positions that have selected links but no
// selected successor, skipping the given time point.
func (g *LinkGraph) FindDisappearedPositions(ignoreTimePoint int) []Position {
	var result []Position
	for _, p := range g.AllPositions() {
		if p.T == ignoreTimePoint || !g.HasSelectedLink(p) {
			continue
		}
		if len(g.FindSelectedFutures(p)) == 0 {
			result = append(result, p)
		}
	}
	return result
}

// RemoveLinksOfPosition drops all candidate links touching the position.
func (g *LinkGraph) RemoveLinksOfPosition(p Position) {
	for _, future := range g.FindFutures(p) {
		g.RemoveLink(p, future)
	}
	for _, past := range g.FindPasts(p) {
		g.RemoveLink(past, p)
	}
}

// SelectedOnly exports the lineage as a standalone graph without the
// unselected candidate pool.
func (g *LinkGraph) SelectedOnly() *LinkGraph {
	result := NewLinkGraph()
	for _, link := range g.SelectedLinks() {
		_ = result.ImportSelectedLink(link.From, link.To)
	}
	return result
}

// Copy returns an independent copy of the graph.
func (g *LinkGraph) Copy() *LinkGraph {
	clone := NewLinkGraph()
	for from, edges := range g.futures {
		cloneEdges := make(map[Position]bool, len(edges))
		for to, selected := range edges {
			cloneEdges[to] = selected
		}
		clone.futures[from] = cloneEdges
	}
	for to, edges := range g.pasts {
		cloneEdges := make(map[Position]bool, len(edges))
		for from, selected := range edges {
			cloneEdges[from] = selected
		}
		clone.pasts[to] = cloneEdges
	}
	clone.linkCount = g.linkCount
	clone.selectedCount = g.selectedCount
	return clone
}
