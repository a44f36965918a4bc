package lineage

// A Track is a maximal division-free run of linked positions in the lineage.
// A mother position (two selected successors) is the last position of its
// track; each daughter starts a new track. Tracks are computed on demand by
// walking the selected subgraph, they are not stored.
type Track struct {
	positions []Position // ordered by time point
	graph     *LinkGraph
}

// TrackOf returns the track containing the position, or nil when the position
// has no selected links at all.
func (g *LinkGraph) TrackOf(p Position) *Track {
	if !g.HasSelectedLink(p) {
		return nil
	}

	// Walk back to the first position of the track.
	first := p
	for {
		past, ok := g.FindSingleSelectedPast(first)
		if !ok {
			break
		}
		if len(g.FindSelectedFutures(past)) != 1 {
			break // past is a mother, the track starts here
		}
		first = past
	}

	positions := []Position{first}
	current := first
	for {
		if len(g.FindSelectedFutures(current)) != 1 {
			break // division or track end
		}
		next, _ := g.FindSingleSelectedFuture(current)
		if len(g.FindSelectedPasts(next)) != 1 {
			break // merge boundary, keep it out of this track
		}
		positions = append(positions, next)
		current = next
	}
	return &Track{positions: positions, graph: g}
}

// Positions returns the track's positions, earliest first.
func (t *Track) Positions() []Position {
	result := make([]Position, len(t.positions))
	copy(result, t.positions)
	return result
}

// First returns the earliest position of the track.
func (t *Track) First() Position {
	return t.positions[0]
}

// Last returns the latest position of the track.
func (t *Track) Last() Position {
	return t.positions[len(t.positions)-1]
}

// Len returns the track length in time points.
func (t *Track) Len() int {
	return len(t.positions)
}

// FirstTimePointNumber returns the time point of the track's first position.
func (t *Track) FirstTimePointNumber() int {
	return t.First().T
}

// LastTimePointNumber returns the time point of the track's last position.
func (t *Track) LastTimePointNumber() int {
	return t.Last().T
}

// PositionAt returns the track position at the given time point.
func (t *Track) PositionAt(timePoint int) (Position, bool) {
	index := timePoint - t.First().T
	if index < 0 || index >= len(t.positions) {
		return Position{}, false
	}
	return t.positions[index], true
}

// NextTracks returns the tracks directly following this one. Two next tracks
// mean the track ends in a division.
func (t *Track) NextTracks() []*Track {
	var result []*Track
	for _, daughter := range t.graph.FindSelectedFutures(t.Last()) {
		if next := t.graph.TrackOf(daughter); next != nil {
			result = append(result, next)
		} else {
			// Daughter with no further links still forms a one-position track.
			result = append(result, &Track{positions: []Position{daughter}, graph: t.graph})
		}
	}
	return result
}

// DescendingPositions returns the positions of every track descending from
// this one, this track excluded.
func (t *Track) DescendingPositions() []Position {
	var result []Position
	for _, next := range t.NextTracks() {
		result = append(result, next.positions...)
		result = append(result, next.DescendingPositions()...)
	}
	return result
}

// IterateToPast returns the position followed by its track predecessors,
// walking single selected links backwards and stopping at a division (the
// mother belongs to its own track) or a track start.
func (g *LinkGraph) IterateToPast(p Position) []Position {
	result := []Position{p}
	current := p
	for {
		past, ok := g.FindSingleSelectedPast(current)
		if !ok {
			break
		}
		if len(g.FindSelectedFutures(past)) != 1 {
			break
		}
		result = append(result, past)
		current = past
	}
	return result
}

// IterateToFuture returns the position followed by its track successors,
// walking single selected links forwards and stopping at a division or track
// end.
func (g *LinkGraph) IterateToFuture(p Position) []Position {
	result := []Position{p}
	current := p
	for {
		next, ok := g.FindSingleSelectedFuture(current)
		if !ok {
			break
		}
		result = append(result, next)
		current = next
	}
	return result
}

// FindMothers returns every position with two selected successors. With
// excludeMultipolar set, positions with more than two successors (which can
// only come from imported data) are skipped rather than treated as mothers.
func (g *LinkGraph) FindMothers(excludeMultipolar bool) []Position {
	var result []Position
	for _, p := range g.AllPositions() {
		n := len(g.FindSelectedFutures(p))
		if n == 2 || (n > 2 && !excludeMultipolar) {
			result = append(result, p)
		}
	}
	return result
}

// AgeSinceDivision returns the number of time points since the last division
// upstream of the position. The second return value is false when the
// position's track did not start with a division, in which case the cell
// cycle length is unknown.
func (g *LinkGraph) AgeSinceDivision(p Position) (int, bool) {
	track := g.TrackOf(p)
	if track == nil {
		return 0, false
	}
	first := track.First()
	mother, ok := g.FindSingleSelectedPast(first)
	if !ok {
		return 0, false
	}
	if len(g.FindSelectedFutures(mother)) < 2 {
		return 0, false
	}
	return p.T - first.T, true
}
