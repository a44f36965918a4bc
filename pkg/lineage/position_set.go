package lineage

import (
	"sort"
)

// PositionSet holds all detected positions of an experiment, bucketed per
// time point.
type PositionSet struct {
	byTime map[int]map[Position]struct{}
	count  int
}

// NewPositionSet creates an empty position set.
func NewPositionSet() *PositionSet {
	return &PositionSet{byTime: make(map[int]map[Position]struct{})}
}

// Add inserts a position. Adding a position twice is a no-op.
func (s *PositionSet) Add(p Position) {
	bucket := s.byTime[p.T]
	if bucket == nil {
		bucket = make(map[Position]struct{})
		s.byTime[p.T] = bucket
	}
	if _, ok := bucket[p]; !ok {
		bucket[p] = struct{}{}
		s.count++
	}
}

// Remove deletes a position. Removing an absent position is a no-op.
func (s *PositionSet) Remove(p Position) {
	bucket := s.byTime[p.T]
	if bucket == nil {
		return
	}
	if _, ok := bucket[p]; ok {
		delete(bucket, p)
		s.count--
		if len(bucket) == 0 {
			delete(s.byTime, p.T)
		}
	}
}

// Contains reports whether the position is part of the set.
func (s *PositionSet) Contains(p Position) bool {
	_, ok := s.byTime[p.T][p]
	return ok
}

// Len returns the number of positions in the set.
func (s *PositionSet) Len() int {
	return s.count
}

// TimePoints returns all time point numbers that hold positions, ascending.
func (s *PositionSet) TimePoints() []int {
	points := make([]int, 0, len(s.byTime))
	for t := range s.byTime {
		points = append(points, t)
	}
	sort.Ints(points)
	return points
}

// FirstTimePointNumber returns the lowest time point with positions, or 0 for
// an empty set.
func (s *PositionSet) FirstTimePointNumber() int {
	first, found := 0, false
	for t := range s.byTime {
		if !found || t < first {
			first, found = t, true
		}
	}
	return first
}

// LastTimePointNumber returns the highest time point with positions, or 0 for
// an empty set.
func (s *PositionSet) LastTimePointNumber() int {
	last, found := 0, false
	for t := range s.byTime {
		if !found || t > last {
			last, found = t, true
		}
	}
	return last
}

// OfTimePoint returns the positions at the given time point in stable order.
func (s *PositionSet) OfTimePoint(t int) []Position {
	bucket := s.byTime[t]
	positions := make([]Position, 0, len(bucket))
	for p := range bucket {
		positions = append(positions, p)
	}
	sort.Slice(positions, func(i, j int) bool { return positionLess(positions[i], positions[j]) })
	return positions
}

// All returns every position, ordered by time point and then coordinates.
func (s *PositionSet) All() []Position {
	positions := make([]Position, 0, s.count)
	for _, t := range s.TimePoints() {
		positions = append(positions, s.OfTimePoint(t)...)
	}
	return positions
}

// ClosestN returns up to maxAmount positions at the given time point, closest
// to the around position first. When maxDistanceUm is positive, candidates
// further away than that are skipped.
func (s *PositionSet) ClosestN(t int, around Position, maxAmount int, maxDistanceUm float64, res Resolution) []Position {
	type candidate struct {
		pos      Position
		distance float64
	}
	candidates := make([]candidate, 0)
	for p := range s.byTime[t] {
		if p == around {
			continue
		}
		d := around.DistanceUm(p, res)
		if maxDistanceUm > 0 && d > maxDistanceUm {
			continue
		}
		candidates = append(candidates, candidate{p, d})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return positionLess(candidates[i].pos, candidates[j].pos)
	})
	if maxAmount > 0 && len(candidates) > maxAmount {
		candidates = candidates[:maxAmount]
	}
	result := make([]Position, len(candidates))
	for i, c := range candidates {
		result[i] = c.pos
	}
	return result
}

// Copy returns an independent copy of the set.
func (s *PositionSet) Copy() *PositionSet {
	clone := NewPositionSet()
	for t, bucket := range s.byTime {
		cloneBucket := make(map[Position]struct{}, len(bucket))
		for p := range bucket {
			cloneBucket[p] = struct{}{}
		}
		clone.byTime[t] = cloneBucket
	}
	clone.count = s.count
	return clone
}
