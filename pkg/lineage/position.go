package lineage

import (
	"fmt"
	"math"
)

// Position identifies one detected nucleus at one (x, y, z, time) point.
// It is a value type: equality and map keys are by coordinates plus time
// point. Positions are never mutated, only replaced.
type Position struct {
	X, Y, Z float64
	T       int // time point number
}

// String returns a compact representation for logs and error messages.
func (p Position) String() string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f) @ t%d", p.X, p.Y, p.Z, p.T)
}

// DistanceUm returns the physical distance to the other position in
// micrometers, using the given resolution.
func (p Position) DistanceUm(other Position, res Resolution) float64 {
	dx := (p.X - other.X) * res.PixelSizeXUm
	dy := (p.Y - other.Y) * res.PixelSizeYUm
	dz := (p.Z - other.Z) * res.PixelSizeZUm
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Midpoint returns a synthesized position halfway between a and b, placed in
// the time point directly after a. Coordinates are rounded to whole pixels,
// matching the detections produced upstream.
func Midpoint(a, b Position) Position {
	return Position{
		X: math.Round(0.5*a.X + 0.5*b.X),
		Y: math.Round(0.5*a.Y + 0.5*b.Y),
		Z: math.Round(0.5*a.Z + 0.5*b.Z),
		T: a.T + 1,
	}
}

// positionLess gives a stable ordering for positions: by time point first,
// then by coordinates. Used to make pass iteration deterministic.
func positionLess(a, b Position) bool {
	if a.T != b.T {
		return a.T < b.T
	}
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

// Resolution converts pixel coordinates and time point numbers into physical
// units.
type Resolution struct {
	PixelSizeXUm       float64
	PixelSizeYUm       float64
	PixelSizeZUm       float64
	TimePointIntervalM float64 // minutes between two time points
}

// TimePointIntervalH returns the time between two time points in hours.
func (r Resolution) TimePointIntervalH() float64 {
	return r.TimePointIntervalM / 60
}

// Bounds describes the imaged volume in pixels. The tracking core never reads
// images; it only needs the extent to judge how close a detection sits to the
// volume boundary.
type Bounds struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

// Contains reports whether the position lies inside the bounds, shrunk on all
// XY sides by marginXY pixels.
func (b Bounds) Contains(p Position, marginXY float64) bool {
	return p.X >= b.MinX+marginXY && p.X <= b.MaxX-marginXY &&
		p.Y >= b.MinY+marginXY && p.Y <= b.MaxY-marginXY &&
		p.Z >= b.MinZ && p.Z <= b.MaxZ
}
