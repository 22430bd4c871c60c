package core

import (
	"math"

	"github.com/dimalipin/netviz/model"
)

// Clamp01 limits t to the closed interval [0, 1].
func Clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// Lerp linearly interpolates between a and b. t is not clamped.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// LerpPosition returns the point at fraction t along the segment start->end.
// t is clamped to [0, 1] so the result always lies on the segment.
func LerpPosition(start, end model.Position, t float64) model.Position {
	t = Clamp01(t)
	return model.Position{
		X: Lerp(start.X, end.X, t),
		Y: Lerp(start.Y, end.Y, t),
	}
}

// Distance returns the straight-line distance between two points.
func Distance(a, b model.Position) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// OnSegment reports whether p lies on the segment a->b within eps pixels.
func OnSegment(p, a, b model.Position, eps float64) bool {
	return math.Abs(Distance(a, p)+Distance(p, b)-Distance(a, b)) <= eps
}
