package bubblemind

import (
	"math"

	"github.com/google/uuid"
)

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vec2) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// PathBounds returns the axis-aligned bounding box of a path.
// An empty path yields the zero Rect.
func PathBounds(path []Vec2) Rect {
	if len(path) == 0 {
		return Rect{}
	}
	minX, minY := path[0].X, path[0].Y
	maxX, maxY := minX, minY
	for _, p := range path[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// PathLength returns the summed segment length of a path.
func PathLength(path []Vec2) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += Distance(path[i-1], path[i])
	}
	return total
}

// ClampSize limits a bubble diameter to [MinBubbleSize, MaxBubbleSize].
func ClampSize(size float64) float64 {
	return math.Max(MinBubbleSize, math.Min(MaxBubbleSize, size))
}

// NewID returns a fresh client-side identifier.
func NewID() string {
	return uuid.NewString()
}

// CirclePath returns n points evenly spaced on a circle, starting at angle 0.
// Used by scripted gestures and tests.
func CirclePath(center Vec2, radius float64, n int) []Vec2 {
	pts := make([]Vec2, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = Vec2{center.X + radius*math.Cos(a), center.Y + radius*math.Sin(a)}
	}
	return pts
}

// LinePath returns n points linearly interpolated from a to b inclusive.
func LinePath(a, b Vec2, n int) []Vec2 {
	if n < 2 {
		return []Vec2{a}
	}
	pts := make([]Vec2, n)
	for i := range pts {
		t := float64(i) / float64(n-1)
		pts[i] = Vec2{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t}
	}
	return pts
}
