package bubblemind

import "math"

// GestureKind is the classification of a finished stroke.
type GestureKind uint8

const (
	GestureNone GestureKind = iota
	GestureCircle
	GestureConnection
)

func (k GestureKind) String() string {
	switch k {
	case GestureCircle:
		return "circle"
	case GestureConnection:
		return "connection"
	}
	return "none"
}

// Gesture is the result of classifying a stroke. Bounds is set for circles;
// From and To are set for connections.
type Gesture struct {
	Kind   GestureKind
	Bounds Rect
	From   *Node
	To     *Node
}

// Center returns the circle's bounding box center.
func (g Gesture) Center() Vec2 { return g.Bounds.Center() }

// Diameter returns the larger side of the circle's bounding box.
func (g Gesture) Diameter() float64 { return math.Max(g.Bounds.Width, g.Bounds.Height) }

// ClassifierConfig holds the stroke heuristics. Zero fields take defaults.
type ClassifierConfig struct {
	MinCirclePoints     int     // default 20
	MaxAspectRatio      float64 // default 1.5
	CircleThreshold     float64 // default 0.25; fraction of points allowed off the ring
	RingInner           float64 // default 0.7; exclusive lower bound of d/radius
	RingOuter           float64 // default 1.3; exclusive upper bound of d/radius
	MinConnectionPoints int     // default 10
	MinConnectionLength float64 // default 50
}

// DefaultClassifierConfig returns the stock heuristics.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		MinCirclePoints:     20,
		MaxAspectRatio:      1.5,
		CircleThreshold:     0.25,
		RingInner:           0.7,
		RingOuter:           1.3,
		MinConnectionPoints: 10,
		MinConnectionLength: 50,
	}
}

func (c ClassifierConfig) withDefaults() ClassifierConfig {
	d := DefaultClassifierConfig()
	if c.MinCirclePoints <= 0 {
		c.MinCirclePoints = d.MinCirclePoints
	}
	if c.MaxAspectRatio <= 0 {
		c.MaxAspectRatio = d.MaxAspectRatio
	}
	if c.CircleThreshold <= 0 {
		c.CircleThreshold = d.CircleThreshold
	}
	if c.RingInner <= 0 {
		c.RingInner = d.RingInner
	}
	if c.RingOuter <= 0 {
		c.RingOuter = d.RingOuter
	}
	if c.MinConnectionPoints <= 0 {
		c.MinConnectionPoints = d.MinConnectionPoints
	}
	if c.MinConnectionLength <= 0 {
		c.MinConnectionLength = d.MinConnectionLength
	}
	return c
}

// Classifier turns finished strokes into gestures. Connection endpoints are
// resolved against the graph it was built with.
type Classifier struct {
	graph *Graph
	cfg   ClassifierConfig
}

// NewClassifier creates a classifier bound to g.
func NewClassifier(g *Graph, cfg ClassifierConfig) *Classifier {
	return &Classifier{graph: g, cfg: cfg.withDefaults()}
}

// Config returns the effective heuristics.
func (c *Classifier) Config() ClassifierConfig { return c.cfg }

// Classify inspects a stroke in logical coordinates. Circles are tested
// first so a loop drawn around existing bubbles never reads as a connector.
func (c *Classifier) Classify(path []Vec2) Gesture {
	if b, ok := c.circleBounds(path); ok {
		return Gesture{Kind: GestureCircle, Bounds: b}
	}
	if from, to, ok := c.connection(path); ok {
		return Gesture{Kind: GestureConnection, From: from, To: to}
	}
	return Gesture{Kind: GestureNone}
}

// IsCircle reports whether path reads as a closed loop.
func (c *Classifier) IsCircle(path []Vec2) bool {
	_, ok := c.circleBounds(path)
	return ok
}

func (c *Classifier) circleBounds(path []Vec2) (Rect, bool) {
	if len(path) < c.cfg.MinCirclePoints {
		return Rect{}, false
	}
	b := PathBounds(path)
	short := math.Min(b.Width, b.Height)
	long := math.Max(b.Width, b.Height)
	if short <= 0 || long/short > c.cfg.MaxAspectRatio {
		return Rect{}, false
	}

	center := b.Center()
	radius := long / 2
	onRing := 0
	for _, p := range path {
		r := Distance(center, p) / radius
		if r > c.cfg.RingInner && r < c.cfg.RingOuter {
			onRing++
		}
	}
	ratio := float64(onRing) / float64(len(path))
	return b, ratio > 1-c.cfg.CircleThreshold
}

func (c *Classifier) connection(path []Vec2) (*Node, *Node, bool) {
	if len(path) < c.cfg.MinConnectionPoints {
		return nil, nil, false
	}
	first, last := path[0], path[len(path)-1]
	if Distance(first, last) < c.cfg.MinConnectionLength {
		return nil, nil, false
	}
	if c.graph == nil {
		return nil, nil, false
	}
	from := c.graph.FindNodeAt(first.X, first.Y)
	to := c.graph.FindNodeAt(last.X, last.Y)
	if from == nil || to == nil || from == to {
		return nil, nil, false
	}
	return from, to, true
}
