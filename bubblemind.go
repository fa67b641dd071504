package bubblemind

import "strings"

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the default ink background.
var ColorWhite = Color{1, 1, 1, 1}

// Palette holds the bubble fill colors. Node.Color indexes into it.
var Palette = [...]Color{
	{0.36, 0.62, 0.96, 1}, // blue
	{0.40, 0.80, 0.52, 1}, // green
	{0.64, 0.48, 0.90, 1}, // purple
	{0.98, 0.66, 0.30, 1}, // orange
	{0.96, 0.52, 0.72, 1}, // pink
}

// Vec2 is a 2D vector used for positions, offsets, sizes, and directions
// throughout the API.
type Vec2 struct {
	X, Y float64
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v * s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Intersects reports whether r and other overlap.
// Adjacent rectangles (sharing only an edge) are considered intersecting.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width &&
		r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height &&
		r.Y+r.Height >= other.Y
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Vec2 {
	return Vec2{r.X + r.Width/2, r.Y + r.Height/2}
}

// Inset grows the rectangle by d on every side (shrinks for negative d).
func (r Rect) Inset(d float64) Rect {
	return Rect{r.X - d, r.Y - d, r.Width + 2*d, r.Height + 2*d}
}

// Kind is the semantic role of a bubble.
type Kind uint8

const (
	KindThought  Kind = iota // raw idea, the default
	KindSolution             // conclusion reached from thoughts
	KindTopic                // grouping root; parents like a thought
)

// String returns the backend resource name for the kind.
func (k Kind) String() string {
	switch k {
	case KindSolution:
		return "solution"
	case KindTopic:
		return "topic"
	default:
		return "thought"
	}
}

// ParseKind maps a backend or legacy type name to a Kind. The legacy names
// "conclusion" and "theme" are accepted for solution and topic.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "thought", "":
		return KindThought, true
	case "solution", "conclusion":
		return KindSolution, true
	case "topic", "theme":
		return KindTopic, true
	}
	return KindThought, false
}

// parentKind folds topic into thought for edge direction checks.
func (k Kind) parentKind() Kind {
	if k == KindTopic {
		return KindThought
	}
	return k
}

// NodeState tracks where a node is in its backend reconciliation.
type NodeState uint8

const (
	NodeLocal     NodeState = iota // created optimistically, awaiting confirmation
	NodeConfirmed                  // backend holds a matching record
	NodeDeleting                   // delete or archive in flight
)

func (s NodeState) String() string {
	switch s {
	case NodeConfirmed:
		return "confirmed"
	case NodeDeleting:
		return "deleting"
	default:
		return "local"
	}
}

// EventType identifies a kind of change event.
type EventType uint8

const (
	EventNodeAdded     EventType = iota // node inserted into the graph
	EventNodeRemoved                    // node removed (pop, rollback, or cascade)
	EventNodeChanged                    // text, kind, state, position or remote id changed
	EventEdgeAdded                      // pending edge inserted
	EventEdgeRemoved                    // edge removed (explicitly, rollback, or with an endpoint)
	EventEdgeChanged                    // edge confirmed
	EventTransformChanged               // pan offset or DPR changed; redraw everything
	EventInkErased                      // a consumed stroke should be cleared from the ink layer
)

func (e EventType) String() string {
	switch e {
	case EventNodeAdded:
		return "node-added"
	case EventNodeRemoved:
		return "node-removed"
	case EventNodeChanged:
		return "node-changed"
	case EventEdgeAdded:
		return "edge-added"
	case EventEdgeRemoved:
		return "edge-removed"
	case EventEdgeChanged:
		return "edge-changed"
	case EventTransformChanged:
		return "transform-changed"
	case EventInkErased:
		return "ink-erased"
	}
	return "unknown"
}

// PointerType is the device class reported with a pointer event.
type PointerType uint8

const (
	PointerMouse PointerType = iota
	PointerTouch
	PointerPen
)

func (t PointerType) String() string {
	switch t {
	case PointerTouch:
		return "touch"
	case PointerPen:
		return "pen"
	default:
		return "mouse"
	}
}

// Tool selects what a press on the canvas does.
type Tool uint8

const (
	ToolPen    Tool = iota // draw strokes, circle bubbles, connect bubbles
	ToolEraser             // erase ink; strokes are never classified
	ToolPan                // drag pans the canvas
	ToolPin                // tapping a bubble pops it
)

func (t Tool) String() string {
	switch t {
	case ToolEraser:
		return "eraser"
	case ToolPan:
		return "pan"
	case ToolPin:
		return "pin"
	default:
		return "pen"
	}
}

// ParseTool maps a tool name back to its Tool.
func ParseTool(s string) (Tool, bool) {
	switch s {
	case "pen":
		return ToolPen, true
	case "eraser":
		return ToolEraser, true
	case "pan", "drag":
		return ToolPan, true
	case "pin":
		return ToolPin, true
	}
	return ToolPen, false
}

// Default sizes and widths used by the canvas and view.
const (
	MinBubbleSize    = 60.0
	MaxBubbleSize    = 150.0
	DefaultLineWidth = 3.0
	EraserWidth      = 20.0
)
