package bubblemind

import "time"

// InteractionState is the phase of the current pointer gesture.
type InteractionState uint8

const (
	StateIdle          InteractionState = iota
	StatePressing                       // down on a bubble, deciding between drag and long press
	StateDrawing                        // collecting a stroke on bare canvas
	StateDragging                       // moving a bubble
	StateLongPressMenu                  // long press fired; the menu is open and drag is suppressed
	StatePanning                        // pan tool drag
)

func (s InteractionState) String() string {
	switch s {
	case StatePressing:
		return "pressing"
	case StateDrawing:
		return "drawing"
	case StateDragging:
		return "dragging"
	case StateLongPressMenu:
		return "long-press-menu"
	case StatePanning:
		return "panning"
	}
	return "idle"
}

// PointerEvent is one raw pointer sample in client coordinates.
type PointerEvent struct {
	ID       int
	X, Y     float64
	Type     PointerType
	Pressure float64
	// HasTilt is set when the device reports a hardware tilt signal.
	HasTilt bool
}

// IsStylus reports whether the event comes from a pen-like device: the
// pointer type is pen, or pressure exceeds 0.5, or a tilt is reported.
func (e PointerEvent) IsStylus() bool {
	return e.Type == PointerPen || e.Pressure > 0.5 || e.HasTilt
}

// DeviceProfile holds the timing and slop for one class of input device.
type DeviceProfile struct {
	LongPressDelay time.Duration
	MoveThreshold  float64
}

// Stock device profiles. Pens get a shorter long press but more slop before
// a drag starts, since pen tips jitter on contact.
var (
	FingerProfile = DeviceProfile{LongPressDelay: 300 * time.Millisecond, MoveThreshold: 5}
	StylusProfile = DeviceProfile{LongPressDelay: 150 * time.Millisecond, MoveThreshold: 15}
)

// doubleClickWindow is the longest gap between two clicks on the same bubble
// that still pops it.
const doubleClickWindow = 300 * time.Millisecond

// InteractionHandlers receives the outcomes of pointer gestures.
// Nil fields are skipped.
type InteractionHandlers struct {
	// Stroke receives a finished stroke in logical coordinates.
	Stroke func(path []Vec2, tool Tool)
	// Pop is called for a double click, or a pin tool press, on a bubble.
	Pop func(n *Node)
	// Menu opens the context menu for n, or closes it when n is nil.
	Menu func(n *Node)
	// DragEnd is called when a bubble drag finishes.
	DragEnd func(n *Node)
}

// Interaction turns pointer samples into drawing, dragging, panning and
// menu gestures. Time is read from the clock; Update fires the long press.
type Interaction struct {
	graph     *Graph
	transform *Transform
	clock     Clock
	handlers  InteractionHandlers

	tool      Tool
	finger    DeviceProfile
	stylus    DeviceProfile
	state     InteractionState
	pointerID int
	active    bool
	swallow   bool

	profile   DeviceProfile
	deadline  time.Time
	start     Vec2 // logical
	startC    Vec2 // client
	lastC     Vec2 // client
	grab      Vec2 // pointer minus node center at press
	node      *Node
	stroke    []Vec2
	menuNode  *Node
	lastClick *Node
	lastAt    time.Time
}

// NewInteraction creates an idle state machine using the pen tool.
func NewInteraction(g *Graph, t *Transform, clock Clock, h InteractionHandlers) *Interaction {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Interaction{
		graph:     g,
		transform: t,
		clock:     clock,
		handlers:  h,
		finger:    FingerProfile,
		stylus:    StylusProfile,
	}
}

// SetProfiles overrides the finger and stylus device profiles.
func (in *Interaction) SetProfiles(finger, stylus DeviceProfile) {
	in.finger = finger
	in.stylus = stylus
}

// State returns the current phase.
func (in *Interaction) State() InteractionState { return in.state }

// Tool returns the active tool.
func (in *Interaction) Tool() Tool { return in.tool }

// SetTool switches tools. An in-progress gesture is abandoned.
func (in *Interaction) SetTool(t Tool) {
	in.tool = t
	in.reset()
}

// Stroke returns the points of the stroke being drawn, in logical space.
func (in *Interaction) Stroke() []Vec2 { return in.stroke }

// Target returns the bubble under the current press or drag, if any.
func (in *Interaction) Target() *Node { return in.node }

// MenuNode returns the bubble whose context menu is open.
func (in *Interaction) MenuNode() *Node { return in.menuNode }

// CloseMenu dismisses the context menu.
func (in *Interaction) CloseMenu() {
	if in.menuNode == nil {
		return
	}
	in.menuNode = nil
	if in.handlers.Menu != nil {
		in.handlers.Menu(nil)
	}
}

// PointerDown starts a gesture. While a gesture is active further pointers
// are ignored. A press while the menu is open only closes the menu.
func (in *Interaction) PointerDown(ev PointerEvent) {
	if in.active {
		return
	}
	in.active = true
	in.pointerID = ev.ID
	in.swallow = false

	if in.menuNode != nil {
		in.CloseMenu()
		in.swallow = true
		return
	}

	p := in.transform.ToLogical(ev.X, ev.Y)
	in.start = p
	in.startC = Vec2{ev.X, ev.Y}
	in.lastC = in.startC
	in.profile = in.finger
	if ev.IsStylus() {
		in.profile = in.stylus
	}

	if in.tool == ToolPan {
		in.state = StatePanning
		return
	}

	n := in.graph.NodeUnder(p.X, p.Y)
	if in.tool == ToolPin {
		if n != nil && in.handlers.Pop != nil {
			in.handlers.Pop(n)
		}
		in.swallow = true
		return
	}

	if n != nil {
		in.state = StatePressing
		in.node = n
		in.grab = p.Sub(n.Position)
		in.deadline = in.clock.Now().Add(in.profile.LongPressDelay)
		return
	}

	in.state = StateDrawing
	in.stroke = append(in.stroke[:0], p)
}

// PointerMove feeds a sample for the active pointer.
func (in *Interaction) PointerMove(ev PointerEvent) {
	if !in.active || ev.ID != in.pointerID || in.swallow {
		return
	}
	// A long press may be due before this sample is processed.
	in.Update()

	c := Vec2{ev.X, ev.Y}
	p := in.transform.ToLogical(ev.X, ev.Y)
	switch in.state {
	case StatePanning:
		d := c.Sub(in.lastC)
		in.transform.Pan(d.X, d.Y)
	case StateDrawing:
		in.stroke = append(in.stroke, p)
	case StatePressing:
		if Distance(in.startC, c) > in.profile.MoveThreshold {
			in.state = StateDragging
			in.deadline = time.Time{}
			if in.graph.Has(in.node) {
				in.graph.MoveNode(in.node, p.Sub(in.grab))
			}
		}
	case StateDragging:
		if in.graph.Has(in.node) {
			in.graph.MoveNode(in.node, p.Sub(in.grab))
		}
	}
	in.lastC = c
}

// PointerUp ends the gesture for the active pointer.
func (in *Interaction) PointerUp(ev PointerEvent) {
	if !in.active || ev.ID != in.pointerID {
		return
	}
	if in.swallow {
		in.reset()
		return
	}
	in.Update()

	switch in.state {
	case StateDrawing:
		p := in.transform.ToLogical(ev.X, ev.Y)
		if last := in.stroke[len(in.stroke)-1]; last != p {
			in.stroke = append(in.stroke, p)
		}
		path := make([]Vec2, len(in.stroke))
		copy(path, in.stroke)
		tool := in.tool
		in.reset()
		if in.handlers.Stroke != nil {
			in.handlers.Stroke(path, tool)
		}
		return
	case StateDragging:
		n := in.node
		in.reset()
		if in.handlers.DragEnd != nil && in.graph.Has(n) {
			in.handlers.DragEnd(n)
		}
		return
	case StatePressing:
		n := in.node
		in.reset()
		in.click(n)
		return
	}
	in.reset()
}

// click handles a press and release on n without drag or long press.
func (in *Interaction) click(n *Node) {
	now := in.clock.Now()
	if in.lastClick == n && now.Sub(in.lastAt) <= doubleClickWindow {
		in.lastClick = nil
		if in.handlers.Pop != nil && in.graph.Has(n) {
			in.handlers.Pop(n)
		}
		return
	}
	in.lastClick = n
	in.lastAt = now
}

// Update fires the long press when its deadline has passed. Call once per
// frame.
func (in *Interaction) Update() {
	if in.state != StatePressing || in.deadline.IsZero() {
		return
	}
	if in.clock.Now().Before(in.deadline) {
		return
	}
	in.deadline = time.Time{}
	if !in.graph.Has(in.node) {
		in.state = StateIdle
		in.node = nil
		return
	}
	in.state = StateLongPressMenu
	in.menuNode = in.node
	in.lastClick = nil
	if in.handlers.Menu != nil {
		in.handlers.Menu(in.node)
	}
}

// Cancel abandons the active gesture without emitting a stroke.
func (in *Interaction) Cancel() {
	in.reset()
}

func (in *Interaction) reset() {
	in.state = StateIdle
	in.active = false
	in.swallow = false
	in.node = nil
	in.deadline = time.Time{}
	in.stroke = in.stroke[:0]
}
