package bubblemind

type injectPhase uint8

const (
	injectDown injectPhase = iota
	injectMove
	injectUp
)

// syntheticPointerEvent is a single injected pointer event in client
// coordinates, converted exactly like real input.
type syntheticPointerEvent struct {
	phase injectPhase
	ev    PointerEvent
}

// injectPointerID keeps synthetic input apart from real pointers.
const injectPointerID = -1

func (c *Canvas) inject(phase injectPhase, x, y float64, pt PointerType) {
	c.injectQueue = append(c.injectQueue, syntheticPointerEvent{
		phase: phase,
		ev:    PointerEvent{ID: injectPointerID, X: x, Y: y, Type: pt},
	})
}

// InjectPress queues a mouse press at the given client coordinates. The
// event is consumed on the next Update.
func (c *Canvas) InjectPress(x, y float64) {
	c.inject(injectDown, x, y, PointerMouse)
}

// InjectMove queues a move with the button held. Use it between InjectPress
// and InjectRelease to draw or drag.
func (c *Canvas) InjectMove(x, y float64) {
	c.inject(injectMove, x, y, PointerMouse)
}

// InjectRelease queues a release at the given client coordinates.
func (c *Canvas) InjectRelease(x, y float64) {
	c.inject(injectUp, x, y, PointerMouse)
}

// InjectClick queues a press followed by a release at the same point.
// Consumes two frames.
func (c *Canvas) InjectClick(x, y float64) {
	c.InjectPress(x, y)
	c.InjectRelease(x, y)
}

// InjectDrag queues a press at (fromX, fromY), frames-2 interpolated moves
// and a release at (toX, toY). Minimum frames is 2.
func (c *Canvas) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	if frames < 2 {
		frames = 2
	}
	c.InjectPress(fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		c.InjectMove(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	c.InjectRelease(toX, toY)
}

// InjectStroke queues a pen stroke through the given client points.
func (c *Canvas) InjectStroke(points []Vec2) {
	if len(points) == 0 {
		return
	}
	c.InjectPress(points[0].X, points[0].Y)
	for _, p := range points[1 : len(points)-1] {
		c.InjectMove(p.X, p.Y)
	}
	last := points[len(points)-1]
	c.InjectRelease(last.X, last.Y)
}

// InjectCircle queues a closed stroke of n points around (cx, cy).
func (c *Canvas) InjectCircle(cx, cy, radius float64, n int) {
	if n < 3 {
		n = 3
	}
	pts := CirclePath(Vec2{cx, cy}, radius, n)
	// Close the loop so the release lands on the starting point.
	pts = append(pts, pts[0])
	c.InjectStroke(pts)
}

// Injecting reports whether synthetic events are still queued.
func (c *Canvas) Injecting() bool {
	return len(c.injectQueue) > 0
}

// processInjectedInput pops one queued event and feeds it through the same
// path as real input. Returns true if an event was consumed.
func (c *Canvas) processInjectedInput() bool {
	if len(c.injectQueue) == 0 {
		return false
	}
	evt := c.injectQueue[0]
	copy(c.injectQueue, c.injectQueue[1:])
	c.injectQueue = c.injectQueue[:len(c.injectQueue)-1]

	switch evt.phase {
	case injectDown:
		c.PointerDown(evt.ev)
	case injectMove:
		c.PointerMove(evt.ev)
	case injectUp:
		c.PointerUp(evt.ev)
	}
	return true
}
