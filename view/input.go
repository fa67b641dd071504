package view

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/bubblemind"
)

// maxPointers is the number of simultaneously tracked pointers. Slot 0 is
// the mouse; slots 1-9 are touches.
const maxPointers = 10

// pointerSink receives raw pointer transitions in client coordinates.
type pointerSink interface {
	PointerDown(ev bubblemind.PointerEvent)
	PointerMove(ev bubblemind.PointerEvent)
	PointerUp(ev bubblemind.PointerEvent)
}

type pointerState struct {
	down         bool
	lastX, lastY float64
	typ          bubblemind.PointerType
}

// touchSample is one active touch read from ebiten this tick.
type touchSample struct {
	ID   ebiten.TouchID
	X, Y float64
}

// pointerTracker turns per-tick pressed/position samples into down, move
// and up transitions.
type pointerTracker struct {
	pointers  [maxPointers]pointerState
	touchMap  [maxPointers]ebiten.TouchID
	touchUsed [maxPointers]bool
}

// mouse feeds the mouse sample for this tick.
func (p *pointerTracker) mouse(sink pointerSink, x, y float64, pressed bool) {
	p.process(sink, 0, x, y, pressed, bubblemind.PointerMouse)
}

// touches feeds every active touch for this tick and releases touches that
// have ended.
func (p *pointerTracker) touches(sink pointerSink, samples []touchSample) {
	var active [maxPointers]bool
	for _, s := range samples {
		slot := p.touchSlot(s.ID)
		if slot < 0 {
			continue
		}
		active[slot] = true
		p.process(sink, slot, s.X, s.Y, true, bubblemind.PointerTouch)
	}

	for i := 1; i < maxPointers; i++ {
		if p.touchUsed[i] && !active[i] {
			ps := &p.pointers[i]
			if ps.down {
				p.process(sink, i, ps.lastX, ps.lastY, false, bubblemind.PointerTouch)
			}
			p.touchUsed[i] = false
			p.touchMap[i] = 0
		}
	}
}

// touchSlot maps a touch to a pointer slot (1-9), allocating one for new
// touches. Returns -1 when every slot is taken.
func (p *pointerTracker) touchSlot(tid ebiten.TouchID) int {
	for i := 1; i < maxPointers; i++ {
		if p.touchUsed[i] && p.touchMap[i] == tid {
			return i
		}
	}
	for i := 1; i < maxPointers; i++ {
		if !p.touchUsed[i] {
			p.touchUsed[i] = true
			p.touchMap[i] = tid
			return i
		}
	}
	return -1
}

// process runs the press/held/release state machine for a single pointer.
// Hover moves are not forwarded; the canvas only tracks pressed pointers.
func (p *pointerTracker) process(sink pointerSink, id int, x, y float64, pressed bool, typ bubblemind.PointerType) {
	ps := &p.pointers[id]
	ev := bubblemind.PointerEvent{ID: id, X: x, Y: y, Type: typ}

	switch {
	case pressed && !ps.down:
		ps.down = true
		ps.typ = typ
		ps.lastX, ps.lastY = x, y
		sink.PointerDown(ev)
	case !pressed && ps.down:
		ev.Type = ps.typ
		ps.down = false
		ps.lastX, ps.lastY = x, y
		sink.PointerUp(ev)
	case pressed && ps.down:
		if x != ps.lastX || y != ps.lastY {
			ev.Type = ps.typ
			sink.PointerMove(ev)
		}
		ps.lastX, ps.lastY = x, y
	default:
		ps.lastX, ps.lastY = x, y
	}
}

// readTouches collects the active touches in client coordinates.
func readTouches(buf []ebiten.TouchID, samples []touchSample, dpr float64) ([]ebiten.TouchID, []touchSample) {
	buf = ebiten.AppendTouchIDs(buf[:0])
	samples = samples[:0]
	for _, id := range buf {
		x, y := ebiten.TouchPosition(id)
		samples = append(samples, touchSample{ID: id, X: float64(x) / dpr, Y: float64(y) / dpr})
	}
	return buf, samples
}
