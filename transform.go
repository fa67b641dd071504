package bubblemind

import (
	"image"
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// panAnim holds active reset-pan tweens for the X and Y offset.
type panAnim struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// Transform maps between client (window) coordinates, logical canvas
// coordinates and backing-buffer pixels.
//
//	logical = client - Origin - Offset
//	backing = (logical + Offset) * DPR
//
// DPR never enters the client to logical conversion: pointer positions and
// node positions are both in CSS-like logical units. Only capture and erase
// routines that touch the backing pixels scale by DPR.
//
// Writers update every field first and then notify once, so a redraw never
// observes a half-applied pan.
type Transform struct {
	origin Vec2
	offset Vec2
	dpr    float64

	anim     *panAnim
	onChange func()
}

// NewTransform returns a transform with DPR 1 and no pan.
func NewTransform() *Transform {
	return &Transform{dpr: 1}
}

// OnChange installs the redraw notification. It fires once per completed
// state change.
func (t *Transform) OnChange(fn func()) {
	t.onChange = fn
}

func (t *Transform) notify() {
	if t.onChange != nil {
		t.onChange()
	}
}

// Origin returns the canvas element's top-left corner in client space.
func (t *Transform) Origin() Vec2 { return t.origin }

// Offset returns the current pan offset.
func (t *Transform) Offset() Vec2 { return t.offset }

// DPR returns the device pixel ratio.
func (t *Transform) DPR() float64 { return t.dpr }

// SetOrigin moves the canvas element within the client area.
func (t *Transform) SetOrigin(x, y float64) {
	if t.origin.X == x && t.origin.Y == y {
		return
	}
	t.origin = Vec2{x, y}
	t.notify()
}

// SetDPR sets the device pixel ratio. Non-positive values are treated as 1.
func (t *Transform) SetDPR(dpr float64) {
	if dpr <= 0 || math.IsNaN(dpr) {
		dpr = 1
	}
	if t.dpr == dpr {
		return
	}
	t.dpr = dpr
	t.notify()
}

// SetOffset replaces the pan offset and cancels any reset animation.
func (t *Transform) SetOffset(x, y float64) {
	t.anim = nil
	if t.offset.X == x && t.offset.Y == y {
		return
	}
	t.offset = Vec2{x, y}
	t.notify()
}

// Pan shifts the offset by (dx, dy) and cancels any reset animation.
func (t *Transform) Pan(dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	t.SetOffset(t.offset.X+dx, t.offset.Y+dy)
}

// ToLogical converts a client-space pointer position to logical canvas space.
func (t *Transform) ToLogical(clientX, clientY float64) Vec2 {
	return Vec2{
		X: clientX - t.origin.X - t.offset.X,
		Y: clientY - t.origin.Y - t.offset.Y,
	}
}

// ToClient is the inverse of ToLogical.
func (t *Transform) ToClient(p Vec2) Vec2 {
	return Vec2{
		X: p.X + t.origin.X + t.offset.X,
		Y: p.Y + t.origin.Y + t.offset.Y,
	}
}

// ToBacking converts a logical point to backing-buffer pixels.
func (t *Transform) ToBacking(p Vec2) Vec2 {
	return Vec2{
		X: (p.X + t.offset.X) * t.dpr,
		Y: (p.Y + t.offset.Y) * t.dpr,
	}
}

// BackingRect converts a logical rectangle to the integer pixel rectangle it
// covers in the backing buffer.
func (t *Transform) BackingRect(r Rect) image.Rectangle {
	min := t.ToBacking(Vec2{r.X, r.Y})
	max := t.ToBacking(Vec2{r.X + r.Width, r.Y + r.Height})
	return image.Rect(
		int(math.Floor(min.X)), int(math.Floor(min.Y)),
		int(math.Ceil(max.X)), int(math.Ceil(max.Y)),
	)
}

// ResetPan animates the offset back to zero over duration seconds.
// A nil easing function defaults to ease.OutCubic.
func (t *Transform) ResetPan(duration float32, easeFn ease.TweenFunc) {
	if easeFn == nil {
		easeFn = ease.OutCubic
	}
	if duration <= 0 {
		t.SetOffset(0, 0)
		return
	}
	t.anim = &panAnim{
		tweenX: gween.New(float32(t.offset.X), 0, duration, easeFn),
		tweenY: gween.New(float32(t.offset.Y), 0, duration, easeFn),
	}
}

// Animating reports whether a reset animation is running.
func (t *Transform) Animating() bool {
	return t.anim != nil
}

// Update advances the reset animation by dt seconds. Both components are
// written before the single change notification for the frame.
func (t *Transform) Update(dt float32) {
	if t.anim == nil {
		return
	}
	prev := t.offset
	if !t.anim.doneX {
		val, done := t.anim.tweenX.Update(dt)
		t.offset.X = float64(val)
		t.anim.doneX = done
	}
	if !t.anim.doneY {
		val, done := t.anim.tweenY.Update(dt)
		t.offset.Y = float64(val)
		t.anim.doneY = done
	}
	if t.anim.doneX && t.anim.doneY {
		t.offset = Vec2{}
		t.anim = nil
	}
	if t.offset != prev {
		t.notify()
	}
}
