package view

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/phanxgames/bubblemind"
)

// consumedPad widens the white stroke that removes a consumed gesture so
// antialiased edges of the original ink are covered too.
const consumedPad = 2.0

type inkStroke struct {
	path  []bubblemind.Vec2
	width float64
	color bubblemind.Color
}

// InkLayer is the persistent offscreen page that pen and eraser strokes are
// painted into. It implements both [bubblemind.InkSource] and
// [bubblemind.InkRecorder]. Unlike the screen it is never cleared between
// frames.
type InkLayer struct {
	image     *ebiten.Image
	w, h      int
	transform *bubblemind.Transform

	strokes []inkStroke
	drawn   int // strokes already painted at the current offset and ratio
	offset  bubblemind.Vec2
	dpr     float64
	stale   bool

	pixels []byte
	handle bubblemind.CallbackHandle
}

// NewInkLayer creates a blank page of w by h backing pixels.
func NewInkLayer(w, h int, t *bubblemind.Transform) *InkLayer {
	l := &InkLayer{
		image:     ebiten.NewImage(w, h),
		w:         w,
		h:         h,
		transform: t,
		offset:    t.Offset(),
		dpr:       t.DPR(),
	}
	l.image.Fill(toRGBA(paperColor))
	return l
}

// Listen erases ink whenever g announces a consumed stroke or a clear.
// Calling Listen again moves the subscription to the new graph.
func (l *InkLayer) Listen(g *bubblemind.Graph) {
	l.handle.Remove()
	l.handle = g.OnChange(func(ev bubblemind.ChangeEvent) {
		if ev.Type != bubblemind.EventInkErased {
			return
		}
		if ev.Stroke == nil {
			l.Clear()
			return
		}
		l.Erase(ev.Stroke)
	})
}

// Width returns the page width in backing pixels.
func (l *InkLayer) Width() int { return l.w }

// Height returns the page height in backing pixels.
func (l *InkLayer) Height() int { return l.h }

// Len returns the number of recorded strokes, erasures included.
func (l *InkLayer) Len() int { return len(l.strokes) }

// AddStroke records a finished stroke in logical coordinates. Eraser strokes
// paint the page color at the eraser width.
func (l *InkLayer) AddStroke(path []bubblemind.Vec2, tool bubblemind.Tool) {
	if len(path) == 0 {
		return
	}
	s := inkStroke{path: clonePath(path), width: bubblemind.DefaultLineWidth, color: inkColor}
	if tool == bubblemind.ToolEraser {
		s.width = bubblemind.EraserWidth
		s.color = paperColor
	}
	l.strokes = append(l.strokes, s)
}

// Erase paints over a stroke that was consumed by a gesture.
func (l *InkLayer) Erase(path []bubblemind.Vec2) {
	if len(path) == 0 {
		return
	}
	l.strokes = append(l.strokes, inkStroke{
		path:  clonePath(path),
		width: bubblemind.DefaultLineWidth + consumedPad,
		color: paperColor,
	})
}

// Clear drops every stroke and blanks the page.
func (l *InkLayer) Clear() {
	clear(l.strokes)
	l.strokes = l.strokes[:0]
	l.stale = true
}

// Resize reallocates the page. Recorded strokes are repainted at the new
// size on the next draw.
func (l *InkLayer) Resize(w, h int) {
	if w == l.w && h == l.h {
		return
	}
	l.image.Deallocate()
	l.image = ebiten.NewImage(w, h)
	l.w, l.h = w, h
	l.pixels = nil
	l.stale = true
}

// Image returns the up-to-date page for compositing onto the screen.
func (l *InkLayer) Image() *ebiten.Image {
	l.sync()
	return l.image
}

// InkImage reads the page back as straight-alpha pixels. It must be called
// from within the game loop.
func (l *InkLayer) InkImage() image.Image {
	l.sync()
	n := 4 * l.w * l.h
	if len(l.pixels) != n {
		l.pixels = make([]byte, n)
	}
	l.image.ReadPixels(l.pixels)
	return bubblemind.NRGBAFromPremultiplied(l.pixels, l.w, l.h)
}

// Dispose releases the page and stops listening for erasures.
func (l *InkLayer) Dispose() {
	l.handle.Remove()
	l.handle = bubblemind.CallbackHandle{}
	if l.image != nil {
		l.image.Deallocate()
		l.image = nil
	}
	l.strokes = nil
}

// sync repaints from scratch when the view moved, then paints any strokes
// recorded since the last call.
func (l *InkLayer) sync() {
	off, dpr := l.transform.Offset(), l.transform.DPR()
	if l.stale || off != l.offset || dpr != l.dpr {
		l.offset, l.dpr = off, dpr
		l.image.Fill(toRGBA(paperColor))
		l.drawn = 0
		l.stale = false
	}
	for ; l.drawn < len(l.strokes); l.drawn++ {
		s := l.strokes[l.drawn]
		paintPath(l.image, backingPath(l.transform, s.path), float32(s.width*dpr), toRGBA(s.color))
	}
}

// backingPath converts a logical path to backing-buffer pixels.
func backingPath(t *bubblemind.Transform, path []bubblemind.Vec2) []bubblemind.Vec2 {
	out := make([]bubblemind.Vec2, len(path))
	for i, p := range path {
		out[i] = t.ToBacking(p)
	}
	return out
}

// paintPath strokes pts with round caps and joins.
func paintPath(dst *ebiten.Image, pts []bubblemind.Vec2, width float32, clr color.Color) {
	if len(pts) == 0 {
		return
	}
	r := width / 2
	vector.DrawFilledCircle(dst, float32(pts[0].X), float32(pts[0].Y), r, clr, true)
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		vector.StrokeLine(dst, float32(a.X), float32(a.Y), float32(b.X), float32(b.Y), width, clr, true)
		vector.DrawFilledCircle(dst, float32(b.X), float32(b.Y), r, clr, true)
	}
}

func clonePath(path []bubblemind.Vec2) []bubblemind.Vec2 {
	return append([]bubblemind.Vec2(nil), path...)
}
