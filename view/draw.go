package view

import (
	"fmt"
	"math"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/phanxgames/bubblemind"
)

// Edge and label styling in client units.
const (
	edgeWidth     = 2.0
	edgeBend      = 0.18
	edgeSegments  = 24
	arrowSize     = 10.0
	labelFill     = 0.75 // share of the bubble diameter available to text
	labelMaxLines = 3
	ringWidth     = 2.0
	topicRingGap  = 5.0
	sidebarMax    = 6 // solutions listed under the HUD line
)

var (
	edgeColor   = bubblemind.Color{R: 0.22, G: 0.24, B: 0.30, A: 1}
	labelColor  = bubblemind.Color{R: 0.08, G: 0.08, B: 0.10, A: 1}
	menuColor   = bubblemind.Color{R: 0.98, G: 0.98, B: 0.98, A: 0.96}
	menuBorder  = bubblemind.Color{R: 0.55, G: 0.57, B: 0.62, A: 1}
	statusColor = map[bubblemind.StatusLevel]bubblemind.Color{
		bubblemind.StatusInfo:    {R: 0.20, G: 0.22, B: 0.27, A: 0.92},
		bubblemind.StatusSuccess: {R: 0.16, G: 0.55, B: 0.30, A: 0.92},
		bubblemind.StatusError:   {R: 0.75, G: 0.18, B: 0.18, A: 0.92},
	}
)

// scene draws everything above the ink layer into the backing buffer.
type scene struct {
	dst    *ebiten.Image
	canvas *bubblemind.Canvas
	font   *TTFFont // sized for the backing buffer
	dpr    float64
	stats  *frameStats
}

func (s *scene) backing(p bubblemind.Vec2) (float32, float32) {
	b := s.canvas.Transform().ToBacking(p)
	return float32(b.X), float32(b.Y)
}

// clientToBacking converts a client point, such as a menu corner.
func (s *scene) clientToBacking(p bubblemind.Vec2) (float32, float32) {
	o := s.canvas.Transform().Origin()
	return float32((p.X - o.X) * s.dpr), float32((p.Y - o.Y) * s.dpr)
}

func (s *scene) drawEdges() {
	t := s.canvas.Transform()
	anim := s.canvas.Animator()
	for _, e := range s.canvas.Graph().Edges() {
		start, end, ok := edgeEndpoints(e.Source, e.Target)
		if !ok {
			continue
		}
		alpha := math.Min(anim.Visual(e.Source).Alpha, anim.Visual(e.Target).Alpha)
		if e.Pending {
			alpha *= 0.45
		}
		clr := toRGBA(fade(edgeColor, alpha))
		pts := backingPath(t, curvePoints(start, end, edgeBend, edgeSegments))
		w := float32(edgeWidth * s.dpr)
		for i := 1; i < len(pts); i++ {
			if e.Pending && (i/2)%2 == 1 {
				continue
			}
			a, b := pts[i-1], pts[i]
			vector.StrokeLine(s.dst, float32(a.X), float32(a.Y), float32(b.X), float32(b.Y), w, clr, true)
		}
		tip := pts[len(pts)-1]
		l, r := arrowHead(tip, pts[len(pts)-2], arrowSize*s.dpr)
		vector.StrokeLine(s.dst, float32(tip.X), float32(tip.Y), float32(l.X), float32(l.Y), w, clr, true)
		vector.StrokeLine(s.dst, float32(tip.X), float32(tip.Y), float32(r.X), float32(r.Y), w, clr, true)
		s.stats.edges++
	}
}

func (s *scene) drawBubbles() {
	anim := s.canvas.Animator()
	for _, n := range s.canvas.Graph().Nodes() {
		v := anim.Visual(n)
		s.drawBubble(n.Position, n.Radius(), n.Color, n.Kind, n.Text, v.Scale, v.Alpha*bubbleAlpha(n.State))
		s.stats.bubbles++
	}
	for _, g := range anim.Ghosts() {
		s.drawBubble(g.Position, g.Size/2, g.Color, g.Kind, g.Text, g.Visual.Scale, g.Visual.Alpha)
		s.stats.ghosts++
	}
}

func (s *scene) drawBubble(pos bubblemind.Vec2, radius float64, colorIdx int, kind bubblemind.Kind, label string, scale, alpha float64) {
	if scale <= 0 || alpha <= 0 {
		return
	}
	cx, cy := s.backing(pos)
	r := float32(radius * scale * s.dpr)
	fill := paletteColor(colorIdx)
	vector.DrawFilledCircle(s.dst, cx, cy, r, toRGBA(fade(fill, 0.85*alpha)), true)

	ring := toRGBA(fade(shade(fill, 0.35), alpha))
	rw := float32(ringWidth * s.dpr)
	switch kind {
	case bubblemind.KindSolution:
		vector.StrokeCircle(s.dst, cx, cy, r, 2*rw, ring, true)
	case bubblemind.KindTopic:
		vector.StrokeCircle(s.dst, cx, cy, r, rw, ring, true)
		vector.StrokeCircle(s.dst, cx, cy, r+float32(topicRingGap*scale*s.dpr), rw, ring, true)
	default:
		vector.StrokeCircle(s.dst, cx, cy, r, rw, ring, true)
	}

	if scale < 0.5 || label == "" {
		return
	}
	lines := wrapLabel(s.font, label, 2*float64(r)*labelFill, labelMaxLines)
	lh := s.font.LineHeight()
	y := float64(cy) - float64(len(lines))*lh/2
	for _, line := range lines {
		s.text(line, float64(cx), y, fade(labelColor, alpha), text.AlignCenter)
		y += lh
	}
}

func (s *scene) drawBursts() {
	for _, b := range s.canvas.Animator().Bursts() {
		for _, p := range b.Particles() {
			if p.Alpha <= 0 || p.Radius <= 0 {
				continue
			}
			x, y := s.backing(bubblemind.Vec2{X: p.X, Y: p.Y})
			vector.DrawFilledCircle(s.dst, x, y, float32(p.Radius*s.dpr), toRGBA(fade(b.Color, p.Alpha)), true)
			s.stats.particles++
		}
	}
}

// drawStroke previews the stroke being drawn; it joins the ink layer on
// release.
func (s *scene) drawStroke() {
	in := s.canvas.Interaction()
	if in.State() != bubblemind.StateDrawing {
		return
	}
	width, clr := bubblemind.DefaultLineWidth, inkColor
	if in.Tool() == bubblemind.ToolEraser {
		width, clr = bubblemind.EraserWidth, paperColor
	}
	paintPath(s.dst, backingPath(s.canvas.Transform(), in.Stroke()), float32(width*s.dpr), toRGBA(clr))
}

func (s *scene) drawMenu() {
	items := menuItems(s.canvas.MenuNode(), s.canvas.Transform())
	pad := 10 * s.dpr
	for _, it := range items {
		x, y := s.clientToBacking(bubblemind.Vec2{X: it.Rect.X, Y: it.Rect.Y})
		w, h := float32(it.Rect.Width*s.dpr), float32(it.Rect.Height*s.dpr)
		vector.DrawFilledRect(s.dst, x, y, w, h, toRGBA(menuColor), false)
		vector.StrokeRect(s.dst, x, y, w, h, float32(s.dpr), toRGBA(menuBorder), false)
		ty := float64(y) + (float64(h)-s.font.LineHeight())/2
		s.text(it.Label, float64(x)+pad, ty, labelColor, text.AlignStart)
	}
}

// drawHUD prints the active tool and new-bubble kind in the top-left corner
// with the backend's topics and solutions below it, and the current status
// message along the bottom edge.
func (s *scene) drawHUD() {
	pad := 8 * s.dpr
	hud := fmt.Sprintf("%s  ·  new %s", s.canvas.Tool(), s.canvas.NewKind())
	if topic := s.canvas.Topic(); topic != "" {
		hud += "  ·  #" + topic
	}
	s.text(hud, pad, pad, fade(labelColor, 0.7), text.AlignStart)
	for i, line := range sidebarLines(s.canvas.Topics(), s.canvas.Solutions()) {
		y := pad + float64(i+1)*s.font.LineHeight()
		s.text(line, pad, y, fade(labelColor, 0.55), text.AlignStart)
	}

	msg, ok := s.canvas.Status().Current()
	if !ok {
		return
	}
	b := s.dst.Bounds()
	h := s.font.LineHeight() + 2*pad
	y := float64(b.Dy()) - h
	vector.DrawFilledRect(s.dst, 0, float32(y), float32(b.Dx()), float32(h), toRGBA(statusColor[msg.Level]), false)
	s.text(msg.Text, pad, y+pad, bubblemind.ColorWhite, text.AlignStart)
}

// sidebarLines formats the topic counts on one line followed by the first
// sidebarMax solutions.
func sidebarLines(topics []bubblemind.TopicSummary, sols []bubblemind.SolutionSummary) []string {
	var out []string
	if len(topics) > 0 {
		names := make([]string, len(topics))
		for i, t := range topics {
			names[i] = fmt.Sprintf("#%s (%d)", t.Name, t.Count)
		}
		out = append(out, strings.Join(names, "  "))
	}
	for i, sol := range sols {
		if i == sidebarMax {
			out = append(out, fmt.Sprintf("+%d more", len(sols)-sidebarMax))
			break
		}
		out = append(out, "- "+sol.Content)
	}
	return out
}

func (s *scene) text(str string, x, y float64, clr bubblemind.Color, align text.Align) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(toRGBA(clr))
	op.LineSpacing = s.font.LineHeight()
	op.PrimaryAlign = align
	text.Draw(s.dst, str, s.font.Face(), op)
}

// bubbleAlpha dims bubbles that the backend has not confirmed yet and those
// on their way out.
func bubbleAlpha(state bubblemind.NodeState) float64 {
	switch state {
	case bubblemind.NodeLocal:
		return 0.6
	case bubblemind.NodeDeleting:
		return 0.35
	}
	return 1
}

// edgeEndpoints trims the center-to-center segment to the two bubble rims.
// It reports false when the bubbles overlap and there is nothing to draw.
func edgeEndpoints(src, dst *bubblemind.Node) (start, end bubblemind.Vec2, ok bool) {
	d := dst.Position.Sub(src.Position)
	dist := math.Hypot(d.X, d.Y)
	if dist <= src.Radius()+dst.Radius() {
		return src.Position, dst.Position, false
	}
	dir := d.Scale(1 / dist)
	return src.Position.Add(dir.Scale(src.Radius())), dst.Position.Sub(dir.Scale(dst.Radius())), true
}

// curvePoints flattens the quadratic curve from a to b whose control point
// sits off the midpoint by bend times the chord length, to the left of the
// direction of travel. It returns segments+1 points.
func curvePoints(a, b bubblemind.Vec2, bend float64, segments int) []bubblemind.Vec2 {
	if segments < 1 {
		segments = 1
	}
	d := b.Sub(a)
	mid := a.Add(d.Scale(0.5))
	ctrl := mid.Add(bubblemind.Vec2{X: d.Y, Y: -d.X}.Scale(bend))
	pts := make([]bubblemind.Vec2, segments+1)
	for i := range pts {
		t := float64(i) / float64(segments)
		u := 1 - t
		pts[i] = bubblemind.Vec2{
			X: u*u*a.X + 2*u*t*ctrl.X + t*t*b.X,
			Y: u*u*a.Y + 2*u*t*ctrl.Y + t*t*b.Y,
		}
	}
	return pts
}

// arrowHead returns the two barb ends of an arrow pointing at tip from prev.
func arrowHead(tip, prev bubblemind.Vec2, size float64) (left, right bubblemind.Vec2) {
	d := tip.Sub(prev)
	l := math.Hypot(d.X, d.Y)
	if l == 0 {
		return tip, tip
	}
	d = d.Scale(1 / l)
	perp := bubblemind.Vec2{X: -d.Y, Y: d.X}
	base := tip.Sub(d.Scale(size))
	return base.Add(perp.Scale(size / 2)), base.Sub(perp.Scale(size / 2))
}
