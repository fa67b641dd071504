package bubblemind

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"testing"
	"time"
)

// fakeInk is an ink layer that records committed strokes.
type fakeInk struct {
	img     *image.NRGBA
	strokes [][]Vec2
	tools   []Tool
}

func newFakeInk(w, h int) *fakeInk {
	return &fakeInk{img: image.NewNRGBA(image.Rect(0, 0, w, h))}
}

func (f *fakeInk) InkImage() image.Image { return f.img }

func (f *fakeInk) AddStroke(path []Vec2, tool Tool) {
	f.strokes = append(f.strokes, path)
	f.tools = append(f.tools, tool)
}

type canvasRig struct {
	c      *Canvas
	fb     *fakeBackend
	clock  *ManualClock
	ink    *fakeInk
	events []ChangeEvent
}

func newCanvasRig(fb *fakeBackend, cfg CanvasConfig) *canvasRig {
	r := &canvasRig{fb: fb, clock: NewManualClock(epoch), ink: newFakeInk(800, 600)}
	cfg.Clock = r.clock
	r.c = NewCanvas(fb, cfg)
	r.c.SetInkSource(r.ink)
	r.c.Graph().OnChange(func(e ChangeEvent) { r.events = append(r.events, e) })
	return r
}

func (r *canvasRig) count(typ EventType) int {
	n := 0
	for _, e := range r.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

// frames runs Update until the inject queue is drained.
func (r *canvasRig) frames(t *testing.T) {
	t.Helper()
	for i := 0; r.c.Injecting(); i++ {
		if i > 1000 {
			t.Fatal("inject queue never drained")
		}
		r.c.Update(1.0 / 60)
	}
}

func TestCanvasCircleCreatesBubble(t *testing.T) {
	r := newCanvasRig(&fakeBackend{recognize: RecognizeResult{Text: "Idea", ID: 7}}, CanvasConfig{})
	path := CirclePath(Vec2{200, 200}, 40, 32)

	g := r.c.SubmitStroke(path, ToolPen)
	if g.Kind != GestureCircle {
		t.Fatalf("SubmitStroke kind = %v, want circle", g.Kind)
	}
	nodes := r.c.Graph().Nodes()
	if len(nodes) != 1 {
		t.Fatalf("NodeCount = %d, want 1", len(nodes))
	}
	n := nodes[0]
	if n.Confirmed() || n.Position != (Vec2{200, 200}) || n.Size != 80 {
		t.Errorf("optimistic node = %+v, want unconfirmed at (200,200) size 80", n)
	}
	if len(r.ink.strokes) != 1 || r.ink.tools[0] != ToolPen {
		t.Errorf("ink strokes = %d, want the pen stroke committed", len(r.ink.strokes))
	}
	if r.count(EventInkErased) != 1 {
		t.Errorf("ink erased %d times, want 1", r.count(EventInkErased))
	}

	r.c.Controller().Settle()
	if id, ok := n.RemoteIDValue(); !ok || id != 7 || n.Text != "Idea" {
		t.Errorf("confirmed node = id %v text %q, want 7 Idea", n.RemoteID, n.Text)
	}

	if len(r.fb.recognizes) != 1 {
		t.Fatalf("recognize calls = %d, want 1", len(r.fb.recognizes))
	}
	img, err := png.Decode(bytes.NewReader(r.fb.recognizes[0].Image))
	if err != nil {
		t.Fatalf("captured image is not a PNG: %v", err)
	}
	if got := img.Bounds().Size(); got != (image.Point{80, 80}) {
		t.Errorf("captured size = %v, want 80x80", got)
	}
}

func TestCanvasNewKindAndTopic(t *testing.T) {
	r := newCanvasRig(&fakeBackend{recognize: RecognizeResult{Text: "Fix", ID: 3}}, CanvasConfig{})
	r.c.SetNewKind(KindSolution)
	r.c.SetTopic("work")
	r.c.SubmitStroke(CirclePath(Vec2{100, 100}, 50, 32), ToolPen)
	r.c.Controller().Settle()

	req := r.fb.recognizes[0]
	if req.Kind != KindSolution || req.TopicName != "work" {
		t.Errorf("request kind/topic = %v/%q, want solution/work", req.Kind, req.TopicName)
	}
	if n := r.c.Graph().Nodes()[0]; n.Kind != KindSolution || n.TopicName != "work" {
		t.Errorf("node kind/topic = %v/%q, want solution/work", n.Kind, n.TopicName)
	}
}

func TestCanvasConnectionStroke(t *testing.T) {
	r := newCanvasRig(&fakeBackend{}, CanvasConfig{})
	gr := r.c.Graph()
	a := confirmedNode(gr, 100, 100, KindThought, 1)
	b := confirmedNode(gr, 300, 100, KindThought, 2)

	g := r.c.SubmitStroke(LinePath(a.Position, b.Position, 12), ToolPen)
	if g.Kind != GestureConnection || g.From != a || g.To != b {
		t.Fatalf("SubmitStroke = %+v, want connection a->b", g)
	}
	e := gr.EdgeBetween(a, b)
	if e == nil || !e.Pending {
		t.Fatalf("edge = %+v, want pending edge", e)
	}
	if r.count(EventInkErased) != 1 {
		t.Errorf("connection ink not erased")
	}

	r.c.Controller().Settle()
	if e.Pending {
		t.Error("edge still pending after backend success")
	}
	req := r.fb.connects[0]
	if req.ParentID != 1 || req.ChildID != 2 || !req.EstablishParentChild {
		t.Errorf("connect request = %+v, want parent 1 child 2", req)
	}
}

func TestCanvasConnectionToUnconfirmedReported(t *testing.T) {
	r := newCanvasRig(&fakeBackend{}, CanvasConfig{})
	gr := r.c.Graph()
	a := confirmedNode(gr, 100, 100, KindThought, 1)
	b := gr.CreateNode(NodeSpec{Position: Vec2{300, 100}, Size: 80})

	r.c.SubmitStroke(LinePath(a.Position, b.Position, 12), ToolPen)
	if gr.EdgeCount() != 0 {
		t.Errorf("EdgeCount = %d, want 0", gr.EdgeCount())
	}
	msg, ok := r.c.Status().Current()
	if !ok || !errors.Is(msg.Err, ErrUnconfirmedNode) {
		t.Errorf("status = %+v, want ErrUnconfirmedNode", msg)
	}
	if len(r.fb.connects) != 0 {
		t.Errorf("backend called %d times, want 0", len(r.fb.connects))
	}
}

func TestCanvasEraserNeverClassifies(t *testing.T) {
	r := newCanvasRig(&fakeBackend{}, CanvasConfig{})
	r.c.SetTool(ToolEraser)

	g := r.c.SubmitStroke(CirclePath(Vec2{200, 200}, 40, 32), ToolEraser)
	if g.Kind != GestureNone {
		t.Errorf("eraser gesture = %v, want none", g.Kind)
	}
	if r.c.Graph().NodeCount() != 0 {
		t.Error("eraser stroke created a bubble")
	}
	if len(r.ink.tools) != 1 || r.ink.tools[0] != ToolEraser {
		t.Errorf("ink tools = %v, want [eraser]", r.ink.tools)
	}
}

func TestCanvasScribbleKeepsInk(t *testing.T) {
	r := newCanvasRig(&fakeBackend{}, CanvasConfig{})
	g := r.c.SubmitStroke(LinePath(Vec2{0, 0}, Vec2{20, 5}, 5), ToolPen)
	if g.Kind != GestureNone {
		t.Errorf("gesture = %v, want none", g.Kind)
	}
	if r.count(EventInkErased) != 0 {
		t.Error("plain drawing was erased")
	}
	if len(r.ink.strokes) != 1 {
		t.Errorf("ink strokes = %d, want 1", len(r.ink.strokes))
	}
}

func TestCanvasInjectedCircle(t *testing.T) {
	r := newCanvasRig(&fakeBackend{recognize: RecognizeResult{Text: "Drawn", ID: 9}}, CanvasConfig{})
	r.c.InjectCircle(300, 300, 50, 32)
	r.frames(t)
	r.c.Controller().Settle()

	nodes := r.c.Graph().Nodes()
	if len(nodes) != 1 || nodes[0].Text != "Drawn" {
		t.Fatalf("nodes = %v, want one confirmed bubble", nodes)
	}
	if d := Distance(nodes[0].Position, Vec2{300, 300}); d > 1 {
		t.Errorf("bubble center off by %f", d)
	}
}

func TestCanvasInjectedConnectionFromRim(t *testing.T) {
	r := newCanvasRig(&fakeBackend{}, CanvasConfig{})
	gr := r.c.Graph()
	a := confirmedNode(gr, 100, 100, KindThought, 1)
	b := confirmedNode(gr, 300, 100, KindSolution, 2)

	// Start and end inside the tolerance ring but outside the bubbles, so
	// the press draws instead of grabbing a bubble.
	r.c.InjectStroke(LinePath(Vec2{145, 100}, Vec2{255, 100}, 12))
	r.frames(t)

	if gr.EdgeBetween(a, b) == nil {
		t.Fatal("no edge created from rim-to-rim stroke")
	}
}

func TestCanvasCircleTimeoutRollsBack(t *testing.T) {
	fb := &fakeBackend{recognize: RecognizeResult{Text: "late", ID: 1}, gate: make(chan struct{})}
	r := newCanvasRig(fb, CanvasConfig{})
	r.c.SubmitStroke(CirclePath(Vec2{200, 200}, 40, 32), ToolPen)
	n := r.c.Graph().Nodes()[0]

	r.clock.Advance(DefaultTimeout + time.Millisecond)
	r.c.Update(0)
	if r.c.Graph().Has(n) {
		t.Fatal("bubble survived its timeout")
	}
	msg, ok := r.c.Status().Current()
	if !ok || !errors.Is(msg.Err, ErrTimeout) {
		t.Errorf("status = %+v, want ErrTimeout", msg)
	}

	close(fb.gate)
	r.c.Controller().Settle()
	if r.c.Graph().NodeCount() != 0 {
		t.Error("late recognition resurrected the bubble")
	}
}

func TestCanvasLongPressMenuSetKind(t *testing.T) {
	r := newCanvasRig(&fakeBackend{updateID: 22}, CanvasConfig{})
	n := confirmedNode(r.c.Graph(), 300, 100, KindThought, 5)

	r.c.InjectPress(300, 100)
	r.frames(t)
	r.clock.Advance(FingerProfile.LongPressDelay)
	r.c.Update(0)
	if r.c.MenuNode() != n {
		t.Fatalf("MenuNode = %v, want the pressed bubble", r.c.MenuNode())
	}
	r.c.InjectRelease(300, 100)
	r.frames(t)

	if err := r.c.MenuAction(MenuSetSolution); err != nil {
		t.Fatalf("MenuAction: %v", err)
	}
	if n.Kind != KindSolution {
		t.Errorf("Kind = %v, want optimistic solution", n.Kind)
	}
	if r.c.MenuNode() != nil {
		t.Error("menu still open after action")
	}
	r.c.Controller().Settle()
	if id, _ := n.RemoteIDValue(); id != 22 {
		t.Errorf("RemoteID = %d, want 22", id)
	}
}

func TestCanvasMenuActionWithoutMenu(t *testing.T) {
	r := newCanvasRig(&fakeBackend{}, CanvasConfig{})
	if err := r.c.MenuAction(MenuDelete); err != nil {
		t.Errorf("MenuAction with closed menu = %v, want nil", err)
	}
	if calls := r.fb.callNames(); len(calls) != 0 {
		t.Errorf("backend calls = %v, want none", calls)
	}
}

func TestCanvasDoubleClickPops(t *testing.T) {
	r := newCanvasRig(&fakeBackend{}, CanvasConfig{})
	n := confirmedNode(r.c.Graph(), 200, 200, KindThought, 4)

	r.c.InjectClick(200, 200)
	r.c.InjectClick(200, 200)
	r.frames(t)
	if n.State != NodeDeleting {
		t.Fatalf("State = %v, want deleting", n.State)
	}
	r.c.Controller().Settle()
	if r.c.Graph().Has(n) {
		t.Error("bubble not removed after delete")
	}
	if !r.c.Animator().Active() {
		t.Error("pop did not start an animation")
	}
}

func TestCanvasPinToolPops(t *testing.T) {
	r := newCanvasRig(&fakeBackend{}, CanvasConfig{})
	n := r.c.Graph().CreateNode(NodeSpec{Position: Vec2{200, 200}, Size: 80})
	r.c.SetTool(ToolPin)
	r.c.InjectClick(200, 200)
	r.frames(t)
	if r.c.Graph().Has(n) {
		t.Error("pin tool did not remove the unconfirmed bubble")
	}
}

func TestCanvasPanEmitsTransformChange(t *testing.T) {
	r := newCanvasRig(&fakeBackend{}, CanvasConfig{ResetPanDuration: 0.2})
	r.c.ClearDirty()
	r.c.Transform().Pan(30, -10)
	if r.count(EventTransformChanged) != 1 {
		t.Errorf("transform events = %d, want 1", r.count(EventTransformChanged))
	}
	if !r.c.Dirty() {
		t.Error("pan did not mark the canvas dirty")
	}

	r.c.ResetPan()
	for range 20 {
		r.c.Update(0.05)
	}
	if off := r.c.Transform().Offset(); off != (Vec2{}) {
		t.Errorf("Offset after reset = %v, want zero", off)
	}
}

func TestCanvasClearInk(t *testing.T) {
	r := newCanvasRig(&fakeBackend{}, CanvasConfig{})
	r.c.ClearInk()
	if r.count(EventInkErased) != 1 || r.events[len(r.events)-1].Stroke != nil {
		t.Errorf("ClearInk events = %+v, want one erase with nil stroke", r.events)
	}
}

func TestCanvasCaptureDir(t *testing.T) {
	dir := t.TempDir()
	r := newCanvasRig(&fakeBackend{recognize: RecognizeResult{Text: "x", ID: 1}}, CanvasConfig{CaptureDir: dir})
	r.c.SubmitStroke(CirclePath(Vec2{200, 200}, 40, 32), ToolPen)
	r.c.Controller().Settle()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("capture files = %d, want 1", len(entries))
	}
}

func TestCanvasEventSink(t *testing.T) {
	r := newCanvasRig(&fakeBackend{}, CanvasConfig{})
	sink := &recordingSink{}
	r.c.SetEventSink(sink)
	r.c.Graph().CreateNode(NodeSpec{Size: 70})
	if len(sink.events) != 1 || sink.events[0].Type != EventNodeAdded {
		t.Errorf("sink events = %+v, want one node-added", sink.events)
	}
}

func TestCanvasCatalogMarksDirty(t *testing.T) {
	cb := &catalogBackend{topics: []TopicSummary{{Name: "garden", Count: 1}}}
	c := NewCanvas(cb, CanvasConfig{Clock: NewManualClock(epoch)})
	defer c.Close()

	c.ClearDirty()
	c.RefreshCatalog()
	settleAll(c.Controller())

	if !c.Dirty() {
		t.Error("catalog refresh did not mark the canvas dirty")
	}
	if topics := c.Topics(); len(topics) != 1 || topics[0].Name != "garden" {
		t.Errorf("Topics = %+v", topics)
	}
	if c.Solutions() != nil {
		t.Errorf("Solutions = %+v, want nil", c.Solutions())
	}
}
