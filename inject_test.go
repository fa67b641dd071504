package bubblemind

import "testing"

func TestInjectClickQueuesTwoEvents(t *testing.T) {
	r := newCanvasRig(&fakeBackend{}, CanvasConfig{})
	r.c.InjectClick(50, 50)
	if len(r.c.injectQueue) != 2 {
		t.Fatalf("expected 2 queued events, got %d", len(r.c.injectQueue))
	}

	// Frame 1: press.
	r.c.Update(0)
	if len(r.c.injectQueue) != 1 {
		t.Fatalf("expected 1 remaining event after frame 1, got %d", len(r.c.injectQueue))
	}
	if r.c.Interaction().State() != StateDrawing {
		t.Errorf("State after press on bare canvas = %v, want drawing", r.c.Interaction().State())
	}

	// Frame 2: release.
	r.c.Update(0)
	if r.c.Injecting() {
		t.Fatal("queue not drained after frame 2")
	}
	if r.c.Interaction().State() != StateIdle {
		t.Errorf("State after release = %v, want idle", r.c.Interaction().State())
	}
}

func TestInjectDragMovesBubble(t *testing.T) {
	r := newCanvasRig(&fakeBackend{}, CanvasConfig{})
	n := r.c.Graph().CreateNode(NodeSpec{Position: Vec2{100, 100}, Size: 80})

	// press, three moves, release
	r.c.InjectDrag(100, 100, 200, 100, 5)
	if len(r.c.injectQueue) != 5 {
		t.Fatalf("expected 5 queued events, got %d", len(r.c.injectQueue))
	}
	r.frames(t)

	if n.Position.X < 170 || n.Position.Y != 100 {
		t.Errorf("Position = %v, want dragged right to ~175", n.Position)
	}
	if r.c.Graph().NodeCount() != 1 {
		t.Error("drag should not create or remove bubbles")
	}
}

func TestInjectDragMinimumFrames(t *testing.T) {
	r := newCanvasRig(&fakeBackend{}, CanvasConfig{})
	r.c.InjectDrag(0, 0, 10, 10, 0)
	if len(r.c.injectQueue) != 2 {
		t.Errorf("expected press and release only, got %d", len(r.c.injectQueue))
	}
}

func TestInjectStrokeEventCount(t *testing.T) {
	r := newCanvasRig(&fakeBackend{}, CanvasConfig{})
	r.c.InjectStroke(LinePath(Vec2{0, 0}, Vec2{100, 0}, 7))
	if len(r.c.injectQueue) != 7 {
		t.Errorf("queued = %d, want 7", len(r.c.injectQueue))
	}
	r.c.InjectStroke(nil)
	if len(r.c.injectQueue) != 7 {
		t.Error("empty stroke should queue nothing")
	}
}

func TestInjectCircleIsClosed(t *testing.T) {
	r := newCanvasRig(&fakeBackend{}, CanvasConfig{})
	r.c.InjectCircle(100, 100, 30, 24)
	q := r.c.injectQueue
	if len(q) != 25 {
		t.Fatalf("queued = %d, want 25", len(q))
	}
	first, last := q[0], q[len(q)-1]
	if first.phase != injectDown || last.phase != injectUp {
		t.Errorf("phases = %v..%v, want down..up", first.phase, last.phase)
	}
	if first.ev.X != last.ev.X || first.ev.Y != last.ev.Y {
		t.Errorf("release at (%v,%v), want start (%v,%v)", last.ev.X, last.ev.Y, first.ev.X, first.ev.Y)
	}
}

func TestInjectedInputUsesTransform(t *testing.T) {
	r := newCanvasRig(&fakeBackend{}, CanvasConfig{})
	r.c.Transform().SetOrigin(10, 20)
	r.c.Transform().Pan(5, 5)

	r.c.InjectPress(115, 125)
	r.c.Update(0)
	stroke := r.c.Interaction().Stroke()
	if len(stroke) != 1 || stroke[0] != (Vec2{100, 100}) {
		t.Errorf("stroke = %v, want [(100,100)] in logical space", stroke)
	}
}
