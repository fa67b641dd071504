package bubblemind

import (
	"math"
	"testing"

	"github.com/tanema/gween/ease"
)

func TestTweenGroupReachesTargets(t *testing.T) {
	var x, y float64
	g := &TweenGroup{}
	g.add(&x, 0, 100, 1.0, ease.Linear)
	g.add(&y, 10, 20, 1.0, ease.Linear)

	g.Update(0.5)
	if g.Done {
		t.Fatal("Done after half the duration")
	}
	if math.Abs(x-50) > 0.5 {
		t.Errorf("x = %f, want ~50", x)
	}
	g.Update(0.5)
	if !g.Done {
		t.Fatal("expected Done after full duration")
	}
	if math.Abs(x-100) > 0.01 || math.Abs(y-20) > 0.01 {
		t.Errorf("(x, y) = (%f, %f), want (100, 20)", x, y)
	}
}

func TestTweenGroupUpdateAfterDoneIsNoop(t *testing.T) {
	var v float64
	g := &TweenGroup{}
	g.add(&v, 0, 1, 0.1, ease.Linear)
	g.Update(0.2)
	v = 42
	g.Update(0.1)
	if v != 42 {
		t.Errorf("v = %f, want untouched 42", v)
	}
}

func TestAnimatorAppear(t *testing.T) {
	g := NewGraph()
	a := NewAnimator(g)
	defer a.Close()

	n := g.CreateNode(NodeSpec{Position: Vec2{100, 100}, Size: 80})
	v := a.Visual(n)
	if v.Scale != 0 || v.Alpha != 0 {
		t.Errorf("Visual at birth = %+v, want zero scale and alpha", v)
	}
	if !a.Active() {
		t.Error("Active() = false during appear")
	}

	a.Update(AppearDuration / 2)
	mid := a.Visual(n)
	if mid.Scale <= 0 || mid.Alpha <= 0 {
		t.Errorf("Visual mid-appear = %+v, want growing", mid)
	}

	a.Update(AppearDuration)
	if got := a.Visual(n); got != restingVisual {
		t.Errorf("Visual after appear = %+v, want %+v", got, restingVisual)
	}
}

func TestAnimatorPopLeavesGhostAndBurst(t *testing.T) {
	g := NewGraph()
	a := NewAnimator(g)
	defer a.Close()

	n := g.CreateNode(NodeSpec{Position: Vec2{50, 60}, Size: 100, Color: 2, Text: "gone"})
	g.RemoveNode(n)

	ghosts := a.Ghosts()
	if len(ghosts) != 1 {
		t.Fatalf("len(Ghosts()) = %d, want 1", len(ghosts))
	}
	if ghosts[0].Position != n.Position || ghosts[0].Text != "gone" {
		t.Errorf("ghost = %+v, want snapshot of removed node", ghosts[0])
	}
	bursts := a.Bursts()
	if len(bursts) != 1 {
		t.Fatalf("len(Bursts()) = %d, want 1", len(bursts))
	}
	if bursts[0].Color != Palette[2] {
		t.Errorf("burst color = %v, want %v", bursts[0].Color, Palette[2])
	}
	if got := len(bursts[0].Particles()); got != 15 {
		t.Errorf("particles = %d, want 15", got)
	}

	a.Update(PopDuration + 0.01)
	if len(a.Ghosts()) != 0 {
		t.Errorf("ghost still present after %vs", PopDuration)
	}
	for range 20 {
		a.Update(0.1)
	}
	if a.Active() {
		t.Error("Active() = true after every animation finished")
	}
}

func TestAnimatorCloseStopsListening(t *testing.T) {
	g := NewGraph()
	a := NewAnimator(g)
	a.Close()
	g.CreateNode(NodeSpec{Size: 80})
	if a.Active() {
		t.Error("closed animator reacted to a graph event")
	}
}
