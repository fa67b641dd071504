package view

import (
	"fmt"
	"math"
	"testing"

	"github.com/phanxgames/bubblemind"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func nearVec(a, b bubblemind.Vec2) bool { return near(a.X, b.X) && near(a.Y, b.Y) }

func TestCurvePoints(t *testing.T) {
	a := bubblemind.Vec2{X: 0, Y: 0}
	b := bubblemind.Vec2{X: 100, Y: 0}
	pts := curvePoints(a, b, 0.18, 4)

	if len(pts) != 5 {
		t.Fatalf("len = %d, want 5", len(pts))
	}
	if !nearVec(pts[0], a) || !nearVec(pts[4], b) {
		t.Errorf("endpoints = %v, %v; want %v, %v", pts[0], pts[4], a, b)
	}
	// Control point (50, -18); the curve peaks at half its offset.
	if want := (bubblemind.Vec2{X: 50, Y: -9}); !nearVec(pts[2], want) {
		t.Errorf("midpoint = %v, want %v", pts[2], want)
	}
}

func TestCurvePointsStraight(t *testing.T) {
	pts := curvePoints(bubblemind.Vec2{}, bubblemind.Vec2{X: 10, Y: 10}, 0, 0)
	if len(pts) != 2 {
		t.Fatalf("len = %d, want 2 for a clamped segment count", len(pts))
	}
}

func TestEdgeEndpoints(t *testing.T) {
	src := &bubblemind.Node{Position: bubblemind.Vec2{X: 0, Y: 0}, Size: 20}
	dst := &bubblemind.Node{Position: bubblemind.Vec2{X: 100, Y: 0}, Size: 40}

	start, end, ok := edgeEndpoints(src, dst)
	if !ok {
		t.Fatal("edgeEndpoints ok = false, want true")
	}
	if !nearVec(start, bubblemind.Vec2{X: 10}) || !nearVec(end, bubblemind.Vec2{X: 80}) {
		t.Errorf("endpoints = %v, %v; want (10,0), (80,0)", start, end)
	}

	dst.Position = bubblemind.Vec2{X: 25, Y: 0}
	if _, _, ok := edgeEndpoints(src, dst); ok {
		t.Error("overlapping bubbles should have no edge to draw")
	}
}

func TestArrowHead(t *testing.T) {
	l, r := arrowHead(bubblemind.Vec2{X: 10}, bubblemind.Vec2{}, 4)
	if !nearVec(l, bubblemind.Vec2{X: 6, Y: 2}) || !nearVec(r, bubblemind.Vec2{X: 6, Y: -2}) {
		t.Errorf("arrowHead = %v, %v; want (6,2), (6,-2)", l, r)
	}

	l, r = arrowHead(bubblemind.Vec2{X: 3, Y: 3}, bubblemind.Vec2{X: 3, Y: 3}, 4)
	if l != r {
		t.Error("degenerate arrow should collapse onto the tip")
	}
}

func TestBubbleAlpha(t *testing.T) {
	tests := []struct {
		state bubblemind.NodeState
		want  float64
	}{
		{bubblemind.NodeLocal, 0.6},
		{bubblemind.NodeConfirmed, 1},
		{bubblemind.NodeDeleting, 0.35},
	}
	for _, tt := range tests {
		if got := bubbleAlpha(tt.state); got != tt.want {
			t.Errorf("bubbleAlpha(%v) = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestSidebarLines(t *testing.T) {
	if got := sidebarLines(nil, nil); len(got) != 0 {
		t.Errorf("sidebarLines(nil, nil) = %v, want none", got)
	}

	topics := []bubblemind.TopicSummary{{Name: "garden", Count: 3}, {Name: "work", Count: 1}}
	var sols []bubblemind.SolutionSummary
	for i := range sidebarMax + 2 {
		sols = append(sols, bubblemind.SolutionSummary{ID: int64(i), Content: fmt.Sprintf("s%d", i)})
	}
	got := sidebarLines(topics, sols)
	if len(got) != sidebarMax+2 {
		t.Fatalf("len = %d, want %d: %v", len(got), sidebarMax+2, got)
	}
	if got[0] != "#garden (3)  #work (1)" {
		t.Errorf("topic line = %q", got[0])
	}
	if got[1] != "- s0" {
		t.Errorf("first solution = %q, want \"- s0\"", got[1])
	}
	if last := got[len(got)-1]; last != "+2 more" {
		t.Errorf("overflow line = %q, want \"+2 more\"", last)
	}
}
