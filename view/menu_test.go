package view

import (
	"testing"

	"github.com/phanxgames/bubblemind"
)

func labelsOf(items []menuItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

func TestMenuItemsByKind(t *testing.T) {
	tests := []struct {
		kind bubblemind.Kind
		want []string
	}{
		{bubblemind.KindThought, []string{"Delete", "Make solution", "Make topic", "Close"}},
		{bubblemind.KindSolution, []string{"Archive", "Make thought", "Make topic", "Close"}},
		{bubblemind.KindTopic, []string{"Delete", "Make thought", "Make solution", "Close"}},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			n := &bubblemind.Node{Kind: tt.kind, Size: 60}
			got := labelsOf(menuItems(n, bubblemind.NewTransform()))
			if len(got) != len(tt.want) {
				t.Fatalf("labels = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("labels[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMenuItemsLayout(t *testing.T) {
	tr := bubblemind.NewTransform()
	tr.SetOffset(20, -10)
	n := &bubblemind.Node{Position: bubblemind.Vec2{X: 100, Y: 100}, Size: 60}

	items := menuItems(n, tr)
	first := items[0].Rect
	wantX := 100 + 20 + 30 + menuGap
	if first.X != wantX {
		t.Errorf("first.X = %v, want %v", first.X, wantX)
	}
	wantY := 90 - float64(len(items))*menuItemHeight/2
	if first.Y != wantY {
		t.Errorf("first.Y = %v, want %v", first.Y, wantY)
	}
	for i := 1; i < len(items); i++ {
		if items[i].Rect.Y != items[i-1].Rect.Y+menuItemHeight {
			t.Errorf("item %d not stacked below item %d", i, i-1)
		}
	}
}

func TestMenuItemsNilNode(t *testing.T) {
	if items := menuItems(nil, bubblemind.NewTransform()); items != nil {
		t.Errorf("menuItems(nil) = %v, want nil", items)
	}
}

func TestHitMenu(t *testing.T) {
	n := &bubblemind.Node{Position: bubblemind.Vec2{X: 100, Y: 100}, Size: 60}
	items := menuItems(n, bubblemind.NewTransform())

	c := items[1].Rect.Center()
	it, ok := hitMenu(items, c.X, c.Y)
	if !ok || it.Action != bubblemind.MenuSetSolution {
		t.Errorf("hitMenu(center of item 1) = %v, %v; want MenuSetSolution", it.Action, ok)
	}
	if _, ok := hitMenu(items, 100, 100); ok {
		t.Error("hitMenu on the bubble itself should miss")
	}
}
