package bubblemind

import "testing"

// --- Rect.Contains ---

func TestRectContains(t *testing.T) {
	r := Rect{10, 20, 100, 50}
	tests := []struct {
		name   string
		x, y   float64
		expect bool
	}{
		{"inside", 50, 40, true},
		{"top-left corner", 10, 20, true},
		{"bottom-right corner", 110, 70, true},
		{"outside left", 9, 40, false},
		{"outside right", 111, 40, false},
		{"outside above", 50, 19, false},
		{"outside below", 50, 71, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Contains(tt.x, tt.y)
			if got != tt.expect {
				t.Errorf("Rect%v.Contains(%v, %v) = %v, want %v", r, tt.x, tt.y, got, tt.expect)
			}
		})
	}
}

// --- Rect.Intersects ---

func TestRectIntersects(t *testing.T) {
	base := Rect{10, 10, 100, 100}
	tests := []struct {
		name   string
		other  Rect
		expect bool
	}{
		{"overlapping", Rect{50, 50, 100, 100}, true},
		{"fully contained", Rect{20, 20, 10, 10}, true},
		{"adjacent right", Rect{110, 10, 50, 50}, true},
		{"disjoint right", Rect{111, 10, 50, 50}, false},
		{"disjoint below", Rect{10, 111, 50, 50}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := base.Intersects(tt.other)
			if got != tt.expect {
				t.Errorf("Rect%v.Intersects(Rect%v) = %v, want %v", base, tt.other, got, tt.expect)
			}
		})
	}
}

func TestRectCenterAndInset(t *testing.T) {
	r := Rect{10, 20, 40, 60}
	if c := r.Center(); c != (Vec2{30, 50}) {
		t.Errorf("Center() = %v, want (30,50)", c)
	}
	got := r.Inset(5)
	want := Rect{5, 15, 50, 70}
	if got != want {
		t.Errorf("Inset(5) = %v, want %v", got, want)
	}
}

// --- Kind ---

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"thought", KindThought, true},
		{"", KindThought, true},
		{"solution", KindSolution, true},
		{"conclusion", KindSolution, true},
		{"Topic", KindTopic, true},
		{"theme", KindTopic, true},
		{"banana", KindThought, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseKind(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseKind(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestKindStringRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindThought, KindSolution, KindTopic} {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), got, k)
		}
	}
}

func TestTopicActsAsThoughtParent(t *testing.T) {
	if KindTopic.parentKind() != KindThought {
		t.Errorf("KindTopic.parentKind() = %v, want thought", KindTopic.parentKind())
	}
	if KindSolution.parentKind() != KindSolution {
		t.Errorf("KindSolution.parentKind() = %v, want solution", KindSolution.parentKind())
	}
}
