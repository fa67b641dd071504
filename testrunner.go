package bubblemind

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// testStep represents a single action in a gesture script.
type testStep struct {
	Action string  `json:"action"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	FromX  float64 `json:"fromX,omitempty"`
	FromY  float64 `json:"fromY,omitempty"`
	ToX    float64 `json:"toX,omitempty"`
	ToY    float64 `json:"toY,omitempty"`
	Radius float64 `json:"radius,omitempty"`
	Points int     `json:"points,omitempty"`
	Frames int     `json:"frames,omitempty"`
	MS     int     `json:"ms,omitempty"`
	Name   string  `json:"name,omitempty"`
}

// testScript is the top-level JSON structure for a gesture script.
type testScript struct {
	Steps []testStep `json:"steps"`
}

// TestRunner sequences injected gestures across frames for automated
// testing of a Canvas. Attach via SetTestRunner.
//
// Actions: click, press, move, release, drag, circle, line, wait (frames
// or ms), tool, kind, topic, menu, ask, resetPan, clearInk.
type TestRunner struct {
	steps     []testStep
	cursor    int
	waitCount int
	waitUntil time.Time
	done      bool
	err       error
}

// LoadTestScript parses a JSON gesture script and returns a TestRunner ready
// to be attached to a Canvas via SetTestRunner.
func LoadTestScript(jsonData []byte) (*TestRunner, error) {
	var script testScript
	if err := json.Unmarshal(jsonData, &script); err != nil {
		return nil, fmt.Errorf("parse test script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("parse test script: no steps")
	}
	for i, st := range script.Steps {
		if err := validateStep(st); err != nil {
			return nil, fmt.Errorf("parse test script: step %d: %w", i, err)
		}
	}
	return &TestRunner{steps: script.Steps}, nil
}

func validateStep(st testStep) error {
	switch st.Action {
	case "click", "press", "move", "release", "drag", "circle", "line",
		"wait", "menu", "resetPan", "clearInk", "topic":
		return nil
	case "tool":
		if _, ok := ParseTool(st.Name); !ok {
			return fmt.Errorf("unknown tool %q", st.Name)
		}
		return nil
	case "kind":
		if _, ok := ParseKind(st.Name); !ok {
			return fmt.Errorf("unknown kind %q", st.Name)
		}
		return nil
	case "ask":
		if strings.TrimSpace(st.Name) == "" {
			return fmt.Errorf("ask needs a name")
		}
		return nil
	}
	return fmt.Errorf("unknown action %q", st.Action)
}

// SetTestRunner attaches a TestRunner to the canvas. The runner advances one
// step per Update, before injected input is processed.
func (c *Canvas) SetTestRunner(runner *TestRunner) {
	c.testRunner = runner
}

// Done reports whether all steps in the script have been executed.
func (r *TestRunner) Done() bool {
	return r.done
}

// Err returns the first error a step produced, if any.
func (r *TestRunner) Err() error {
	return r.err
}

// step advances the runner by one frame. Called from Canvas.Update.
func (r *TestRunner) step(c *Canvas) {
	if r.done {
		return
	}
	// Wait for pending injections to drain before advancing.
	if c.Injecting() {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if !r.waitUntil.IsZero() {
		if c.clock.Now().Before(r.waitUntil) {
			return
		}
		r.waitUntil = time.Time{}
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "click":
		c.InjectClick(st.X, st.Y)
	case "press":
		c.InjectPress(st.X, st.Y)
	case "move":
		c.InjectMove(st.X, st.Y)
	case "release":
		c.InjectRelease(st.X, st.Y)
	case "drag":
		c.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, st.Frames)
	case "circle":
		n := st.Points
		if n == 0 {
			n = 32
		}
		c.InjectCircle(st.X, st.Y, st.Radius, n)
	case "line":
		n := st.Points
		if n == 0 {
			n = 12
		}
		c.InjectStroke(LinePath(Vec2{st.FromX, st.FromY}, Vec2{st.ToX, st.ToY}, n))
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
		if st.MS > 0 {
			r.waitUntil = c.clock.Now().Add(time.Duration(st.MS) * time.Millisecond)
		}
	case "tool":
		tool, _ := ParseTool(st.Name)
		c.SetTool(tool)
	case "kind":
		kind, _ := ParseKind(st.Name)
		c.SetNewKind(kind)
	case "topic":
		c.SetTopic(st.Name)
	case "menu":
		if err := c.MenuAction(parseMenuAction(st.Name)); err != nil && r.err == nil {
			r.err = fmt.Errorf("step %d: %w", r.cursor-1, err)
		}
	case "ask":
		c.Ask(st.Name)
	case "resetPan":
		c.ResetPan()
	case "clearInk":
		c.ClearInk()
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && r.waitUntil.IsZero() && !c.Injecting() {
		r.done = true
	}
}

func parseMenuAction(name string) MenuAction {
	switch name {
	case "delete":
		return MenuDelete
	case "thought":
		return MenuSetThought
	case "solution":
		return MenuSetSolution
	case "topic":
		return MenuSetTopic
	}
	return MenuClose
}
