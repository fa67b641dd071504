package bubblemind

import (
	"errors"
	"image"
	"time"

	"go.uber.org/zap"
)

// InkRecorder is implemented by ink layers that keep finished strokes. The
// canvas commits every pen and eraser stroke before classifying it so a
// circle capture sees its own ink. Consumed strokes are announced with
// EventInkErased; a nil Stroke clears the whole layer.
type InkRecorder interface {
	AddStroke(path []Vec2, tool Tool)
}

// MenuAction is a context menu choice.
type MenuAction uint8

const (
	MenuClose MenuAction = iota
	MenuDelete
	MenuSetThought
	MenuSetSolution
	MenuSetTopic
)

// CanvasConfig configures a Canvas. Zero values select defaults.
type CanvasConfig struct {
	Clock      Clock
	Logger     *zap.Logger
	Timeout    time.Duration
	Classifier ClassifierConfig
	Finger     DeviceProfile
	Stylus     DeviceProfile
	// CaptureDir, when set, receives a copy of every circle capture.
	CaptureDir string
	// ResetPanDuration is the length of the pan reset animation in seconds.
	ResetPanDuration float32
}

// Canvas is the top-level object that owns the graph, the coordinate
// transform, gesture recognition, backend sync and the pointer state machine.
// All methods must be called from the event loop.
type Canvas struct {
	graph       *Graph
	transform   *Transform
	classifier  *Classifier
	controller  *Controller
	interaction *Interaction
	animator    *Animator
	status      *StatusBar
	clock       Clock
	logger      *zap.Logger

	ink        InkSource
	newKind    Kind
	topic      string
	captureDir string
	panReset   float32
	dirty      bool

	injectQueue []syntheticPointerEvent
	testRunner  *TestRunner
}

// NewCanvas creates an empty canvas syncing with b.
func NewCanvas(b Backend, cfg CanvasConfig) *Canvas {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	panReset := cfg.ResetPanDuration
	if panReset <= 0 {
		panReset = 0.4
	}

	c := &Canvas{
		graph:      NewGraph(),
		transform:  NewTransform(),
		status:     NewStatusBar(clock),
		clock:      clock,
		logger:     logger,
		captureDir: cfg.CaptureDir,
		panReset:   panReset,
		dirty:      true,
	}
	c.classifier = NewClassifier(c.graph, cfg.Classifier)
	c.controller = NewController(c.graph, b, clock,
		WithTimeout(cfg.Timeout),
		WithLogger(logger.Named("sync")),
		WithStatusBar(c.status),
	)
	c.animator = NewAnimator(c.graph)
	c.interaction = NewInteraction(c.graph, c.transform, clock, InteractionHandlers{
		Stroke: func(path []Vec2, tool Tool) { c.SubmitStroke(path, tool) },
		Pop:    func(n *Node) { _ = c.pop(n) },
		Menu:   func(*Node) { c.dirty = true },
	})
	finger, stylus := FingerProfile, StylusProfile
	if cfg.Finger != (DeviceProfile{}) {
		finger = cfg.Finger
	}
	if cfg.Stylus != (DeviceProfile{}) {
		stylus = cfg.Stylus
	}
	c.interaction.SetProfiles(finger, stylus)

	c.graph.OnChange(func(ChangeEvent) { c.dirty = true })
	c.transform.OnChange(func() {
		c.graph.Emit(ChangeEvent{Type: EventTransformChanged})
	})
	c.status.OnMessage(func(StatusMessage) { c.dirty = true })
	c.controller.OnCatalogChange(func() { c.dirty = true })
	return c
}

// Graph returns the canvas's graph store.
func (c *Canvas) Graph() *Graph { return c.graph }

// Transform returns the coordinate transform.
func (c *Canvas) Transform() *Transform { return c.transform }

// Classifier returns the gesture classifier.
func (c *Canvas) Classifier() *Classifier { return c.classifier }

// Controller returns the sync controller.
func (c *Canvas) Controller() *Controller { return c.controller }

// Interaction returns the pointer state machine.
func (c *Canvas) Interaction() *Interaction { return c.interaction }

// Animator returns the bubble animator.
func (c *Canvas) Animator() *Animator { return c.animator }

// Status returns the status bar.
func (c *Canvas) Status() *StatusBar { return c.status }

// SetInkSource sets the layer circle captures are read from. If it also
// implements InkRecorder, finished strokes are committed to it.
func (c *Canvas) SetInkSource(src InkSource) { c.ink = src }

// SetEventSink forwards change events to an ECS or other consumer.
func (c *Canvas) SetEventSink(sink EventSink) { c.graph.SetEventSink(sink) }

// Tool returns the active tool.
func (c *Canvas) Tool() Tool { return c.interaction.Tool() }

// SetTool switches tools, abandoning any gesture in progress.
func (c *Canvas) SetTool(t Tool) {
	c.interaction.SetTool(t)
	c.dirty = true
}

// NewKind returns the kind given to bubbles created from circles.
func (c *Canvas) NewKind() Kind { return c.newKind }

// SetNewKind selects the kind for bubbles created from circles.
func (c *Canvas) SetNewKind(k Kind) { c.newKind = k }

// Topic returns the topic name attached to new bubbles.
func (c *Canvas) Topic() string { return c.topic }

// SetTopic sets the topic name attached to new bubbles.
func (c *Canvas) SetTopic(name string) { c.topic = name }

// PointerDown forwards a press in client coordinates.
func (c *Canvas) PointerDown(ev PointerEvent) {
	c.interaction.PointerDown(ev)
	c.dirty = true
}

// PointerMove forwards a move in client coordinates.
func (c *Canvas) PointerMove(ev PointerEvent) {
	c.interaction.PointerMove(ev)
	c.dirty = true
}

// PointerUp forwards a release in client coordinates.
func (c *Canvas) PointerUp(ev PointerEvent) {
	c.interaction.PointerUp(ev)
	c.dirty = true
}

// SubmitStroke commits a finished stroke to the ink layer and, for pen
// strokes, classifies it. A circle becomes a new bubble; a connection
// becomes a pending edge. Both consume their ink. Unrecognised strokes stay
// on the ink layer as plain drawing.
func (c *Canvas) SubmitStroke(path []Vec2, tool Tool) Gesture {
	if rec, ok := c.ink.(InkRecorder); ok {
		rec.AddStroke(path, tool)
	}
	c.dirty = true
	if tool != ToolPen || len(path) == 0 {
		return Gesture{Kind: GestureNone}
	}

	g := c.classifier.Classify(path)
	switch g.Kind {
	case GestureCircle:
		img, err := c.capture(g.Bounds)
		if err != nil {
			c.logger.Warn("circle capture failed", zap.Error(err))
			c.status.Error("Could not capture the circle", err)
			return g
		}
		if _, err := c.controller.CreateNodeFromCircle(g, img, c.newKind, c.topic); err != nil {
			return g
		}
		c.eraseInk(path)
	case GestureConnection:
		c.logger.Debug("connection stroke",
			zap.String("from", g.From.LocalID),
			zap.String("to", g.To.LocalID),
		)
		// Precondition failures are reported on the status bar by the
		// controller; the stroke is consumed either way.
		_, _ = c.controller.Connect(g.From, g.To)
		c.eraseInk(path)
	}
	return g
}

func (c *Canvas) capture(bounds Rect) ([]byte, error) {
	var img image.Image
	if c.ink != nil {
		img = c.ink.InkImage()
	}
	data, err := CaptureRegion(img, c.transform, bounds)
	if err != nil {
		return nil, err
	}
	if c.captureDir != "" {
		path, err := SaveCapture(c.captureDir, "circle", data, c.clock.Now())
		if err != nil {
			c.logger.Warn("saving capture failed", zap.Error(err))
		} else {
			c.logger.Debug("capture saved", zap.String("path", path))
		}
	}
	return data, nil
}

func (c *Canvas) eraseInk(path []Vec2) {
	c.graph.Emit(ChangeEvent{Type: EventInkErased, Stroke: path})
}

// ClearInk erases every stroke on the ink layer. Bubbles and edges stay.
func (c *Canvas) ClearInk() {
	c.graph.Emit(ChangeEvent{Type: EventInkErased})
}

// Pop removes a bubble through the controller.
func (c *Canvas) Pop(n *Node) error {
	return c.pop(n)
}

func (c *Canvas) pop(n *Node) error {
	err := c.controller.Pop(n)
	if errors.Is(err, ErrBusy) {
		c.status.Info(describeErr(err))
	}
	return err
}

// MenuNode returns the bubble whose context menu is open, or nil.
func (c *Canvas) MenuNode() *Node { return c.interaction.MenuNode() }

// MenuAction applies a context menu choice to the bubble the menu was opened
// for and closes the menu.
func (c *Canvas) MenuAction(a MenuAction) error {
	n := c.interaction.MenuNode()
	c.interaction.CloseMenu()
	c.dirty = true
	if n == nil {
		return nil
	}
	switch a {
	case MenuDelete:
		return c.pop(n)
	case MenuSetThought:
		return c.controller.SetKind(n, KindThought)
	case MenuSetSolution:
		return c.controller.SetKind(n, KindSolution)
	case MenuSetTopic:
		return c.controller.SetKind(n, KindTopic)
	}
	return nil
}

// ResetPan animates the pan offset back to the origin.
func (c *Canvas) ResetPan() {
	c.transform.ResetPan(c.panReset, nil)
}

// Update advances one frame: scripted and injected input, the long-press
// timer, backend completions and timeouts, and animations.
func (c *Canvas) Update(dt float64) {
	if c.testRunner != nil {
		c.testRunner.step(c)
	}
	c.processInjectedInput()
	c.interaction.Update()
	c.controller.Update()
	c.transform.Update(float32(dt))
	c.animator.Update(dt)
	if c.animator.Active() || c.interaction.State() != StateIdle {
		c.dirty = true
	}
}

// Dirty reports whether anything changed since the last ClearDirty.
func (c *Canvas) Dirty() bool { return c.dirty }

// ClearDirty marks the current state as drawn.
func (c *Canvas) ClearDirty() { c.dirty = false }

// CheckHealth pings the backend and reports the result on the status bar.
func (c *Canvas) CheckHealth() { c.controller.CheckHealth() }

// Topics returns the backend's topic list as of the last refresh.
func (c *Canvas) Topics() []TopicSummary { return c.controller.Topics() }

// Solutions returns the backend's active solutions as of the last refresh.
func (c *Canvas) Solutions() []SolutionSummary { return c.controller.Solutions() }

// RefreshCatalog reloads the topic and solution lists.
func (c *Canvas) RefreshCatalog() { c.controller.RefreshCatalog() }

// Ask sends text to the assistant; the reply appears on the status bar.
func (c *Canvas) Ask(text string) { c.controller.Ask(text) }

// Close cancels outstanding backend calls and detaches listeners.
func (c *Canvas) Close() {
	c.controller.Close()
	c.animator.Close()
}
