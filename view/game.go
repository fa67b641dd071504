package view

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"

	"github.com/phanxgames/bubblemind"
)

// Options configures a Game. Zero values select defaults.
type Options struct {
	// Width and Height are the initial window size in device-independent
	// pixels. Defaults to 1280x800.
	Width, Height int
	// FontData is a TrueType or OpenType face for labels. Go Regular is used
	// when empty; it cannot render CJK recognition results.
	FontData []byte
	// FontSize is the label size in client units. Defaults to 14.
	FontSize float64
	// DPR fixes the device pixel ratio. Zero asks the monitor.
	DPR     float64
	Logger  *zap.Logger
	ShowFPS bool
	// Debug logs frame timing at debug level every few seconds.
	Debug bool
	// OnUpdate runs at the end of every tick, after the canvas update.
	OnUpdate func()
}

// Game adapts a Canvas to ebiten.Game.
type Game struct {
	canvas *bubblemind.Canvas
	ink    *InkLayer
	logger *zap.Logger

	font     *TTFFont // at fontSize
	scaled   *TTFFont // at fontSize*dpr, for the backing buffer
	fontSize float64

	input    pointerTracker
	router   menuRouter
	touchIDs []ebiten.TouchID
	touches  []touchSample

	width, height int
	dpr           float64
	fixedDPR      float64
	redraw        bool
	statusShown   bool

	fps     *fpsOverlay
	showFPS bool
	debug   bool
	stats   statsLogger

	onUpdate func()
}

// New wraps canvas in a Game and installs its ink layer as the canvas ink
// source.
func New(canvas *bubblemind.Canvas, opts Options) (*Game, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1280, 800
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 14
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	var (
		font *TTFFont
		err  error
	)
	if len(opts.FontData) > 0 {
		font, err = LoadTTFFont(opts.FontData, opts.FontSize)
	} else {
		font, err = DefaultFont(opts.FontSize)
	}
	if err != nil {
		return nil, err
	}

	t := canvas.Transform()
	dpr := t.DPR()
	g := &Game{
		canvas:   canvas,
		ink:      NewInkLayer(int(float64(opts.Width)*dpr), int(float64(opts.Height)*dpr), t),
		logger:   opts.Logger,
		font:     font,
		scaled:   font.WithSize(opts.FontSize * dpr),
		fontSize: opts.FontSize,
		router:   menuRouter{canvas: canvas, logger: opts.Logger},
		width:    opts.Width,
		height:   opts.Height,
		dpr:      dpr,
		fixedDPR: opts.DPR,
		redraw:   true,
		fps:      newFPSOverlay(),
		showFPS:  opts.ShowFPS,
		debug:    opts.Debug,
		stats:    statsLogger{logger: opts.Logger, interval: 5 * time.Second},
		onUpdate: opts.OnUpdate,
	}
	g.ink.Listen(canvas.Graph())
	canvas.SetInkSource(g.ink)
	return g, nil
}

// Ink returns the ink layer.
func (g *Game) Ink() *InkLayer { return g.ink }

// Run opens the window and blocks until it is closed.
func (g *Game) Run(title string) error {
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(g.width, g.height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetScreenClearedEveryFrame(false)
	return ebiten.RunGame(g)
}

// Close releases GPU resources. The canvas is left to the caller.
func (g *Game) Close() {
	g.ink.Dispose()
	g.fps.dispose()
}

// Update implements ebiten.Game.
func (g *Game) Update() error {
	for _, b := range keyBindings {
		if inpututil.IsKeyJustPressed(b.key) {
			g.pressKey(b.key)
		}
	}

	mx, my := ebiten.CursorPosition()
	g.input.mouse(&g.router, float64(mx)/g.dpr, float64(my)/g.dpr, ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft))
	g.touchIDs, g.touches = readTouches(g.touchIDs, g.touches, g.dpr)
	g.input.touches(&g.router, g.touches)

	dt := 1 / float64(ebiten.TPS())
	g.canvas.Update(dt)
	if g.showFPS && g.fps.update(dt, ebiten.ActualFPS(), ebiten.ActualTPS()) {
		g.redraw = true
	}
	if g.onUpdate != nil {
		g.onUpdate()
	}
	return nil
}

// Draw implements ebiten.Game. The screen is only repainted when something
// changed since the previous frame.
func (g *Game) Draw(screen *ebiten.Image) {
	_, statusVisible := g.canvas.Status().Current()
	if !g.canvas.Dirty() && !g.redraw && !statusVisible && !g.statusShown {
		return
	}
	g.statusShown = statusVisible
	g.redraw = false

	var st frameStats
	start := time.Now()
	screen.DrawImage(g.ink.Image(), nil)
	st.inkTime = time.Since(start)

	s := scene{dst: screen, canvas: g.canvas, font: g.scaled, dpr: g.dpr, stats: &st}
	s.drawEdges()
	s.drawBubbles()
	s.drawBursts()
	s.drawStroke()
	s.drawMenu()
	s.drawHUD()
	if g.showFPS {
		g.fps.draw(screen)
	}
	st.sceneTime = time.Since(start) - st.inkTime

	g.canvas.ClearDirty()
	if g.debug {
		g.stats.record(time.Now(), st)
	}
}

// Layout implements ebiten.Game. The returned size is the backing buffer,
// the outside size times the device pixel ratio.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	dpr := g.fixedDPR
	if dpr <= 0 {
		dpr = 1
		if m := ebiten.Monitor(); m != nil {
			dpr = m.DeviceScaleFactor()
		}
	}
	g.resize(outsideWidth, outsideHeight, dpr)
	return g.ink.Width(), g.ink.Height()
}

func (g *Game) resize(w, h int, dpr float64) {
	if dpr <= 0 {
		dpr = 1
	}
	if w == g.width && h == g.height && dpr == g.dpr {
		return
	}
	g.width, g.height = w, h
	if dpr != g.dpr {
		g.dpr = dpr
		g.canvas.Transform().SetDPR(dpr)
		g.scaled = g.font.WithSize(g.fontSize * dpr)
	}
	g.ink.Resize(int(float64(w)*dpr), int(float64(h)*dpr))
	g.redraw = true
	g.logger.Debug("layout changed",
		zap.Int("width", w),
		zap.Int("height", h),
		zap.Float64("dpr", dpr),
	)
}

// menuRouter sends presses on open menu items to the menu and everything
// else to the canvas. A pointer that hit the menu is ignored until release.
type menuRouter struct {
	canvas    *bubblemind.Canvas
	logger    *zap.Logger
	swallowed [maxPointers]bool
}

func (r *menuRouter) PointerDown(ev bubblemind.PointerEvent) {
	if n := r.canvas.MenuNode(); n != nil {
		if it, ok := hitMenu(menuItems(n, r.canvas.Transform()), ev.X, ev.Y); ok {
			r.swallowed[ev.ID] = true
			if err := r.canvas.MenuAction(it.Action); err != nil {
				r.logger.Debug("menu action failed", zap.String("item", it.Label), zap.Error(err))
			}
			return
		}
	}
	r.canvas.PointerDown(ev)
}

func (r *menuRouter) PointerMove(ev bubblemind.PointerEvent) {
	if r.swallowed[ev.ID] {
		return
	}
	r.canvas.PointerMove(ev)
}

func (r *menuRouter) PointerUp(ev bubblemind.PointerEvent) {
	if r.swallowed[ev.ID] {
		r.swallowed[ev.ID] = false
		return
	}
	r.canvas.PointerUp(ev)
}
