// Command bubblemind opens the gesture canvas. Draw with the pen, close a
// circle around ink to turn it into a bubble, and stroke from one bubble to
// another to connect them. Long-press a bubble for its menu.
//
//	bubblemind -config bubblemind.yaml -font NotoSansSC-Regular.otf
package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
	"go.uber.org/zap"

	"github.com/phanxgames/bubblemind"
	"github.com/phanxgames/bubblemind/backend"
	"github.com/phanxgames/bubblemind/config"
	"github.com/phanxgames/bubblemind/ecs"
	"github.com/phanxgames/bubblemind/view"
)

const windowTitle = "BubbleMind"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	fontPath := flag.String("font", "", "TrueType/OpenType face for labels; use a CJK font for Chinese text")
	script := flag.String("script", "", "JSON gesture script to play on start (overrides canvas.script)")
	showFPS := flag.Bool("fps", false, "show the FPS overlay")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	lvl, err := cfg.Level()
	if err != nil {
		log.Fatal(err)
	}
	level := zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.BuildLogger(level)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if *configPath != "" && cfg.Environment == config.Development {
		w, err := config.FollowLevel(*configPath, level, logger)
		if err != nil {
			logger.Warn("config watch disabled", zap.Error(err))
		} else {
			defer w.Close()
		}
	}

	client, err := backend.New(backend.Config{
		BaseURL: cfg.Backend.URL,
		Timeout: cfg.Timeout(),
		Logger:  logger,
		Breaker: backend.BreakerConfig{
			MaxRequests:      cfg.Backend.Breaker.MaxRequests,
			Interval:         cfg.Backend.Breaker.Interval,
			Timeout:          cfg.Backend.Breaker.Timeout,
			FailureThreshold: cfg.Backend.Breaker.FailureThreshold,
			MinRequests:      cfg.Backend.Breaker.MinRequests,
		},
	})
	if err != nil {
		logger.Fatal("backend client", zap.Error(err))
	}

	canvas := bubblemind.NewCanvas(client, bubblemind.CanvasConfig{
		Logger:     logger,
		Timeout:    cfg.Timeout(),
		CaptureDir: cfg.Canvas.CaptureDir,
	})
	defer canvas.Close()

	world := donburi.NewWorld()
	canvas.SetEventSink(ecs.NewDonburiSink(world))
	ecs.ChangeEventType.Subscribe(world, func(_ donburi.World, ev bubblemind.ChangeEvent) {
		logger.Debug("canvas change", zap.Stringer("type", ev.Type))
	})

	scriptPath := cfg.Canvas.Script
	if *script != "" {
		scriptPath = *script
	}
	if scriptPath != "" {
		data, err := os.ReadFile(scriptPath)
		if err != nil {
			logger.Fatal("read script", zap.Error(err))
		}
		runner, err := bubblemind.LoadTestScript(data)
		if err != nil {
			logger.Fatal("load script", zap.Error(err))
		}
		canvas.SetTestRunner(runner)
	}

	var fontData []byte
	if *fontPath != "" {
		if fontData, err = os.ReadFile(*fontPath); err != nil {
			logger.Fatal("read font", zap.Error(err))
		}
	}

	g, err := view.New(canvas, view.Options{
		Width:    cfg.Canvas.Width,
		Height:   cfg.Canvas.Height,
		DPR:      cfg.Canvas.DPR,
		FontData: fontData,
		Logger:   logger,
		ShowFPS:  *showFPS,
		Debug:    lvl == zap.DebugLevel,
		OnUpdate: func() { events.ProcessAllEvents(world) },
	})
	if err != nil {
		logger.Fatal("view", zap.Error(err))
	}
	defer g.Close()

	canvas.CheckHealth()
	logger.Info("keys: " + strings.Join(view.KeyHelp(), ", "))
	if err := g.Run(windowTitle); err != nil {
		logger.Error("run", zap.Error(err))
	}
}
