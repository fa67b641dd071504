// Command bubblemind-server runs the reference REST service that the canvas
// syncs with: OCR stand-in, node storage in memory or Redis, and the agent
// endpoints.
//
//	bubblemind-server -config bubblemind.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/phanxgames/bubblemind/config"
	"github.com/phanxgames/bubblemind/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
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

	var repo server.Repository = server.NewMemoryRepository()
	if cfg.Server.RedisURL != "" {
		rr, err := server.NewRedisRepository(cfg.Server.RedisURL)
		if err != nil {
			logger.Fatal("redis connection failed", zap.Error(err))
		}
		defer rr.Close()
		repo = rr
		logger.Info("using redis repository")
	} else {
		logger.Info("using in-memory repository")
	}

	srv := server.New(server.Options{
		Repository:     repo,
		Recognizer:     server.NewRotatingRecognizer(cfg.Server.OCRTexts...),
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
