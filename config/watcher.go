package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceDelay collapses the burst of events editors produce on save.
var debounceDelay = 500 * time.Millisecond

// Watcher reloads a config file when it changes.
type Watcher struct {
	path    string
	logger  *zap.Logger
	fn      func(*Config)
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// Watch calls fn with the reloaded config each time path is written. Invalid
// files are logged and skipped. The directory is watched so that editors
// that replace the file are seen.
func Watch(path string, logger *zap.Logger, fn func(*Config)) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch config: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch config: %w", err)
	}
	w := &Watcher{
		path:    abs,
		logger:  logger,
		fn:      fn,
		watcher: fsw,
		stopCh:  make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug("config file changed",
				zap.String("file", ev.Name),
				zap.String("operation", ev.Op.String()),
			)
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	select {
	case <-w.stopCh:
		return
	default:
	}
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error("config reload failed", zap.Error(err))
		return
	}
	w.logger.Info("config reloaded", zap.String("file", w.path))
	w.fn(cfg)
}

// Close stops watching.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.stopCh)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

// FollowLevel watches path and applies the log level of every valid reload
// to level.
func FollowLevel(path string, level zap.AtomicLevel, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Watch(path, logger, func(cfg *Config) {
		l, err := cfg.Level()
		if err != nil || l == level.Level() {
			return
		}
		level.SetLevel(l)
		logger.Info("log level changed", zap.Stringer("level", l))
	})
}
