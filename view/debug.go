package view

import (
	"time"

	"go.uber.org/zap"
)

// frameStats holds per-frame timing and draw counts. Only collected when
// the game runs with Debug set.
type frameStats struct {
	inkTime   time.Duration
	sceneTime time.Duration
	bubbles   int
	ghosts    int
	edges     int
	particles int
}

func (s frameStats) total() time.Duration { return s.inkTime + s.sceneTime }

// statsLogger aggregates frame stats and logs a summary once per interval.
type statsLogger struct {
	logger   *zap.Logger
	interval time.Duration

	start  time.Time
	frames int
	worst  time.Duration
	sum    time.Duration
	last   frameStats
}

// record adds one frame and reports whether a summary was logged.
func (l *statsLogger) record(now time.Time, s frameStats) bool {
	if l.start.IsZero() {
		l.start = now
	}
	l.frames++
	l.sum += s.total()
	l.worst = max(l.worst, s.total())
	l.last = s
	if now.Sub(l.start) < l.interval {
		return false
	}
	l.logger.Debug("frame stats",
		zap.Int("frames", l.frames),
		zap.Duration("avg", l.sum/time.Duration(l.frames)),
		zap.Duration("worst", l.worst),
		zap.Duration("ink", s.inkTime),
		zap.Duration("scene", s.sceneTime),
		zap.Int("bubbles", s.bubbles),
		zap.Int("ghosts", s.ghosts),
		zap.Int("edges", s.edges),
		zap.Int("particles", s.particles),
	)
	l.start = now
	l.frames = 0
	l.sum = 0
	l.worst = 0
	return true
}
