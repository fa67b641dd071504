package bubblemind

import (
	"errors"
	"time"
)

// StatusLevel grades a status bar message.
type StatusLevel uint8

const (
	StatusInfo StatusLevel = iota
	StatusSuccess
	StatusError
)

// StatusMessage is one line for the status bar.
type StatusMessage struct {
	Level StatusLevel
	Text  string
	Err   error
	At    time.Time
}

// defaultStatusTTL is how long a message stays visible.
const defaultStatusTTL = 3 * time.Second

// StatusBar keeps the latest message and a short history.
type StatusBar struct {
	clock   Clock
	ttl     time.Duration
	current StatusMessage
	history []StatusMessage
	handler func(StatusMessage)
}

// NewStatusBar creates a status bar reading time from clock.
func NewStatusBar(clock Clock) *StatusBar {
	return &StatusBar{clock: clock, ttl: defaultStatusTTL}
}

// OnMessage installs a callback invoked for every posted message.
func (b *StatusBar) OnMessage(fn func(StatusMessage)) {
	b.handler = fn
}

// Info posts an informational message.
func (b *StatusBar) Info(text string) { b.post(StatusInfo, text, nil) }

// Success posts a success message.
func (b *StatusBar) Success(text string) { b.post(StatusSuccess, text, nil) }

// Error posts err with a user-facing prefix.
func (b *StatusBar) Error(text string, err error) { b.post(StatusError, text, err) }

func (b *StatusBar) post(level StatusLevel, text string, err error) {
	m := StatusMessage{Level: level, Text: text, Err: err, At: b.clock.Now()}
	b.current = m
	b.history = append(b.history, m)
	if len(b.history) > 32 {
		b.history = b.history[len(b.history)-32:]
	}
	if b.handler != nil {
		b.handler(m)
	}
}

// Current returns the visible message, or false when it has expired.
func (b *StatusBar) Current() (StatusMessage, bool) {
	if b.current.Text == "" {
		return StatusMessage{}, false
	}
	if b.clock.Now().Sub(b.current.At) > b.ttl {
		return StatusMessage{}, false
	}
	return b.current, true
}

// History returns the most recent messages, oldest first.
func (b *StatusBar) History() []StatusMessage {
	return b.history
}

// describeErr turns a taxonomy error into status bar wording.
func describeErr(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateEdge):
		return "These bubbles are already connected"
	case errors.Is(err, ErrUnconfirmedNode):
		return "Wait for the bubble to finish saving"
	case errors.Is(err, ErrInvalidDirection):
		return "A solution cannot connect to a thought"
	case errors.Is(err, ErrTimeout):
		return "The server took too long to respond"
	case errors.Is(err, ErrServerRejected):
		return "The server rejected the request"
	case errors.Is(err, ErrEmptyText):
		return "No text was recognized"
	case errors.Is(err, ErrBusy):
		return "Still saving, try again in a moment"
	case errors.Is(err, ErrBackendUnavailable):
		return "The server is unreachable"
	}
	return "Something went wrong"
}
