// Package lifecycle derives foreground/background signals from screen
// start/stop notifications.
package lifecycle

import (
	"context"
	"sync"
)

// Signal is an app-level visibility transition.
type Signal int

const (
	None Signal = iota
	Foreground
	Background
)

func (s Signal) String() string {
	switch s {
	case Foreground:
		return "foreground"
	case Background:
		return "background"
	default:
		return "none"
	}
}

// Handler reacts to app-level transitions.
type Handler interface {
	OnForeground(ctx context.Context)
	OnBackground(ctx context.Context)
}

// HandlerFuncs adapts plain functions to Handler.
type HandlerFuncs struct {
	Foreground func(ctx context.Context)
	Background func(ctx context.Context)
}

func (h HandlerFuncs) OnForeground(ctx context.Context) {
	if h.Foreground != nil {
		h.Foreground(ctx)
	}
}

func (h HandlerFuncs) OnBackground(ctx context.Context) {
	if h.Background != nil {
		h.Background(ctx)
	}
}

// Tracker counts visible screens. The first start after none were visible is
// Foreground, the last stop is Background. A stop caused by a configuration
// change (rotation and the like) and the restart that follows emit nothing.
type Tracker struct {
	mu             sync.Mutex
	started        int
	changingConfig bool
	handler        Handler
}

func NewTracker(h Handler) *Tracker {
	return &Tracker{handler: h}
}

// ScreenStarted records a screen becoming visible.
func (t *Tracker) ScreenStarted(ctx context.Context) Signal {
	t.mu.Lock()
	t.started++
	emit := t.started == 1 && !t.changingConfig
	t.mu.Unlock()

	if !emit {
		return None
	}
	t.handler.OnForeground(ctx)
	return Foreground
}

// ScreenStopped records a screen leaving the foreground.
func (t *Tracker) ScreenStopped(ctx context.Context, changingConfig bool) Signal {
	t.mu.Lock()
	t.changingConfig = changingConfig
	if t.started == 0 {
		t.mu.Unlock()
		return None
	}
	t.started--
	emit := t.started == 0 && !changingConfig
	t.mu.Unlock()

	if !emit {
		return None
	}
	t.handler.OnBackground(ctx)
	return Background
}

// Visible returns the number of started screens.
func (t *Tracker) Visible() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}
