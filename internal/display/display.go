// Package display serializes asynchronous render requests from multiple
// event producers onto one worker goroutine and manages the auto-clear
// timing of the small status OLED.
package display

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Renderer is the drawing surface the queue drives. Implementations do the
// actual panel I/O; see SSD1306.
type Renderer interface {
	// ShowText draws text centered on the panel, replacing its content.
	ShowText(text string) error
	// Clear blanks the panel.
	Clear() error
}

// DefaultClearDelay is how long a non-persistent render stays on screen.
const DefaultClearDelay = 7 * time.Second

const queueDepth = 16

type job func() error

// Display owns the render queue and auto-clear timer.
//
// ShowVolume/ShowInput/ShowMute/Clear may be called from any goroutine;
// only the worker started by Run touches the renderer.
type Display struct {
	renderer   Renderer
	logger     *slog.Logger
	clearDelay time.Duration

	jobs chan job

	mu         sync.Mutex
	muted      bool
	clearTimer *time.Timer
}

// New creates a display queue over the given renderer. clearDelay <= 0
// selects DefaultClearDelay.
func New(renderer Renderer, clearDelay time.Duration, logger *slog.Logger) *Display {
	if clearDelay <= 0 {
		clearDelay = DefaultClearDelay
	}
	return &Display{
		renderer:   renderer,
		logger:     logger,
		clearDelay: clearDelay,
		jobs:       make(chan job, queueDepth),
	}
}

// Run consumes the render queue until ctx is cancelled. It is the only
// goroutine that performs display I/O.
func (d *Display) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.stopClearTimer()
			return ctx.Err()
		case j := <-d.jobs:
			if err := j(); err != nil {
				d.logger.Error("display update failed", "error", err)
			}
		}
	}
}

// ShowVolume renders the master volume. The range endpoints read "Min"
// and "Max" instead of the bare numbers.
func (d *Display) ShowVolume(volume int) {
	var text string
	switch volume {
	case 0:
		text = "Min"
	case 79:
		text = "Max"
	default:
		text = fmt.Sprintf("%d", volume)
	}
	d.show(text, false)
}

// ShowInput renders the active input name.
func (d *Display) ShowInput(name string) {
	d.show(name, false)
}

// ShowMute renders the mute state. "Muted" is persistent: auto-clear is
// suppressed until unmute, which blanks the panel.
func (d *Display) ShowMute(muted bool) {
	d.mu.Lock()
	d.muted = muted
	d.mu.Unlock()

	if muted {
		d.show("Muted", true)
	} else {
		d.Clear()
	}
}

// Clear queues a blank unless the display is in the persistent muted state.
func (d *Display) Clear() {
	d.mu.Lock()
	muted := d.muted
	d.mu.Unlock()
	if muted {
		return
	}
	d.enqueue(d.renderer.Clear)
}

// show queues a text render; non-persistent renders re-arm the auto-clear.
func (d *Display) show(text string, persistent bool) {
	d.enqueue(func() error { return d.renderer.ShowText(text) })
	if persistent {
		d.stopClearTimer()
		return
	}
	d.scheduleClear()
}

// scheduleClear arms the one-shot auto-clear timer, replacing any pending
// one. Nothing is armed while muted.
func (d *Display) scheduleClear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.clearTimer != nil {
		d.clearTimer.Stop()
	}
	if d.muted {
		return
	}
	d.clearTimer = time.AfterFunc(d.clearDelay, d.Clear)
}

func (d *Display) stopClearTimer() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.clearTimer != nil {
		d.clearTimer.Stop()
		d.clearTimer = nil
	}
}

// enqueue adds a job, dropping it if the worker has fallen far behind.
// Dropping a stale render is harmless; blocking an input handler is not.
func (d *Display) enqueue(j job) {
	select {
	case d.jobs <- j:
	default:
		d.logger.Warn("display queue full, dropping render")
	}
}
