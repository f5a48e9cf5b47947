// Package encoder decodes a quadrature rotary encoder with an integrated
// push button into rotation ticks and short/long press events.
//
// All entry points take caller-supplied timestamps: the GPIO layer stamps
// each edge when it arrives, and tests drive the state machine with
// fabricated times. The decoder itself never reads a clock.
package encoder

import (
	"log/slog"
	"time"
)

// Press duration thresholds. The reference firmware mixed seconds and
// millisecond constants here; this implementation is consistently in
// milliseconds: release under one second is a short press, under ten
// seconds a long press, anything slower is ignored as an accidental hold.
const (
	shortPressMax = 1000 * time.Millisecond
	longPressMax  = 10000 * time.Millisecond
)

// TickFunc receives one resolved rotation detent. direction is -1 or +1.
type TickFunc func(at time.Time, direction int)

// PressFunc receives a classified button press.
type PressFunc func(at time.Time)

// Decoder is the quadrature + button state machine.
//
// Not internally locked: per the control design all pin events are funneled
// through a single goroutine, which is the only caller.
type Decoder struct {
	// Rotation state: the two pins form a 2-bit Gray code (left<<1 | right).
	state     int
	direction int // latched on the first transition away from state 0

	// Button state.
	buttonDown   bool
	lastButtonAt time.Time
	buttonPrimed bool // a press has been recorded and awaits its release

	onTick  TickFunc
	onShort PressFunc
	onLong  PressFunc
	logger  *slog.Logger
}

// New creates a decoder. Any callback may be nil.
func New(onTick TickFunc, onShort, onLong PressFunc, logger *slog.Logger) *Decoder {
	return &Decoder{
		onTick:  onTick,
		onShort: onShort,
		onLong:  onLong,
		logger:  logger,
	}
}

// HandleRotation processes one edge on either rotation pin, given the
// current level of both pins.
//
// Decoding rule: leaving the detent rest state (code 0) latches the
// rotation direction from sign(left-right); reaching code 3 with a latched
// direction emits exactly one tick and clears the latch, so a detent can
// never double-count. Returning to code 0 also clears the latch, which
// rejects partial movements and contact bounce.
func (d *Decoder) HandleRotation(at time.Time, left, right bool) {
	p1, p2 := b2i(left), b2i(right)
	next := p1<<1 | p2

	// Same code again means bounce on one pin; ignore.
	if next == d.state {
		return
	}

	if d.state == 0 {
		d.direction = p1 - p2
	}

	if next == 3 && (d.direction == 1 || d.direction == -1) {
		if d.onTick != nil {
			d.onTick(at, d.direction)
		}
		d.direction = 0
	}

	if next == 0 {
		d.direction = 0
	}

	d.state = next
}

// HandleButton processes a button level change. pressed is the debounced
// level (true while the knob is held down).
//
// A repeated identical level is a wiring or debounce anomaly: it is logged
// and ignored. On release, the press is classified by the time elapsed
// since the matching press edge.
func (d *Decoder) HandleButton(at time.Time, pressed bool) {
	if pressed == d.buttonDown {
		d.logger.Warn("repeated encoder button level ignored", "pressed", pressed)
		return
	}

	if pressed {
		d.buttonDown = true
		d.buttonPrimed = true
		d.lastButtonAt = at
		return
	}

	d.buttonDown = false
	if !d.buttonPrimed {
		d.lastButtonAt = at
		return
	}
	d.buttonPrimed = false

	held := at.Sub(d.lastButtonAt)
	d.lastButtonAt = at
	switch {
	case held < shortPressMax:
		d.logger.Debug("short press", "held", held)
		if d.onShort != nil {
			d.onShort(at)
		}
	case held < longPressMax:
		d.logger.Debug("long press", "held", held)
		if d.onLong != nil {
			d.onLong(at)
		}
	default:
		d.logger.Debug("press too long, ignored", "held", held)
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
