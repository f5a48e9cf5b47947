// Package inputsel decodes the DSP front-panel input selector from three
// discrete sense lines and can drive the selector remotely by pulsing the
// panel button output.
package inputsel

import (
	"log/slog"
	"sync"
)

// Source is one of the selectable audio inputs.
type Source string

const (
	SourceOPi  Source = "OPi" // all sense lines low; the board's own output
	SourceOpt1 Source = "Opt1"
	SourceOpt2 Source = "Opt2"
	SourceAUX  Source = "AUX"
)

// DefaultSource is selected when every sense line is low.
const DefaultSource = SourceOPi

// Sources lists every selectable input, in front-panel cycling order.
var Sources = []Source{SourceOPi, SourceOpt1, SourceOpt2, SourceAUX}

// Valid reports whether s names a known input.
func Valid(s Source) bool {
	for _, v := range Sources {
		if v == s {
			return true
		}
	}
	return false
}

// SwitchFunc is invoked when the resolved source changes.
type SwitchFunc func(old, new Source)

// Decoder resolves the active source from the three selector sense lines.
//
// Exactly one line high selects the matching source; all lines low selects
// DefaultSource. Any other pattern is treated as switching noise and the
// previous value is retained — a deliberate last-known-good policy, since a
// multi-high pattern only occurs mid-transition or on a wiring fault.
//
// Thread-safe: pin event goroutines call HandlePins while the switcher
// goroutine reads Current.
type Decoder struct {
	mu       sync.Mutex
	current  Source
	onSwitch SwitchFunc
	logger   *slog.Logger
}

// NewDecoder creates a decoder seeded from the initial pin levels.
// onSwitch may be nil.
func NewDecoder(p1, p2, p3 bool, onSwitch SwitchFunc, logger *slog.Logger) *Decoder {
	d := &Decoder{
		current:  DefaultSource,
		onSwitch: onSwitch,
		logger:   logger,
	}
	d.current = d.resolve(p1, p2, p3)
	return d
}

// Current returns the last resolved source.
func (d *Decoder) Current() Source {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// HandlePins recomputes the active source from the given levels.
// If the resolved value differs from the stored one, onSwitch fires with
// (old, new) before HandlePins returns.
func (d *Decoder) HandlePins(p1, p2, p3 bool) {
	d.mu.Lock()
	next := d.resolve(p1, p2, p3)
	old := d.current
	changed := next != old
	if changed {
		d.current = next
	}
	cb := d.onSwitch
	d.mu.Unlock()

	if changed && cb != nil {
		cb(old, next)
	}
}

// resolve maps pin levels to a source. Caller holds d.mu.
func (d *Decoder) resolve(p1, p2, p3 bool) Source {
	switch {
	case p1 && !p2 && !p3:
		return SourceOpt1
	case !p1 && p2 && !p3:
		return SourceOpt2
	case !p1 && !p2 && p3:
		return SourceAUX
	case !p1 && !p2 && !p3:
		return DefaultSource
	default:
		// Two or more lines high: mid-switch bounce, keep last known good.
		return d.current
	}
}
