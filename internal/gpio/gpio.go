//go:build linux

// Package gpio wraps the GPIO character device (via go-gpiocdev) behind the
// small pin interfaces the decoders consume, so everything above this
// package is hardware-free and testable with fakes.
package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// debouncePeriod is the kernel-side debounce applied to every input line.
// Matches the 20 ms bouncetime the selector and encoder contacts need.
const debouncePeriod = 20 * time.Millisecond

// Edge is one observed input transition. Level is the line level after the
// edge. At is taken from the wall clock when the kernel event is delivered;
// decoder timing windows are long relative to delivery jitter.
type Edge struct {
	At    time.Time
	Level bool
}

// EventFunc receives input edges. It is called from the gpiocdev event
// goroutine and must hand off quickly.
type EventFunc func(Edge)

// Chip names a GPIO character device, e.g. "gpiochip0".
type Chip struct {
	name string
}

// NewChip creates a handle for the named chip. Lines are requested lazily,
// so this never fails; a bad name surfaces on the first request.
func NewChip(name string) *Chip {
	return &Chip{name: name}
}

// InputLine is an edge-monitored input pin.
type InputLine struct {
	line *gpiocdev.Line
}

// RequestInput requests offset as a debounced, both-edges input line.
// When pullDown is set the internal pull-down is enabled (selector sense
// lines); otherwise the line bias is left as wired (encoder pins have
// external pull-ups).
func (c *Chip) RequestInput(offset int, pullDown bool, fn EventFunc) (*InputLine, error) {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(debouncePeriod),
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			fn(Edge{
				At:    time.Now(),
				Level: evt.Type == gpiocdev.LineEventRisingEdge,
			})
		}),
	}
	if pullDown {
		opts = append(opts, gpiocdev.WithPullDown)
	}

	line, err := gpiocdev.RequestLine(c.name, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request input %s:%d: %w", c.name, offset, err)
	}
	return &InputLine{line: line}, nil
}

// Value reads the current line level.
func (l *InputLine) Value() (bool, error) {
	v, err := l.line.Value()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Close releases the line.
func (l *InputLine) Close() error { return l.line.Close() }

// OutputLine is an output pin. It satisfies inputsel.OutputPin.
type OutputLine struct {
	line *gpiocdev.Line
}

// RequestOutput requests offset as an output line driven low.
func (c *Chip) RequestOutput(offset int) (*OutputLine, error) {
	line, err := gpiocdev.RequestLine(c.name, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request output %s:%d: %w", c.name, offset, err)
	}
	return &OutputLine{line: line}, nil
}

// Set drives the line high or low.
func (l *OutputLine) Set(high bool) error {
	v := 0
	if high {
		v = 1
	}
	return l.line.SetValue(v)
}

// Close drives the line low and releases it.
func (l *OutputLine) Close() error {
	_ = l.line.SetValue(0)
	return l.line.Close()
}
