package inputsel

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDecoder_PinMapping tests the one-hot pin to source mapping.
func TestDecoder_PinMapping(t *testing.T) {
	cases := []struct {
		p1, p2, p3 bool
		want       Source
	}{
		{false, false, false, SourceOPi},
		{true, false, false, SourceOpt1},
		{false, true, false, SourceOpt2},
		{false, false, true, SourceAUX},
	}
	for _, c := range cases {
		d := NewDecoder(c.p1, c.p2, c.p3, nil, testLogger())
		if got := d.Current(); got != c.want {
			t.Errorf("pins (%v,%v,%v): expected %s, got %s", c.p1, c.p2, c.p3, c.want, got)
		}
	}
}

// TestDecoder_AmbiguousRetainsLast tests the last-known-good policy for
// multi-high patterns.
func TestDecoder_AmbiguousRetainsLast(t *testing.T) {
	var switches int
	d := NewDecoder(true, false, false, func(old, new Source) { switches++ }, testLogger())

	d.HandlePins(true, true, false) // mid-switch bounce
	if got := d.Current(); got != SourceOpt1 {
		t.Errorf("expected Opt1 retained through ambiguous pattern, got %s", got)
	}
	if switches != 0 {
		t.Errorf("ambiguous pattern fired %d switch callbacks", switches)
	}

	d.HandlePins(false, true, false)
	if got := d.Current(); got != SourceOpt2 {
		t.Errorf("expected Opt2 after settle, got %s", got)
	}
	if switches != 1 {
		t.Errorf("expected one switch callback, got %d", switches)
	}
}

// TestDecoder_CallbackCarriesOldAndNew tests the callback arguments.
func TestDecoder_CallbackCarriesOldAndNew(t *testing.T) {
	var gotOld, gotNew Source
	d := NewDecoder(false, false, false, func(old, new Source) {
		gotOld, gotNew = old, new
	}, testLogger())

	d.HandlePins(false, false, true)
	if gotOld != SourceOPi || gotNew != SourceAUX {
		t.Errorf("expected OPi -> AUX, got %s -> %s", gotOld, gotNew)
	}
}

// TestDecoder_NoCallbackWithoutChange tests that re-reporting the same
// pattern stays silent.
func TestDecoder_NoCallbackWithoutChange(t *testing.T) {
	var switches int
	d := NewDecoder(false, true, false, func(old, new Source) { switches++ }, testLogger())

	d.HandlePins(false, true, false)
	d.HandlePins(false, true, false)
	if switches != 0 {
		t.Errorf("unchanged pattern fired %d callbacks", switches)
	}
}

// fakePin counts presses and advances the decoder through the selector
// cycle like the real hardware does, optionally after a few dead presses.
type fakePin struct {
	dec        *Decoder
	order      []Source
	pos        int
	presses    int
	deadFirst  int // presses that move nothing, simulating a sticky relay
	failAlways bool
}

var errPin = errors.New("pin failure")

func (p *fakePin) Set(high bool) error {
	if p.failAlways {
		return errPin
	}
	if !high {
		return nil
	}
	p.presses++
	if p.presses <= p.deadFirst {
		return nil
	}
	p.pos = (p.pos + 1) % len(p.order)
	src := p.order[p.pos]
	switch src {
	case SourceOpt1:
		p.dec.HandlePins(true, false, false)
	case SourceOpt2:
		p.dec.HandlePins(false, true, false)
	case SourceAUX:
		p.dec.HandlePins(false, false, true)
	default:
		p.dec.HandlePins(false, false, false)
	}
	return nil
}

func newTestSwitcher(pin *fakePin, dec *Decoder) *Switcher {
	s := NewSwitcher(pin, dec, testLogger())
	s.sleep = func(time.Duration) {}
	return s
}

// TestSwitcher_Converges tests that pulses advance the selector to the
// target and stop.
func TestSwitcher_Converges(t *testing.T) {
	dec := NewDecoder(false, false, false, nil, testLogger())
	pin := &fakePin{dec: dec, order: Sources}
	s := newTestSwitcher(pin, dec)

	s.RequestSource(SourceAUX)

	if dec.Current() != SourceAUX {
		t.Errorf("expected AUX, got %s", dec.Current())
	}
	if pin.presses != 3 {
		t.Errorf("expected 3 presses OPi->Opt1->Opt2->AUX, got %d", pin.presses)
	}
}

// TestSwitcher_AlreadyThere tests that no pulse is sent when the target is
// active.
func TestSwitcher_AlreadyThere(t *testing.T) {
	dec := NewDecoder(true, false, false, nil, testLogger())
	pin := &fakePin{dec: dec, order: Sources, pos: 1}
	s := newTestSwitcher(pin, dec)

	s.RequestSource(SourceOpt1)
	if pin.presses != 0 {
		t.Errorf("expected no presses, got %d", pin.presses)
	}
}

// TestSwitcher_BudgetExhausted tests the soft failure: the budget runs out
// and the selector is left where it ended up.
func TestSwitcher_BudgetExhausted(t *testing.T) {
	dec := NewDecoder(false, false, false, nil, testLogger())
	// Every press is dead: the selector never moves.
	pin := &fakePin{dec: dec, order: Sources, deadFirst: 1000}
	s := newTestSwitcher(pin, dec)

	s.RequestSource(SourceAUX)

	if pin.presses != defaultMaxAttempts {
		t.Errorf("expected %d presses, got %d", defaultMaxAttempts, pin.presses)
	}
	if dec.Current() != SourceOPi {
		t.Errorf("selector should be left as-is, got %s", dec.Current())
	}
}

// TestSwitcher_UnknownTargetIgnored tests that an invalid label does
// nothing.
func TestSwitcher_UnknownTargetIgnored(t *testing.T) {
	dec := NewDecoder(false, false, false, nil, testLogger())
	pin := &fakePin{dec: dec, order: Sources}
	s := newTestSwitcher(pin, dec)

	s.RequestSource(Source("HDMI"))
	if pin.presses != 0 {
		t.Errorf("expected no presses for unknown target, got %d", pin.presses)
	}
}

// TestSwitcher_PinFailureStops tests that a failing output aborts the
// attempt loop.
func TestSwitcher_PinFailureStops(t *testing.T) {
	dec := NewDecoder(false, false, false, nil, testLogger())
	pin := &fakePin{dec: dec, order: Sources, failAlways: true}
	s := newTestSwitcher(pin, dec)

	s.RequestSource(SourceAUX)
	if pin.presses != 0 {
		t.Errorf("expected the loop to stop on pin failure")
	}
}

// TestValid tests source label validation.
func TestValid(t *testing.T) {
	for _, src := range Sources {
		if !Valid(src) {
			t.Errorf("%s should be valid", src)
		}
	}
	if Valid(Source("Tape")) {
		t.Error("unknown label should be invalid")
	}
}
