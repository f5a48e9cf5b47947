package encoder

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type tickRecorder struct {
	ticks []int
}

func (r *tickRecorder) onTick(_ time.Time, direction int) {
	r.ticks = append(r.ticks, direction)
}

// step drives one full detent cycle through the Gray code for the given
// direction. Clockwise is left leading: 0 -> 2 -> 3 -> 1 -> 0.
func stepCW(d *Decoder, at time.Time) {
	d.HandleRotation(at, true, false)
	d.HandleRotation(at, true, true)
	d.HandleRotation(at, false, true)
	d.HandleRotation(at, false, false)
}

func stepCCW(d *Decoder, at time.Time) {
	d.HandleRotation(at, false, true)
	d.HandleRotation(at, true, true)
	d.HandleRotation(at, true, false)
	d.HandleRotation(at, false, false)
}

// TestDecoder_OneDetentOneTick tests that a full quadrature cycle emits
// exactly one tick.
func TestDecoder_OneDetentOneTick(t *testing.T) {
	rec := &tickRecorder{}
	d := New(rec.onTick, nil, nil, testLogger())

	stepCW(d, time.Now())
	if len(rec.ticks) != 1 || rec.ticks[0] != 1 {
		t.Errorf("expected one +1 tick, got %v", rec.ticks)
	}

	stepCCW(d, time.Now())
	if len(rec.ticks) != 2 || rec.ticks[1] != -1 {
		t.Errorf("expected a -1 tick, got %v", rec.ticks)
	}
}

// TestDecoder_RepeatedCodeIgnored tests that bounce on one pin (the same
// code delivered twice) does not advance the state machine.
func TestDecoder_RepeatedCodeIgnored(t *testing.T) {
	rec := &tickRecorder{}
	d := New(rec.onTick, nil, nil, testLogger())
	at := time.Now()

	d.HandleRotation(at, true, false)
	d.HandleRotation(at, true, false) // bounce
	d.HandleRotation(at, true, false) // bounce
	d.HandleRotation(at, true, true)
	if len(rec.ticks) != 1 {
		t.Errorf("expected one tick despite bounce, got %v", rec.ticks)
	}
}

// TestDecoder_PartialMovementRejected tests that backing out of a detent
// without reaching code 3 emits nothing.
func TestDecoder_PartialMovementRejected(t *testing.T) {
	rec := &tickRecorder{}
	d := New(rec.onTick, nil, nil, testLogger())
	at := time.Now()

	d.HandleRotation(at, true, false)
	d.HandleRotation(at, false, false) // back to rest
	if len(rec.ticks) != 0 {
		t.Errorf("expected no tick for partial movement, got %v", rec.ticks)
	}

	// A full detent afterwards still works.
	stepCW(d, at)
	if len(rec.ticks) != 1 {
		t.Errorf("expected one tick after recovery, got %v", rec.ticks)
	}
}

// TestDecoder_NoDoubleCount tests that reaching code 3 twice within one
// detent cannot emit two ticks.
func TestDecoder_NoDoubleCount(t *testing.T) {
	rec := &tickRecorder{}
	d := New(rec.onTick, nil, nil, testLogger())
	at := time.Now()

	d.HandleRotation(at, true, false)
	d.HandleRotation(at, true, true) // tick
	d.HandleRotation(at, true, false)
	d.HandleRotation(at, true, true) // direction latch cleared, no tick
	if len(rec.ticks) != 1 {
		t.Errorf("expected one tick, got %v", rec.ticks)
	}
}

type pressRecorder struct {
	short, long int
}

func (r *pressRecorder) onShort(time.Time) { r.short++ }
func (r *pressRecorder) onLong(time.Time)  { r.long++ }

// TestDecoder_ShortPress tests classification of a quick press.
func TestDecoder_ShortPress(t *testing.T) {
	rec := &pressRecorder{}
	d := New(nil, rec.onShort, rec.onLong, testLogger())

	down := time.Now()
	d.HandleButton(down, true)
	d.HandleButton(down.Add(200*time.Millisecond), false)

	if rec.short != 1 || rec.long != 0 {
		t.Errorf("expected one short press, got short=%d long=%d", rec.short, rec.long)
	}
}

// TestDecoder_LongPress tests classification of a held press.
func TestDecoder_LongPress(t *testing.T) {
	rec := &pressRecorder{}
	d := New(nil, rec.onShort, rec.onLong, testLogger())

	down := time.Now()
	d.HandleButton(down, true)
	d.HandleButton(down.Add(3*time.Second), false)

	if rec.short != 0 || rec.long != 1 {
		t.Errorf("expected one long press, got short=%d long=%d", rec.short, rec.long)
	}
}

// TestDecoder_OverlongPressIgnored tests that an accidental hold past the
// long window emits nothing.
func TestDecoder_OverlongPressIgnored(t *testing.T) {
	rec := &pressRecorder{}
	d := New(nil, rec.onShort, rec.onLong, testLogger())

	down := time.Now()
	d.HandleButton(down, true)
	d.HandleButton(down.Add(15*time.Second), false)

	if rec.short != 0 || rec.long != 0 {
		t.Errorf("expected no press, got short=%d long=%d", rec.short, rec.long)
	}
}

// TestDecoder_RepeatedLevelIgnored tests that a duplicated level (missed
// edge) is dropped instead of producing a phantom press.
func TestDecoder_RepeatedLevelIgnored(t *testing.T) {
	rec := &pressRecorder{}
	d := New(nil, rec.onShort, rec.onLong, testLogger())

	at := time.Now()
	d.HandleButton(at, false) // release without press
	d.HandleButton(at.Add(time.Second), true)
	d.HandleButton(at.Add(2*time.Second), true) // duplicate press level
	d.HandleButton(at.Add(2200*time.Millisecond), false)

	// Held 1.2s from the only recorded press edge: a long press.
	if rec.short != 0 || rec.long != 1 {
		t.Errorf("expected one long press, got short=%d long=%d", rec.short, rec.long)
	}
}

// TestAccelerator_FastTicksScaled tests the acceleration ladder.
func TestAccelerator_FastTicksScaled(t *testing.T) {
	var a Accelerator
	base := time.Now()

	if got := a.Scale(base, 1); got != 1 {
		t.Errorf("first tick should be unscaled, got %d", got)
	}
	if got := a.Scale(base.Add(50*time.Millisecond), 1); got != 10 {
		t.Errorf("50ms spacing should scale x10, got %d", got)
	}
	if got := a.Scale(base.Add(160*time.Millisecond), 1); got != 5 {
		t.Errorf("110ms spacing should scale x5, got %d", got)
	}
}

// TestAccelerator_Ladder tests every rung boundary.
func TestAccelerator_Ladder(t *testing.T) {
	cases := []struct {
		spacing time.Duration
		steps   int
	}{
		{50 * time.Millisecond, 10},
		{110 * time.Millisecond, 5},
		{130 * time.Millisecond, 4},
		{180 * time.Millisecond, 3},
		{250 * time.Millisecond, 2},
		{500 * time.Millisecond, 1},
	}
	for _, c := range cases {
		var a Accelerator
		base := time.Now()
		a.Scale(base, 1)
		if got := a.Scale(base.Add(c.spacing), 1); got != c.steps {
			t.Errorf("spacing %v: expected %d steps, got %d", c.spacing, c.steps, got)
		}
	}
}

// TestAccelerator_DirectionChangeResets tests that reversing direction
// never accelerates.
func TestAccelerator_DirectionChangeResets(t *testing.T) {
	var a Accelerator
	base := time.Now()

	a.Scale(base, 1)
	if got := a.Scale(base.Add(10*time.Millisecond), -1); got != -1 {
		t.Errorf("direction change should pass through, got %d", got)
	}
}
