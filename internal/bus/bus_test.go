package bus

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestPublish_NoSubscribers tests that publishing into the void is a no-op.
func TestPublish_NoSubscribers(t *testing.T) {
	d := NewDispatcher(testLogger())
	d.Publish(ShortPress{At: time.Now()}) // must not panic
}

// TestPublish_DeliveryOrder tests that subscribers run in registration
// order.
func TestPublish_DeliveryOrder(t *testing.T) {
	d := NewDispatcher(testLogger())

	var order []int
	for i := 0; i < 4; i++ {
		i := i
		d.Subscribe(KindRotation, func(Event) { order = append(order, i) })
	}

	d.Publish(Rotation{Steps: 1, At: time.Now()})

	if len(order) != 4 {
		t.Fatalf("expected 4 deliveries, got %d", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Errorf("delivery %d went to subscriber %d", i, got)
		}
	}
}

// TestPublish_KindIsolation tests that subscribers only see their kind.
func TestPublish_KindIsolation(t *testing.T) {
	d := NewDispatcher(testLogger())

	var rotations, presses int
	d.Subscribe(KindRotation, func(Event) { rotations++ })
	d.Subscribe(KindShortPress, func(Event) { presses++ })

	d.Publish(Rotation{Steps: 1})
	d.Publish(Rotation{Steps: -1})
	d.Publish(ShortPress{})

	if rotations != 2 || presses != 1 {
		t.Errorf("expected rotations=2 presses=1, got %d/%d", rotations, presses)
	}
}

// TestUnsubscribe tests removal by token, including a stale token.
func TestUnsubscribe(t *testing.T) {
	d := NewDispatcher(testLogger())

	var a, b int
	subA := d.Subscribe(KindMuteRequest, func(Event) { a++ })
	d.Subscribe(KindMuteRequest, func(Event) { b++ })

	d.Publish(MuteRequest{On: true})
	d.Unsubscribe(subA)
	d.Publish(MuteRequest{On: false})
	d.Unsubscribe(subA) // stale, must be a no-op

	if a != 1 {
		t.Errorf("unsubscribed handler ran %d times, expected 1", a)
	}
	if b != 2 {
		t.Errorf("remaining handler ran %d times, expected 2", b)
	}
}

// TestPublish_PanicIsolation tests that a panicking subscriber does not
// starve the rest.
func TestPublish_PanicIsolation(t *testing.T) {
	d := NewDispatcher(testLogger())

	var after int
	d.Subscribe(KindStateLoaded, func(Event) { panic("boom") })
	d.Subscribe(KindStateLoaded, func(Event) { after++ })

	d.Publish(StateLoaded{})

	if after != 1 {
		t.Errorf("subscriber after the panic ran %d times, expected 1", after)
	}
}

// TestSubscribeFromHandler tests that a handler may subscribe during
// delivery without corrupting the list.
func TestSubscribeFromHandler(t *testing.T) {
	d := NewDispatcher(testLogger())

	var late int
	d.Subscribe(KindStateSaved, func(Event) {
		d.Subscribe(KindStateSaved, func(Event) { late++ })
	})

	d.Publish(StateSaved{})
	if late != 0 {
		t.Errorf("late subscriber must not see the triggering event, ran %d times", late)
	}
	d.Publish(StateSaved{})
	if late != 1 {
		t.Errorf("late subscriber should see the next event once, ran %d times", late)
	}
}

// TestKindString tests the log names stay in sync with the enum.
func TestKindString(t *testing.T) {
	if KindRotation.String() != "rotation" {
		t.Errorf("unexpected name %q", KindRotation.String())
	}
	if Kind(999).String() != "unknown" {
		t.Errorf("unexpected name for out-of-range kind: %q", Kind(999).String())
	}
}
