// Package bus implements the typed publish/subscribe dispatcher that
// decouples hardware event producers from the business-logic handlers.
//
// Delivery is synchronous and ordered: Publish invokes every subscriber for
// the event's kind on the caller's goroutine, in registration order. The
// dispatcher itself holds no business state; serialization of handler
// execution is the responsibility of the single control goroutine that owns
// all Publish calls (see internal/control).
package bus

import (
	"log/slog"
	"sync"
)

// Handler consumes a published event. A handler must not block for long;
// it runs inline on the publisher's goroutine.
type Handler func(Event)

// Subscription identifies a registered handler so it can be removed.
type Subscription struct {
	kind Kind
	id   uint64
}

type subscriber struct {
	id uint64
	fn Handler
}

// Dispatcher routes events to subscribers by kind.
//
// Thread-safe. Created once at startup and passed explicitly to every
// component that needs it.
type Dispatcher struct {
	mu     sync.RWMutex
	subs   map[Kind][]subscriber
	nextID uint64
	logger *slog.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		subs:   make(map[Kind][]subscriber),
		logger: logger,
	}
}

// Subscribe appends fn to the delivery list for kind and returns a token
// for Unsubscribe. Insertion order is delivery order.
func (d *Dispatcher) Subscribe(kind Kind, fn Handler) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	d.subs[kind] = append(d.subs[kind], subscriber{id: d.nextID, fn: fn})
	d.logger.Debug("subscriber registered", "kind", kind.String(), "id", d.nextID)
	return Subscription{kind: kind, id: d.nextID}
}

// Unsubscribe removes the handler identified by sub. Removing an unknown
// subscription is a no-op.
func (d *Dispatcher) Unsubscribe(sub Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := d.subs[sub.kind]
	for i, s := range list {
		if s.id == sub.id {
			d.subs[sub.kind] = append(list[:i:i], list[i+1:]...)
			d.logger.Debug("subscriber removed", "kind", sub.kind.String(), "id", sub.id)
			return
		}
	}
}

// Publish delivers ev to every subscriber of its kind, in registration
// order, on the calling goroutine. A kind with no subscribers is a no-op.
// A panicking subscriber is logged and does not prevent delivery to the
// remaining subscribers.
func (d *Dispatcher) Publish(ev Event) {
	d.mu.RLock()
	list := d.subs[ev.Kind()]
	// Copy so subscribers may (un)subscribe from within a handler.
	handlers := make([]subscriber, len(list))
	copy(handlers, list)
	d.mu.RUnlock()

	if len(handlers) == 0 {
		d.logger.Debug("event without subscribers", "kind", ev.Kind().String())
		return
	}

	for _, s := range handlers {
		d.invoke(s, ev)
	}
}

// invoke runs one handler with panic isolation.
func (d *Dispatcher) invoke(s subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				"kind", ev.Kind().String(), "id", s.id, "panic", r)
		}
	}()
	s.fn(ev)
}
