package control

import (
	"context"
	"log/slog"

	"github.com/kimifish/soundmaster/internal/bus"
)

const defaultQueueDepth = 64

// Loop feeds events from any producer goroutine into the dispatcher on a
// single goroutine, so every business handler runs serialized without its
// own locking.
type Loop struct {
	dispatcher *bus.Dispatcher
	events     chan bus.Event
	logger     *slog.Logger
}

// NewLoop creates the event queue. depth <= 0 selects the default.
func NewLoop(dispatcher *bus.Dispatcher, depth int, logger *slog.Logger) *Loop {
	if depth <= 0 {
		depth = defaultQueueDepth
	}
	return &Loop{
		dispatcher: dispatcher,
		events:     make(chan bus.Event, depth),
		logger:     logger,
	}
}

// Push enqueues an event without blocking the producer. When the queue is
// full the event is dropped with a warning; producers (GPIO edges, MQTT
// handlers) must never stall on a slow consumer.
func (l *Loop) Push(ev bus.Event) {
	select {
	case l.events <- ev:
	default:
		l.logger.Warn("event queue full, dropping event", "kind", ev.Kind().String())
	}
}

// Run drains the queue into the dispatcher until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-l.events:
			l.dispatcher.Publish(ev)
		}
	}
}
