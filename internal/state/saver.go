package state

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultSaveDelay is the quiet period collapsing bursts of save requests
// (e.g. fast encoder rotation) into a single write.
const DefaultSaveDelay = 10 * time.Second

// Saver coalesces RequestSave calls: a single pending timer slot, guarded
// by a mutex, is cancelled and re-armed on every request, so N requests
// within the delay window produce exactly one write timed from the last
// request.
type Saver struct {
	mu    sync.Mutex
	timer *time.Timer

	delay   time.Duration
	write   func() error
	onSaved func()
	logger  *slog.Logger
}

// NewSaver creates a saver. write performs the actual persistence and is
// called on a timer goroutine; onSaved (may be nil) fires after a
// successful write.
func NewSaver(delay time.Duration, write func() error, onSaved func(), logger *slog.Logger) *Saver {
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	return &Saver{
		delay:   delay,
		write:   write,
		onSaved: onSaved,
		logger:  logger,
	}
}

// RequestSave schedules a write after the quiet period, replacing any
// pending schedule.
func (s *Saver) RequestSave() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fire)
}

// Stop cancels any pending write. Returns true if one was pending.
func (s *Saver) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer == nil {
		return false
	}
	stopped := s.timer.Stop()
	s.timer = nil
	return stopped
}

// Flush performs a pending write immediately, if one is scheduled.
// Used on shutdown so the last change isn't lost to the quiet period.
func (s *Saver) Flush() {
	if s.Stop() {
		s.fire()
	}
}

func (s *Saver) fire() {
	if err := s.write(); err != nil {
		s.logger.Error("saving settings failed", "error", err)
	} else {
		s.logger.Debug("state saved")
		if s.onSaved != nil {
			s.onSaved()
		}
	}

	s.mu.Lock()
	s.timer = nil
	s.mu.Unlock()
}
