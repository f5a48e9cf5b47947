package inputsel

import (
	"log/slog"
	"time"
)

// OutputPin drives the emulated front-panel button line.
type OutputPin interface {
	Set(high bool) error
}

const (
	defaultPulseWidth  = 150 * time.Millisecond
	defaultSettleTime  = 500 * time.Millisecond
	defaultMaxAttempts = 10
)

// Switcher forces the selector to a target source by emulating button
// presses: a short high pulse on the panel button line advances the
// selector by one input, so we pulse and re-check until the decoder
// resolves the target or the attempt budget runs out.
type Switcher struct {
	out     OutputPin
	dec     *Decoder
	logger  *slog.Logger
	pulse   time.Duration
	settle  time.Duration
	retries int

	// sleep is replaceable in tests.
	sleep func(time.Duration)
}

// NewSwitcher wires a switcher to the button output and the sense decoder.
func NewSwitcher(out OutputPin, dec *Decoder, logger *slog.Logger) *Switcher {
	return &Switcher{
		out:     out,
		dec:     dec,
		logger:  logger,
		pulse:   defaultPulseWidth,
		settle:  defaultSettleTime,
		retries: defaultMaxAttempts,
		sleep:   time.Sleep,
	}
}

// RequestSource pulses the selector button until the decoder reports target
// or the attempt budget is exhausted. Exhaustion is a soft failure: it is
// logged and the selector is simply left on whatever input it reached.
// Unknown target labels are logged and ignored.
func (s *Switcher) RequestSource(target Source) {
	if !Valid(target) {
		s.logger.Warn("unsupported input source requested", "target", string(target))
		return
	}

	for attempt := 0; attempt < s.retries; attempt++ {
		if s.dec.Current() == target {
			s.logger.Info("input source switched", "source", string(target), "attempts", attempt)
			return
		}
		if err := s.pressButton(); err != nil {
			s.logger.Error("selector button pulse failed", "error", err)
			return
		}
		s.sleep(s.settle)
	}

	if s.dec.Current() == target {
		s.logger.Info("input source switched", "source", string(target), "attempts", s.retries)
		return
	}
	s.logger.Error("input source switch did not converge",
		"target", string(target), "attempts", s.retries, "current", string(s.dec.Current()))
}

// pressButton emulates one front-panel button press.
func (s *Switcher) pressButton() error {
	if err := s.out.Set(true); err != nil {
		return err
	}
	s.sleep(s.pulse)
	return s.out.Set(false)
}
