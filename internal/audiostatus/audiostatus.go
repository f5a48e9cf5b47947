// Package audiostatus watches the ALSA PCM substream status file and
// reports playback on/off transitions.
package audiostatus

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// States reported to the change callback.
const (
	StateOn  = "on"
	StateOff = "off"
)

// DefaultInterval is the polling period.
const DefaultInterval = time.Second

// ChangeFunc receives the new state on every transition.
type ChangeFunc func(state string)

// Poller reads a /proc/asound/cardN/pcmNp/subN/status file on a fixed
// cadence. The kernel reports "closed\n" for an idle substream; anything
// else counts as active output.
type Poller struct {
	path     string
	interval time.Duration
	onChange ChangeFunc
	logger   *slog.Logger

	current string
}

// New creates a poller. interval <= 0 selects DefaultInterval.
func New(path string, interval time.Duration, onChange ChangeFunc, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		path:     path,
		interval: interval,
		onChange: onChange,
		logger:   logger,
	}
}

// Run polls until ctx is cancelled. An empty path disables the feature
// with a warning, mirroring an unconfigured soundcard.
func (p *Poller) Run(ctx context.Context) error {
	if p.path == "" {
		p.logger.Warn("no soundcard status file configured, audio status monitoring disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	p.logger.Debug("audio status monitoring started", "path", p.path)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	text, err := os.ReadFile(p.path)
	if err != nil {
		// Transient read failures (card resets) are expected; the empty
		// content decodes as "on" just like the reference behavior.
		p.logger.Debug("soundcard status read failed", "error", err)
	}

	next := StateOn
	if string(text) == "closed\n" {
		next = StateOff
	}
	if next != p.current {
		p.current = next
		if p.onChange != nil {
			p.onChange(next)
		}
	}
}
