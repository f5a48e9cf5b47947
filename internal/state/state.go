// Package state persists the controller settings as a single flat JSON
// record and debounces bursts of save requests into one delayed write.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kimifish/soundmaster/internal/inputsel"
	"github.com/kimifish/soundmaster/internal/pt2258"
)

// Settings is the only durable entity. It is written atomically as a whole
// record and read once at startup.
type Settings struct {
	MasterVolume   int             `json:"master_volume"`
	ChannelVolumes []int           `json:"channel_volumes"`
	MuteState      bool            `json:"mute_state"`
	ActiveInput    inputsel.Source `json:"active_input"`
}

// Defaults returns the settings used when no state file exists yet.
func Defaults() Settings {
	channels := make([]int, pt2258.Channels)
	for i := range channels {
		channels[i] = 50
	}
	return Settings{
		MasterVolume:   50,
		ChannelVolumes: channels,
		MuteState:      false,
		ActiveInput:    inputsel.DefaultSource,
	}
}

// Load reads settings from path. A missing or unreadable file yields the
// defaults along with the underlying error so the caller can log it; this
// is the normal first-boot path, not a failure.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Defaults(), err
	}

	s := Defaults()
	if err := json.Unmarshal(data, &s); err != nil {
		return Defaults(), fmt.Errorf("parse %s: %w", path, err)
	}
	s.normalize()
	return s, nil
}

// Save writes settings to path atomically: the record is written to a
// temporary file in the same directory and renamed into place, so a crash
// mid-write never truncates the previous state.
func Save(path string, s Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// normalize repairs a record that was edited by hand or written by an
// older version: clamps volumes and pads/trims the channel list.
func (s *Settings) normalize() {
	s.MasterVolume = clamp(s.MasterVolume)

	channels := make([]int, pt2258.Channels)
	for i := range channels {
		if i < len(s.ChannelVolumes) {
			channels[i] = clamp(s.ChannelVolumes[i])
		} else {
			channels[i] = 50
		}
	}
	s.ChannelVolumes = channels

	if !inputsel.Valid(s.ActiveInput) {
		s.ActiveInput = inputsel.DefaultSource
	}
}

func clamp(v int) int {
	if v < pt2258.VolumeMin {
		return pt2258.VolumeMin
	}
	if v > pt2258.VolumeMax {
		return pt2258.VolumeMax
	}
	return v
}
