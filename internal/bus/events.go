package bus

import (
	"time"

	"github.com/kimifish/soundmaster/internal/inputsel"
)

// Kind discriminates the closed set of event types carried by the bus.
type Kind int

const (
	KindRotation Kind = iota
	KindShortPress
	KindLongPress
	KindSourceSwitched
	KindSourceRequest
	KindMuteRequest
	KindVolumeRequest
	KindChannelVolumesRequest
	KindAudioStatusChanged
	KindStateLoaded
	KindStateSaved
	KindAttenuatorReady
)

// String returns the snake_case name of the kind, for logs.
func (k Kind) String() string {
	switch k {
	case KindRotation:
		return "rotation"
	case KindShortPress:
		return "short_press"
	case KindLongPress:
		return "long_press"
	case KindSourceSwitched:
		return "source_switched"
	case KindSourceRequest:
		return "source_request"
	case KindMuteRequest:
		return "mute_request"
	case KindVolumeRequest:
		return "volume_request"
	case KindChannelVolumesRequest:
		return "channel_volumes_request"
	case KindAudioStatusChanged:
		return "audio_status_changed"
	case KindStateLoaded:
		return "state_loaded"
	case KindStateSaved:
		return "state_saved"
	case KindAttenuatorReady:
		return "attenuator_ready"
	default:
		return "unknown"
	}
}

// Event is the closed union of things that can happen in the system.
// Events are immutable values: producers create them, subscribers only read.
type Event interface {
	Kind() Kind
}

// Rotation is one resolved encoder movement. Steps is signed and already
// carries any acceleration multiplier applied by the producer.
type Rotation struct {
	Steps int
	At    time.Time
}

func (Rotation) Kind() Kind { return KindRotation }

// ShortPress is an encoder button press released within the short window.
type ShortPress struct {
	At time.Time
}

func (ShortPress) Kind() Kind { return KindShortPress }

// LongPress is an encoder button press released within the long window.
type LongPress struct {
	At time.Time
}

func (LongPress) Kind() Kind { return KindLongPress }

// SourceSwitched reports that the selector sense lines resolved to a new input.
type SourceSwitched struct {
	Old inputsel.Source
	New inputsel.Source
}

func (SourceSwitched) Kind() Kind { return KindSourceSwitched }

// SourceRequest asks the controller to drive the selector to a target input.
type SourceRequest struct {
	Target inputsel.Source
}

func (SourceRequest) Kind() Kind { return KindSourceRequest }

// MuteRequest asks for an explicit mute state.
type MuteRequest struct {
	On bool
}

func (MuteRequest) Kind() Kind { return KindMuteRequest }

// VolumeRequest asks for an absolute master volume. The producer clamps
// to the attenuator range before publishing.
type VolumeRequest struct {
	Level int
}

func (VolumeRequest) Kind() Kind { return KindVolumeRequest }

// ChannelVolumesRequest asks for absolute per-channel volumes.
type ChannelVolumesRequest struct {
	Levels []int
}

func (ChannelVolumesRequest) Kind() Kind { return KindChannelVolumesRequest }

// AudioStatusChanged reports the soundcard playback state, "on" or "off".
type AudioStatusChanged struct {
	State string
}

func (AudioStatusChanged) Kind() Kind { return KindAudioStatusChanged }

// StateLoaded fires once after persisted settings have been read at startup.
type StateLoaded struct{}

func (StateLoaded) Kind() Kind { return KindStateLoaded }

// StateSaved fires after each successful settings write.
type StateSaved struct{}

func (StateSaved) Kind() Kind { return KindStateSaved }

// AttenuatorReady fires once after the PT2258 initialized successfully.
type AttenuatorReady struct{}

func (AttenuatorReady) Kind() Kind { return KindAttenuatorReady }
