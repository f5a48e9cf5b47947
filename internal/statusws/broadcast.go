package statusws

import (
	"github.com/kimifish/soundmaster/internal/inputsel"
)

// The hub doubles as a state publisher: each state change becomes one
// typed frame broadcast to every client.

type volumeData struct {
	Volume int `json:"volume"`
}

type channelsData struct {
	Channels []int `json:"channels"`
}

type muteData struct {
	Muted bool `json:"muted"`
}

type inputData struct {
	Input string `json:"input"`
}

type audioStatusData struct {
	Status string `json:"status"`
}

// PublishVolume broadcasts a volume_changed frame.
func (h *Hub) PublishVolume(volume int) {
	h.publishEvent("volume_changed", volumeData{Volume: volume})
}

// PublishChannels broadcasts a channels_changed frame.
func (h *Hub) PublishChannels(levels []int) {
	h.publishEvent("channels_changed", channelsData{Channels: levels})
}

// PublishMute broadcasts a mute_changed frame.
func (h *Hub) PublishMute(muted bool) {
	h.publishEvent("mute_changed", muteData{Muted: muted})
}

// PublishActiveInput broadcasts an input_changed frame.
func (h *Hub) PublishActiveInput(source inputsel.Source) {
	h.publishEvent("input_changed", inputData{Input: string(source)})
}

// PublishAudioStatus broadcasts an audio_status frame.
func (h *Hub) PublishAudioStatus(state string) {
	h.publishEvent("audio_status", audioStatusData{Status: state})
}

func (h *Hub) publishEvent(typ string, data any) {
	msg, err := marshalEnvelope(typ, data)
	if err != nil {
		h.logger.Warn("ws event marshal failed", "type", typ, "error", err)
		return
	}
	h.Broadcast(msg)
}
