package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kimifish/soundmaster/internal/bus"
	"github.com/kimifish/soundmaster/internal/inputsel"
	"github.com/kimifish/soundmaster/internal/pt2258"
)

// Sink receives the events decoded from inbound command topics.
type Sink interface {
	Push(event bus.Event)
}

// Bridge converts between the MQTT topic tree and internal events:
// inbound /set commands become events pushed into the Sink, and state
// changes are published back out through the Publish* methods.
type Bridge struct {
	client *Client
	topics Topics
	sink   Sink
	logger *slog.Logger
}

// NewBridge creates a bridge over an already-connected client.
func NewBridge(client *Client, topics Topics, sink Sink, logger *slog.Logger) *Bridge {
	return &Bridge{client: client, topics: topics, sink: sink, logger: logger}
}

// Start subscribes to all command topics. Malformed payloads are logged
// and dropped; they never stop the subscription.
func (b *Bridge) Start() error {
	subs := map[string]MessageHandler{
		b.topics.VolumeSet():      b.onVolume,
		b.topics.ChannelsSet():    b.onChannels,
		b.topics.MuteSet():        b.onMute,
		b.topics.ActiveInputSet(): b.onActiveInput,
	}
	for topic, handler := range subs {
		if err := b.client.Subscribe(topic, handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

func (b *Bridge) onVolume(_ string, payload []byte) error {
	volume, err := strconv.Atoi(strings.TrimSpace(string(payload)))
	if err != nil {
		b.logger.Error("volume command is not an integer", "payload", string(payload))
		return nil
	}
	b.sink.Push(bus.VolumeRequest{Level: clampVolume(volume)})
	return nil
}

func (b *Bridge) onChannels(_ string, payload []byte) error {
	var levels []int
	if err := json.Unmarshal(payload, &levels); err != nil {
		// Anything but a JSON array of integers is dropped.
		b.logger.Error("channel volumes command is not a JSON integer array",
			"payload", string(payload))
		return nil
	}
	for i, v := range levels {
		levels[i] = clampVolume(v)
	}
	b.sink.Push(bus.ChannelVolumesRequest{Levels: levels})
	return nil
}

func (b *Bridge) onMute(_ string, payload []byte) error {
	on := strings.ToLower(strings.TrimSpace(string(payload))) == "true"
	b.sink.Push(bus.MuteRequest{On: on})
	return nil
}

func (b *Bridge) onActiveInput(_ string, payload []byte) error {
	target := inputsel.Source(strings.TrimSpace(string(payload)))
	if !inputsel.Valid(target) {
		b.logger.Error("unknown input requested", "payload", string(payload))
		return nil
	}
	b.sink.Push(bus.SourceRequest{Target: target})
	return nil
}

// PublishVolume republishes the master volume state.
func (b *Bridge) PublishVolume(volume int) {
	b.publish(b.topics.Volume(), strconv.Itoa(volume))
}

// PublishChannels republishes the per-channel volumes as a JSON array.
func (b *Bridge) PublishChannels(levels []int) {
	data, err := json.Marshal(levels)
	if err != nil {
		b.logger.Error("encode channel volumes", "error", err)
		return
	}
	b.publish(b.topics.Channels(), string(data))
}

// PublishMute republishes the mute state as "true"/"false".
func (b *Bridge) PublishMute(muted bool) {
	b.publish(b.topics.Mute(), strconv.FormatBool(muted))
}

// PublishActiveInput republishes the active input label.
func (b *Bridge) PublishActiveInput(source inputsel.Source) {
	b.publish(b.topics.ActiveInput(), string(source))
}

// PublishAudioStatus republishes the playback on/off state.
func (b *Bridge) PublishAudioStatus(state string) {
	b.publish(b.topics.AudioStatus(), state)
}

func (b *Bridge) publish(topic, payload string) {
	if err := b.client.PublishString(topic, payload); err != nil {
		b.logger.Error("mqtt publish failed", "topic", topic, "error", err)
	}
}

func clampVolume(v int) int {
	if v < pt2258.VolumeMin {
		return pt2258.VolumeMin
	}
	if v > pt2258.VolumeMax {
		return pt2258.VolumeMax
	}
	return v
}
