package mqtt

import (
	"io"
	"log/slog"
	"testing"

	"github.com/kimifish/soundmaster/internal/bus"
	"github.com/kimifish/soundmaster/internal/inputsel"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSink struct {
	events []bus.Event
}

func (s *fakeSink) Push(ev bus.Event) { s.events = append(s.events, ev) }

func newTestBridge() (*Bridge, *fakeSink) {
	sink := &fakeSink{}
	b := NewBridge(nil, Topics{Base: "kimiHome/audio/soundmaster"}, sink, testLogger())
	return b, sink
}

// TestOnVolume tests integer parsing and clamping of the volume command.
func TestOnVolume(t *testing.T) {
	b, sink := newTestBridge()

	cases := []struct {
		payload string
		want    int
	}{
		{"42", 42},
		{" 7\n", 7},
		{"500", 79},
		{"-3", 0},
	}
	for _, c := range cases {
		sink.events = nil
		if err := b.onVolume("", []byte(c.payload)); err != nil {
			t.Fatalf("onVolume(%q): %v", c.payload, err)
		}
		if len(sink.events) != 1 {
			t.Fatalf("payload %q: expected one event, got %d", c.payload, len(sink.events))
		}
		req, ok := sink.events[0].(bus.VolumeRequest)
		if !ok || req.Level != c.want {
			t.Errorf("payload %q: expected VolumeRequest{%d}, got %#v", c.payload, c.want, sink.events[0])
		}
	}
}

// TestOnVolume_Malformed tests that junk payloads are dropped, not erred.
func TestOnVolume_Malformed(t *testing.T) {
	b, sink := newTestBridge()

	for _, payload := range []string{"", "loud", "4.5", "{}"} {
		if err := b.onVolume("", []byte(payload)); err != nil {
			t.Errorf("payload %q: handler must swallow the error, got %v", payload, err)
		}
	}
	if len(sink.events) != 0 {
		t.Errorf("malformed payloads produced events: %#v", sink.events)
	}
}

// TestOnChannels tests JSON array decoding with elementwise clamping.
func TestOnChannels(t *testing.T) {
	b, sink := newTestBridge()

	if err := b.onChannels("", []byte(`[10, 200, -1]`)); err != nil {
		t.Fatalf("onChannels: %v", err)
	}
	if len(sink.events) != 1 {
		t.Fatalf("expected one event, got %d", len(sink.events))
	}
	req := sink.events[0].(bus.ChannelVolumesRequest)
	want := []int{10, 79, 0}
	for i, w := range want {
		if req.Levels[i] != w {
			t.Errorf("level %d: expected %d, got %d", i, w, req.Levels[i])
		}
	}
}

// TestOnChannels_NonArrayIgnored tests that anything but an integer array
// is dropped.
func TestOnChannels_NonArrayIgnored(t *testing.T) {
	b, sink := newTestBridge()

	for _, payload := range []string{`{"ch":1}`, `"50"`, `[1, "two"]`, `not json`} {
		if err := b.onChannels("", []byte(payload)); err != nil {
			t.Errorf("payload %q: handler must swallow the error, got %v", payload, err)
		}
	}
	if len(sink.events) != 0 {
		t.Errorf("non-array payloads produced events: %#v", sink.events)
	}
}

// TestOnMute tests boolean-like string decoding; only "true" mutes.
func TestOnMute(t *testing.T) {
	b, sink := newTestBridge()

	cases := []struct {
		payload string
		want    bool
	}{
		{"true", true},
		{"TRUE", true},
		{" True\n", true},
		{"false", false},
		{"no", false},
		{"1", false},
	}
	for _, c := range cases {
		sink.events = nil
		if err := b.onMute("", []byte(c.payload)); err != nil {
			t.Fatalf("onMute(%q): %v", c.payload, err)
		}
		req := sink.events[0].(bus.MuteRequest)
		if req.On != c.want {
			t.Errorf("payload %q: expected On=%v", c.payload, c.want)
		}
	}
}

// TestOnActiveInput tests label validation on the input command.
func TestOnActiveInput(t *testing.T) {
	b, sink := newTestBridge()

	if err := b.onActiveInput("", []byte("AUX")); err != nil {
		t.Fatalf("onActiveInput: %v", err)
	}
	req := sink.events[0].(bus.SourceRequest)
	if req.Target != inputsel.SourceAUX {
		t.Errorf("expected AUX, got %s", req.Target)
	}

	sink.events = nil
	if err := b.onActiveInput("", []byte("Tape")); err != nil {
		t.Errorf("unknown input must be swallowed, got %v", err)
	}
	if len(sink.events) != 0 {
		t.Errorf("unknown input produced events: %#v", sink.events)
	}
}

// TestTopics tests the topic tree layout.
func TestTopics(t *testing.T) {
	topics := Topics{Base: "kimiHome/audio/soundmaster"}

	cases := map[string]string{
		topics.Volume():         "kimiHome/audio/soundmaster/Volume",
		topics.VolumeSet():      "kimiHome/audio/soundmaster/Volume/set",
		topics.Channels():       "kimiHome/audio/soundmaster/Volume/channels",
		topics.ChannelsSet():    "kimiHome/audio/soundmaster/Volume/channels/set",
		topics.Mute():           "kimiHome/audio/soundmaster/Mute",
		topics.MuteSet():        "kimiHome/audio/soundmaster/Mute/set",
		topics.ActiveInput():    "kimiHome/audio/soundmaster/Active_Input",
		topics.ActiveInputSet(): "kimiHome/audio/soundmaster/Active_Input/set",
		topics.AudioStatus():    "kimiHome/audio/soundmaster/Audio_Status",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}
