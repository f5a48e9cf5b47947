package mqtt

// Topics builds the soundmaster topic tree under a configurable base,
// typically "kimiHome/audio/soundmaster".
//
// State topics carry the controller's current values; the matching /set
// topics accept commands from other home-automation nodes.
type Topics struct {
	Base string
}

// Volume is the master volume state topic.
func (t Topics) Volume() string { return t.Base + "/Volume" }

// VolumeSet accepts a master volume command (integer 0..79).
func (t Topics) VolumeSet() string { return t.Base + "/Volume/set" }

// Channels is the per-channel volumes state topic (JSON array).
func (t Topics) Channels() string { return t.Base + "/Volume/channels" }

// ChannelsSet accepts a per-channel volumes command (JSON array).
func (t Topics) ChannelsSet() string { return t.Base + "/Volume/channels/set" }

// Mute is the mute state topic ("true"/"false").
func (t Topics) Mute() string { return t.Base + "/Mute" }

// MuteSet accepts a mute command (boolean-like string).
func (t Topics) MuteSet() string { return t.Base + "/Mute/set" }

// ActiveInput is the active input state topic.
func (t Topics) ActiveInput() string { return t.Base + "/Active_Input" }

// ActiveInputSet accepts an input switch command (input label).
func (t Topics) ActiveInputSet() string { return t.Base + "/Active_Input/set" }

// AudioStatus is the playback on/off state topic.
func (t Topics) AudioStatus() string { return t.Base + "/Audio_Status" }
