package control

import "github.com/kimifish/soundmaster/internal/inputsel"

// Publisher receives every externally visible state change. Implemented by
// the MQTT bridge and the websocket status hub.
type Publisher interface {
	PublishVolume(volume int)
	PublishChannels(levels []int)
	PublishMute(muted bool)
	PublishActiveInput(source inputsel.Source)
	PublishAudioStatus(state string)
}

// MultiPublisher fans one state change out to several publishers.
type MultiPublisher []Publisher

func (m MultiPublisher) PublishVolume(volume int) {
	for _, p := range m {
		p.PublishVolume(volume)
	}
}

func (m MultiPublisher) PublishChannels(levels []int) {
	for _, p := range m {
		p.PublishChannels(levels)
	}
}

func (m MultiPublisher) PublishMute(muted bool) {
	for _, p := range m {
		p.PublishMute(muted)
	}
}

func (m MultiPublisher) PublishActiveInput(source inputsel.Source) {
	for _, p := range m {
		p.PublishActiveInput(source)
	}
}

func (m MultiPublisher) PublishAudioStatus(state string) {
	for _, p := range m {
		p.PublishAudioStatus(state)
	}
}
