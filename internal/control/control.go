// Package control owns the business state of the audio controller and
// reacts to every event on the bus: hardware input, MQTT commands and
// lifecycle events. All handlers run on the single goroutine driving
// Loop.Run, so the state needs no locking beyond the snapshot guard.
package control

import (
	"log/slog"
	"sync"

	"github.com/kimifish/soundmaster/internal/bus"
	"github.com/kimifish/soundmaster/internal/inputsel"
	"github.com/kimifish/soundmaster/internal/pt2258"
)

// Attenuator is the volume hardware the controller mirrors its state into.
// Satisfied by *pt2258.Device.
type Attenuator interface {
	SetMasterVolume(v int) error
	SetChannelVolume(channel, v int) error
	SetMute(on bool) error
}

// Screen shows transient state on the front panel. Satisfied by
// *display.Display. May be nil when the panel is disabled.
type Screen interface {
	ShowVolume(volume int)
	ShowInput(name string)
	ShowMute(muted bool)
}

// SourceSwitcher drives the physical input selector towards a target.
// Satisfied by *inputsel.Switcher.
type SourceSwitcher interface {
	RequestSource(target inputsel.Source)
}

// SaveRequester debounces persistence. Satisfied by *state.Saver.
type SaveRequester interface {
	RequestSave()
}

// Snapshot is the externally visible controller state.
type Snapshot struct {
	MasterVolume   int             `json:"master_volume"`
	ChannelVolumes []int           `json:"channel_volumes"`
	MuteState      bool            `json:"mute_state"`
	ActiveInput    inputsel.Source `json:"active_input"`
	AudioStatus    string          `json:"audio_status"`
}

// Controller holds the intended audio state and keeps the attenuator,
// display, selector, broker and state file in sync with it.
//
// Hardware write failures are logged but do not roll back the in-memory
// state: the intent stands and is reapplied by the next change or restart.
type Controller struct {
	logger    *slog.Logger
	att       Attenuator
	screen    Screen
	switcher  SourceSwitcher
	saver     SaveRequester
	publisher Publisher

	snapMu sync.Mutex
	master int
	levels []int
	mute   bool
	input  inputsel.Source
	audio  string
}

// New creates a controller seeded with the given settings. screen and
// switcher may be nil when the corresponding hardware is absent.
func New(att Attenuator, screen Screen, switcher SourceSwitcher, saver SaveRequester,
	publisher Publisher, seed Snapshot, logger *slog.Logger) *Controller {
	levels := make([]int, pt2258.Channels)
	copy(levels, seed.ChannelVolumes)
	return &Controller{
		logger:    logger,
		att:       att,
		screen:    screen,
		switcher:  switcher,
		saver:     saver,
		publisher: publisher,
		master:    seed.MasterVolume,
		levels:    levels,
		mute:      seed.MuteState,
		input:     seed.ActiveInput,
	}
}

// Register subscribes every handler on the dispatcher.
func (c *Controller) Register(d *bus.Dispatcher) {
	d.Subscribe(bus.KindRotation, c.handle)
	d.Subscribe(bus.KindShortPress, c.handle)
	d.Subscribe(bus.KindVolumeRequest, c.handle)
	d.Subscribe(bus.KindChannelVolumesRequest, c.handle)
	d.Subscribe(bus.KindMuteRequest, c.handle)
	d.Subscribe(bus.KindSourceRequest, c.handle)
	d.Subscribe(bus.KindSourceSwitched, c.handle)
	d.Subscribe(bus.KindAudioStatusChanged, c.handle)
	d.Subscribe(bus.KindStateLoaded, c.handle)
}

// Snapshot returns a copy of the current state. Safe from any goroutine.
func (c *Controller) Snapshot() Snapshot {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	levels := make([]int, len(c.levels))
	copy(levels, c.levels)
	return Snapshot{
		MasterVolume:   c.master,
		ChannelVolumes: levels,
		MuteState:      c.mute,
		ActiveInput:    c.input,
		AudioStatus:    c.audio,
	}
}

func (c *Controller) handle(ev bus.Event) {
	switch e := ev.(type) {
	case bus.Rotation:
		c.adjustVolume(e.Steps)
	case bus.ShortPress:
		c.toggleMute()
	case bus.VolumeRequest:
		c.setVolume(e.Level)
	case bus.ChannelVolumesRequest:
		c.setChannelVolumes(e.Levels)
	case bus.MuteRequest:
		c.setMute(e.On)
	case bus.SourceRequest:
		c.requestSource(e.Target)
	case bus.SourceSwitched:
		c.sourceSwitched(e.New)
	case bus.AudioStatusChanged:
		c.audioStatusChanged(e.State)
	case bus.StateLoaded:
		c.applyLoadedState()
	}
}

func (c *Controller) adjustVolume(steps int) {
	c.snapMu.Lock()
	c.master = clamp(c.master + steps)
	volume := c.master
	c.snapMu.Unlock()

	c.applyMasterVolume()
	c.showVolume()
	c.publisher.PublishVolume(volume)
	c.saver.RequestSave()
	c.logger.Info("master volume adjusted via encoder", "volume", volume)
}

func (c *Controller) setVolume(level int) {
	c.snapMu.Lock()
	c.master = clamp(level)
	volume := c.master
	c.snapMu.Unlock()

	c.applyMasterVolume()
	c.showVolume()
	c.publisher.PublishVolume(volume)
	c.saver.RequestSave()
	c.logger.Info("master volume set via mqtt", "volume", volume)
}

func (c *Controller) toggleMute() {
	c.snapMu.Lock()
	c.mute = !c.mute
	muted := c.mute
	c.snapMu.Unlock()

	c.applyMute()
	c.showMute()
	c.publisher.PublishMute(muted)
	c.saver.RequestSave()
	c.logger.Info("mute toggled via encoder", "muted", muted)
}

func (c *Controller) setMute(on bool) {
	c.snapMu.Lock()
	c.mute = on
	c.snapMu.Unlock()

	c.applyMute()
	c.showMute()
	c.publisher.PublishMute(on)
	c.saver.RequestSave()
	c.logger.Info("mute set via mqtt", "muted", on)
}

func (c *Controller) setChannelVolumes(levels []int) {
	c.snapMu.Lock()
	for i := 0; i < len(c.levels) && i < len(levels); i++ {
		c.levels[i] = clamp(levels[i])
	}
	applied := make([]int, len(c.levels))
	copy(applied, c.levels)
	c.snapMu.Unlock()

	c.applyChannelVolumes(applied)
	c.publisher.PublishChannels(applied)
	c.saver.RequestSave()
	c.logger.Info("channel volumes set via mqtt", "levels", applied)
}

// requestSource starts the selector pulsing on its own goroutine: a full
// convergence attempt takes seconds and must not stall the event loop.
func (c *Controller) requestSource(target inputsel.Source) {
	if c.switcher == nil {
		return
	}
	go c.switcher.RequestSource(target)
}

func (c *Controller) sourceSwitched(source inputsel.Source) {
	c.snapMu.Lock()
	c.input = source
	c.snapMu.Unlock()

	c.showInput()
	c.publisher.PublishActiveInput(source)
	c.saver.RequestSave()
	c.logger.Info("active input switched", "input", string(source))
}

func (c *Controller) audioStatusChanged(status string) {
	c.snapMu.Lock()
	c.audio = status
	c.snapMu.Unlock()

	c.publisher.PublishAudioStatus(status)
	c.logger.Info("audio output status", "status", status)
}

// applyLoadedState pushes the persisted settings into every output once
// at startup.
func (c *Controller) applyLoadedState() {
	snap := c.Snapshot()
	c.logger.Info("applying loaded state")

	c.requestSource(snap.ActiveInput)
	c.applyChannelVolumes(snap.ChannelVolumes)
	c.applyMasterVolume()
	c.applyMute()
	c.showInput()

	c.publisher.PublishChannels(snap.ChannelVolumes)
	c.publisher.PublishVolume(snap.MasterVolume)
	c.publisher.PublishMute(snap.MuteState)
	c.publisher.PublishActiveInput(snap.ActiveInput)
}

func (c *Controller) applyMasterVolume() {
	c.snapMu.Lock()
	volume := c.master
	c.snapMu.Unlock()
	if err := c.att.SetMasterVolume(volume); err != nil {
		c.logger.Error("attenuator master volume write failed", "error", err)
	}
}

// applyMute mirrors the mute flag into the IC. Unmuting restores the
// master volume, matching the IC losing its attenuation while muted.
func (c *Controller) applyMute() {
	c.snapMu.Lock()
	muted := c.mute
	c.snapMu.Unlock()
	if err := c.att.SetMute(muted); err != nil {
		c.logger.Error("attenuator mute write failed", "error", err)
	}
	if !muted {
		c.applyMasterVolume()
	}
}

func (c *Controller) applyChannelVolumes(levels []int) {
	for channel, v := range levels {
		if err := c.att.SetChannelVolume(channel, v); err != nil {
			c.logger.Error("attenuator channel volume write failed",
				"channel", channel, "error", err)
		}
	}
}

func (c *Controller) showVolume() {
	if c.screen == nil {
		return
	}
	c.snapMu.Lock()
	volume := c.master
	c.snapMu.Unlock()
	c.screen.ShowVolume(volume)
}

func (c *Controller) showMute() {
	if c.screen == nil {
		return
	}
	c.snapMu.Lock()
	muted := c.mute
	c.snapMu.Unlock()
	c.screen.ShowMute(muted)
}

func (c *Controller) showInput() {
	if c.screen == nil {
		return
	}
	c.snapMu.Lock()
	input := c.input
	c.snapMu.Unlock()
	c.screen.ShowInput(string(input))
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
