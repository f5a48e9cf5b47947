// Package pt2258 drives the Princeton Technology PT2258 6-channel
// electronic volume controller over I2C.
//
// The IC is write-only for our purposes: every operation is a single-byte
// command, and channel/master attenuation is programmed as a pair of
// commands (a 10 dB step followed by a 1 dB step). Register opcodes follow
// the PT2258 datasheet as reverse engineered in the zerovijay/PT2258
// driver lineage.
package pt2258

import (
	"fmt"
	"time"
)

// Volume range accepted by every volume operation. The scale is inverted
// attenuation: 0 is -79 dB, 79 is 0 dB (full volume).
const (
	VolumeMin = 0
	VolumeMax = 79
)

// Channels is the number of independent attenuator channels.
const Channels = 6

// Command opcodes.
const (
	regClear = 0xC0

	regMute       = 0xF8
	regMaster10dB = 0xD0
	regMaster1dB  = 0xE0
)

// Per-channel (10 dB, 1 dB) opcode pairs. The channel-to-opcode mapping is
// not monotonic; it matches the IC pinout.
var channelRegs = [Channels][2]byte{
	{0x80, 0x90}, // channel 1
	{0x40, 0x50}, // channel 2
	{0x00, 0x10}, // channel 3
	{0x20, 0x30}, // channel 4
	{0x60, 0x70}, // channel 5
	{0xA0, 0xB0}, // channel 6
}

// powerOnSettle is the minimum wait after power-on before the IC accepts
// commands (datasheet: >=200 ms; the reference driver uses 300 ms).
const powerOnSettle = 300 * time.Millisecond

// Bus is the single-byte I2C write primitive the driver needs.
// addr is the 7-bit device address.
type Bus interface {
	WriteByte(addr uint8, data byte) error
}

// Device is a PT2258 attenuator on an I2C bus.
//
// The device holds no volume state: the business layer owns the intended
// attenuation and mirrors it into the IC, which cannot be read back.
type Device struct {
	bus  Bus
	addr uint8 // 7-bit

	// sleep is replaceable in tests to skip the power-on settle.
	sleep func(time.Duration)
}

// New validates the strap address, waits out the power-on settle time and
// clears the IC's registers. A failed clear write means the device did not
// acknowledge and construction fails with ErrDeviceInit.
//
// addr is the 8-bit configured address; only the four physical strap values
// 0x80, 0x84, 0x88 and 0x8C are legal. The IC itself answers on the 7-bit
// address, i.e. the configured value shifted right by one.
func New(bus Bus, addr uint8) (*Device, error) {
	return newDevice(bus, addr, time.Sleep)
}

func newDevice(bus Bus, addr uint8, sleep func(time.Duration)) (*Device, error) {
	if bus == nil {
		return nil, fmt.Errorf("%w: nil bus", ErrInvalidAddress)
	}
	switch addr {
	case 0x80, 0x84, 0x88, 0x8C:
	default:
		return nil, fmt.Errorf("%w: %#02x (must be 0x80, 0x84, 0x88 or 0x8C)", ErrInvalidAddress, addr)
	}

	d := &Device{
		bus:   bus,
		addr:  addr >> 1,
		sleep: sleep,
	}

	d.sleep(powerOnSettle)
	if err := d.write(regClear); err != nil {
		return nil, fmt.Errorf("%w: clear register not acknowledged: %w", ErrDeviceInit, err)
	}
	return d, nil
}

// Addr returns the 7-bit bus address the device answers on.
func (d *Device) Addr() uint8 { return d.addr }

// SetMasterVolume programs the master attenuator. v must be in
// [VolumeMin, VolumeMax]; out-of-range values are a contract violation and
// are rejected before any bus traffic.
func (d *Device) SetMasterVolume(v int) error {
	if err := checkVolume(v); err != nil {
		return err
	}
	hi, lo := Decode(v)
	return d.writeVolume(regMaster10dB|hi, regMaster1dB|lo)
}

// SetChannelVolume programs one channel attenuator. channel is 0..5.
func (d *Device) SetChannelVolume(channel, v int) error {
	if channel < 0 || channel >= Channels {
		return fmt.Errorf("%w: channel %d out of range 0..%d", ErrValidation, channel, Channels-1)
	}
	if err := checkVolume(v); err != nil {
		return err
	}
	hi, lo := Decode(v)
	regs := channelRegs[channel]
	return d.writeVolume(regs[0]|hi, regs[1]|lo)
}

// SetMute enables or disables the mute function for all channels.
func (d *Device) SetMute(on bool) error {
	cmd := byte(regMute)
	if on {
		cmd |= 0x01
	}
	return d.write(cmd)
}

// Decode splits a volume into the (hi, lo) attenuation step selectors:
// 79-v = 10*hi + lo, with hi in 0..7 and lo in 0..9.
func Decode(v int) (hi, lo byte) {
	att := VolumeMax - v
	return byte(att / 10), byte(att % 10)
}

// writeVolume issues the two-phase attenuation commit: the 1 dB step is
// only attempted once the 10 dB step was acknowledged, so a bus failure
// never leaves the IC with a half-applied pair from this call alone.
func (d *Device) writeVolume(cmd10dB, cmd1dB byte) error {
	if err := d.write(cmd10dB); err != nil {
		return err
	}
	return d.write(cmd1dB)
}

// write sends one command byte as an atomic bus transaction.
func (d *Device) write(cmd byte) error {
	if err := d.bus.WriteByte(d.addr, cmd); err != nil {
		return fmt.Errorf("%w: command %#02x: %w", ErrCommunication, cmd, err)
	}
	return nil
}

func checkVolume(v int) error {
	if v < VolumeMin || v > VolumeMax {
		return fmt.Errorf("%w: volume %d out of range %d..%d", ErrValidation, v, VolumeMin, VolumeMax)
	}
	return nil
}
