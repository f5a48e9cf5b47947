//go:build linux

// Package i2c provides write-only access to a Linux I2C adapter through the
// /dev/i2c-N character device. Nothing in this system reads from the bus,
// so only the write half of the ioctl interface is implemented.
package i2c

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// I2C_SLAVE ioctl from <linux/i2c-dev.h>: selects the 7-bit peer address
// for subsequent read/write calls on the fd.
const i2cSlave = 0x0703

// Bus is an open I2C adapter. Safe for concurrent use; the address select
// and the following write are performed under one lock so transactions
// from different devices cannot interleave.
type Bus struct {
	mu   sync.Mutex
	f    *os.File
	addr uint8 // currently selected 7-bit address, 0xFF if none
}

// Open opens /dev/i2c-<busNumber>.
func Open(busNumber int) (*Bus, error) {
	path := fmt.Sprintf("/dev/i2c-%d", busNumber)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Bus{f: f, addr: 0xFF}, nil
}

// Close releases the adapter.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.f.Close()
}

// WriteByte writes a single byte to the device at the 7-bit address addr
// as one atomic bus transaction.
func (b *Bus) WriteByte(addr uint8, data byte) error {
	return b.Write(addr, []byte{data})
}

// Write writes data to the device at the 7-bit address addr.
func (b *Bus) Write(addr uint8, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.selectAddr(addr); err != nil {
		return err
	}
	if _, err := b.f.Write(data); err != nil {
		return fmt.Errorf("i2c write to %#02x: %w", addr, err)
	}
	return nil
}

// selectAddr points the fd at a peer address. Caller holds b.mu.
func (b *Bus) selectAddr(addr uint8) error {
	if addr == b.addr {
		return nil
	}
	if err := unix.IoctlSetInt(int(b.f.Fd()), i2cSlave, int(addr)); err != nil {
		return fmt.Errorf("i2c select address %#02x: %w", addr, err)
	}
	b.addr = addr
	return nil
}
