package pt2258

import "errors"

// Driver errors. Use errors.Is to classify.
var (
	// ErrInvalidAddress is returned by New for an address that is not one
	// of the four physical strap values.
	ErrInvalidAddress = errors.New("pt2258: invalid device address")

	// ErrDeviceInit is returned by New when the IC does not acknowledge
	// the clear-register command after the power-on settle wait.
	ErrDeviceInit = errors.New("pt2258: device initialization failed")

	// ErrCommunication wraps I2C write failures during an operation.
	ErrCommunication = errors.New("pt2258: communication error")

	// ErrValidation is returned for out-of-range volume or channel values,
	// before any bus traffic happens.
	ErrValidation = errors.New("pt2258: validation error")
)
