package device

import "errors"

var (
	// ErrDeviceNotFound indicates no port, serial number or channel matched.
	ErrDeviceNotFound = errors.New("device: device not found")

	// ErrInconsistentResponse indicates a response for another channel or
	// with an unrecognised value.
	ErrInconsistentResponse = errors.New("device: inconsistent response")

	// ErrUnsupported indicates the channel lacks the requested capability.
	ErrUnsupported = errors.New("device: unsupported operation")

	// ErrInvalidChannel indicates a channel index outside the registry.
	ErrInvalidChannel = errors.New("device: invalid channel index")

	// ErrOutOfRange indicates a set-point outside the actuator's range.
	ErrOutOfRange = errors.New("device: value out of range")

	// ErrSettleTimeout indicates a move or zeroing did not finish in time.
	ErrSettleTimeout = errors.New("device: timed out waiting for channel to settle")
)
