package trace

import (
	"strings"
	"time"
)

// Event is a single captured frame. CBOR encoding uses integer keys.
type Event struct {
	// Timestamp when the frame was written or fully read.
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Port is the serial device path or stream name.
	Port string `cbor:"3,keyasint,omitempty"`

	// Direction of the frame.
	Direction Direction `cbor:"4,keyasint"`

	// MessageID is the 16-bit APT message ID.
	MessageID uint16 `cbor:"5,keyasint"`

	// Dest and Source are the 7-bit header addresses.
	Dest   uint8 `cbor:"6,keyasint"`
	Source uint8 `cbor:"7,keyasint"`

	// Frame is the raw header and payload bytes.
	Frame []byte `cbor:"8,keyasint,omitempty"`

	// Error holds the decode error for frames that could not be decoded.
	Error string `cbor:"9,keyasint,omitempty"`
}

// Direction indicates frame flow relative to the host.
type Direction uint8

const (
	// DirectionIn is a frame received from the controller.
	DirectionIn Direction = 0
	// DirectionOut is a frame sent to the controller.
	DirectionOut Direction = 1
)

// String returns "IN" or "OUT".
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// ParseDirection parses "in"/"rx" or "out"/"tx", case-insensitively.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(s) {
	case "in", "rx":
		return DirectionIn, true
	case "out", "tx":
		return DirectionOut, true
	default:
		return 0, false
	}
}
