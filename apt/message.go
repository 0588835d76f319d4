package apt

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// HeaderSize is the fixed size of the APT message header.
const HeaderSize = 6

// MaxPayloadSize is the largest payload the 16-bit length field can describe.
const MaxPayloadSize = 0xFFFF

// payloadFlag is bit 7 of the destination byte; set when a payload follows.
const payloadFlag = 0x80

const addressMask = 0x7F

// Header is the raw 6-byte APT header.
//
// Layout (little-endian): [ID(2)][Param1|Len lo][Param2|Len hi][Dest][Source].
type Header [HeaderSize]byte

// ID returns the message ID from bytes 0-1.
func (h *Header) ID() MessageID {
	return MessageID(binary.LittleEndian.Uint16(h[0:2]))
}

// HasPayload reports whether bit 7 of the destination byte is set.
func (h *Header) HasPayload() bool {
	return h[4]&payloadFlag != 0
}

// PayloadLen returns the payload length from bytes 2-3.
// Only meaningful when HasPayload is true.
func (h *Header) PayloadLen() int {
	return int(binary.LittleEndian.Uint16(h[2:4]))
}

// Params returns the header parameters from bytes 2 and 3.
// Only meaningful when HasPayload is false.
func (h *Header) Params() (byte, byte) {
	return h[2], h[3]
}

// Dest returns the destination address with the payload flag masked off.
func (h *Header) Dest() Address {
	return Address(h[4] & addressMask)
}

// Source returns the source address.
func (h *Header) Source() Address {
	return Address(h[5])
}

func (h *Header) set(id MessageID, b2, b3 byte, dest, src Address, payload bool) {
	binary.LittleEndian.PutUint16(h[0:2], uint16(id))
	h[2] = b2
	h[3] = b3
	h[4] = byte(dest) & addressMask
	if payload {
		h[4] |= payloadFlag
	}
	h[5] = byte(src)
}

// Payload holds the decoded values of a payload, one per non-Pad schema field.
//
// Values use the Go type of their field: uint8, int8, uint16, int16, uint32,
// int32, string for Chars and []byte for Bytes.
type Payload []any

// Message is a single APT message.
//
// A message carries either the two header parameters or a payload, never
// both. A nil Payload selects the header-only form.
type Message struct {
	ID      MessageID
	Param1  byte
	Param2  byte
	Dest    Address
	Source  Address
	Payload Payload
}

// NewMessage creates a header-only message.
func NewMessage(id MessageID, param1, param2 byte, dest, src Address) *Message {
	return &Message{ID: id, Param1: param1, Param2: param2, Dest: dest, Source: src}
}

// NewPayloadMessage creates a message carrying the given payload values.
func NewPayloadMessage(id MessageID, dest, src Address, values ...any) *Message {
	if values == nil {
		values = []any{}
	}

	return &Message{ID: id, Dest: dest, Source: src, Payload: Payload(values)}
}

// HasPayload reports whether the message uses the payload form.
func (m *Message) HasPayload() bool {
	return m.Payload != nil
}

func (m *Message) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s dest=%s src=%s", m.ID, m.Dest, m.Source)
	if m.HasPayload() {
		fmt.Fprintf(&sb, " payload=%v", []any(m.Payload))
	} else {
		fmt.Fprintf(&sb, " p1=0x%02X p2=0x%02X", m.Param1, m.Param2)
	}

	return sb.String()
}

// Field returns payload value i as type T.
func Field[T any](m *Message, i int) (T, error) {
	var zero T
	if i < 0 || i >= len(m.Payload) {
		return zero, fmt.Errorf("%w: %s has no payload field %d", ErrSchema, m.ID, i)
	}
	v, ok := m.Payload[i].(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s payload field %d is %T, want %T", ErrSchema, m.ID, i, m.Payload[i], zero)
	}

	return v, nil
}
