package apt

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/arloliu/go-apt/internal/util"
)

// Marshal encodes msg into its wire form using the layouts in table.
//
// A header-only message encodes to exactly HeaderSize bytes. A payload
// message needs a layout for its ID and values matching it in count and type.
func Marshal(table *SchemaTable, msg *Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrInvalidMessage)
	}
	if !msg.Dest.Valid() || !msg.Source.Valid() {
		return nil, fmt.Errorf("%w: %s: address exceeds 7 bits (dest=%s src=%s)", ErrInvalidMessage, msg.ID, msg.Dest, msg.Source)
	}

	var hdr Header
	if !msg.HasPayload() {
		hdr.set(msg.ID, msg.Param1, msg.Param2, msg.Dest, msg.Source, false)
		return hdr[:], nil
	}

	if msg.Param1 != 0 || msg.Param2 != 0 {
		return nil, fmt.Errorf("%w: %s carries both params and a payload", ErrInvalidMessage, msg.ID)
	}

	schema, ok := table.Lookup(msg.ID)
	if !ok {
		return nil, fmt.Errorf("%w: no payload layout for %s", ErrSchema, msg.ID)
	}

	size := schema.Size()
	data := make([]byte, HeaderSize+size)
	if err := encodePayload(data[HeaderSize:], schema, msg.Payload); err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.ID, err)
	}
	hdr.set(msg.ID, byte(size), byte(size>>8), msg.Dest, msg.Source, true)
	copy(data, hdr[:])

	return data, nil
}

// Unmarshal decodes a complete frame: a header plus, for payload messages,
// exactly the number of payload bytes the header announces.
func Unmarshal(table *SchemaTable, frame []byte) (*Message, error) {
	if len(frame) < HeaderSize {
		return nil, fmt.Errorf("%w: %d of %d header bytes", ErrTruncated, len(frame), HeaderSize)
	}

	var hdr Header
	copy(hdr[:], frame)
	body := frame[HeaderSize:]

	if !hdr.HasPayload() {
		if len(body) != 0 {
			return nil, fmt.Errorf("%w: %d trailing bytes after header-only %s", ErrInvalidMessage, len(body), hdr.ID())
		}
		return decodeHeaderOnly(&hdr), nil
	}

	switch n := hdr.PayloadLen(); {
	case len(body) < n:
		return nil, fmt.Errorf("%w: %d of %d payload bytes for %s", ErrTruncated, len(body), n, hdr.ID())
	case len(body) > n:
		return nil, fmt.Errorf("%w: %d trailing bytes after %s payload", ErrInvalidMessage, len(body)-n, hdr.ID())
	}

	return decodePayloadMessage(table, &hdr, body)
}

func decodeHeaderOnly(hdr *Header) *Message {
	p1, p2 := hdr.Params()
	return &Message{ID: hdr.ID(), Param1: p1, Param2: p2, Dest: hdr.Dest(), Source: hdr.Source()}
}

func decodePayloadMessage(table *SchemaTable, hdr *Header, body []byte) (*Message, error) {
	id := hdr.ID()
	schema, ok := table.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: no payload layout for %s", ErrSchema, id)
	}

	payload, err := decodePayload(body, schema)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}

	return &Message{ID: id, Dest: hdr.Dest(), Source: hdr.Source(), Payload: payload}, nil
}

func encodePayload(dst []byte, schema Schema, payload Payload) error {
	if len(payload) != schema.NumValues() {
		return fmt.Errorf("%w: %d values for layout %s", ErrSchema, len(payload), schema)
	}

	off, vi := 0, 0
	for _, f := range schema {
		field := dst[off : off+f.Size()]
		off += f.Size()
		if !f.HasValue() {
			continue
		}
		if err := encodeField(field, f, payload[vi]); err != nil {
			return fmt.Errorf("field %d: %w", vi, err)
		}
		vi++
	}

	return nil
}

func encodeField(dst []byte, f FieldType, v any) error {
	switch f.Kind {
	case KindU8:
		n, err := intValue[uint8](v, 0, math.MaxUint8)
		if err != nil {
			return err
		}
		dst[0] = n
	case KindI8:
		n, err := intValue[int8](v, math.MinInt8, math.MaxInt8)
		if err != nil {
			return err
		}
		dst[0] = byte(n)
	case KindU16:
		n, err := intValue[uint16](v, 0, math.MaxUint16)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint16(dst, n)
	case KindI16:
		n, err := intValue[int16](v, math.MinInt16, math.MaxInt16)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint16(dst, uint16(n))
	case KindU32:
		n, err := intValue[uint32](v, 0, math.MaxUint32)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(dst, n)
	case KindI32:
		n, err := intValue[int32](v, math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(dst, uint32(n))
	case KindChars:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: %s needs string, got %T", ErrSchema, f, v)
		}
		if len(s) > f.Len {
			return fmt.Errorf("%w: %q longer than %s", ErrSchema, s, f)
		}
		copy(dst, s)
	case KindBytes:
		b, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("%w: %s needs []byte, got %T", ErrSchema, f, v)
		}
		if len(b) != f.Len {
			return fmt.Errorf("%w: %d bytes for %s", ErrSchema, len(b), f)
		}
		copy(dst, b)
	default:
		return fmt.Errorf("%w: cannot encode %s", ErrSchema, f)
	}

	return nil
}

type integer interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32
}

// intValue accepts a value of exactly type T, or an int within [lo, hi].
func intValue[T integer](v any, lo, hi int64) (T, error) {
	switch n := v.(type) {
	case T:
		return n, nil
	case int:
		if int64(n) < lo || int64(n) > hi {
			return 0, fmt.Errorf("%w: %d out of range [%d, %d]", ErrSchema, n, lo, hi)
		}
		return T(n), nil
	default:
		var zero T
		return 0, fmt.Errorf("%w: need %T, got %T", ErrSchema, zero, v)
	}
}

func decodePayload(data []byte, schema Schema) (Payload, error) {
	if size := schema.Size(); len(data) != size {
		return nil, fmt.Errorf("%w: payload is %d bytes, layout %s needs %d", ErrSchema, len(data), schema, size)
	}

	payload := make(Payload, 0, schema.NumValues())
	off := 0
	for _, f := range schema {
		field := data[off : off+f.Size()]
		off += f.Size()

		switch f.Kind {
		case KindU8:
			payload = append(payload, field[0])
		case KindI8:
			payload = append(payload, int8(field[0]))
		case KindU16:
			payload = append(payload, binary.LittleEndian.Uint16(field))
		case KindI16:
			payload = append(payload, int16(binary.LittleEndian.Uint16(field)))
		case KindU32:
			payload = append(payload, binary.LittleEndian.Uint32(field))
		case KindI32:
			payload = append(payload, int32(binary.LittleEndian.Uint32(field)))
		case KindChars:
			payload = append(payload, util.TrimNUL(string(field)))
		case KindBytes:
			payload = append(payload, util.CloneBytes(field))
		case KindPad:
		default:
			return nil, fmt.Errorf("%w: cannot decode %s", ErrSchema, f)
		}
	}

	return payload, nil
}
