package apt

import (
	"fmt"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// FieldKind identifies the wire encoding of a payload field.
type FieldKind uint8

// Field kinds. Integers are little-endian.
const (
	KindU8 FieldKind = iota + 1
	KindI8
	KindU16
	KindI16
	KindU32
	KindI32
	KindChars // NUL padded text, decoded as string
	KindBytes // fixed-length raw bytes, decoded as []byte
	KindPad   // reserved bytes, zero on encode, no decoded value
)

// FieldType describes one payload field.
type FieldType struct {
	Kind FieldKind
	// Len is the byte length of Chars, Bytes and Pad fields.
	Len int
}

// Fixed-width field types.
var (
	U8  = FieldType{Kind: KindU8}
	I8  = FieldType{Kind: KindI8}
	U16 = FieldType{Kind: KindU16}
	I16 = FieldType{Kind: KindI16}
	U32 = FieldType{Kind: KindU32}
	I32 = FieldType{Kind: KindI32}
)

// Chars returns an n-byte NUL padded text field.
func Chars(n int) FieldType { return FieldType{Kind: KindChars, Len: n} }

// Bytes returns an n-byte raw field.
func Bytes(n int) FieldType { return FieldType{Kind: KindBytes, Len: n} }

// Pad returns n reserved bytes.
func Pad(n int) FieldType { return FieldType{Kind: KindPad, Len: n} }

// Size returns the encoded size of the field in bytes.
func (f FieldType) Size() int {
	switch f.Kind {
	case KindU8, KindI8:
		return 1
	case KindU16, KindI16:
		return 2
	case KindU32, KindI32:
		return 4
	case KindChars, KindBytes, KindPad:
		return f.Len
	default:
		return 0
	}
}

// HasValue reports whether the field carries a payload value.
func (f FieldType) HasValue() bool {
	return f.Kind != KindPad
}

func (f FieldType) String() string {
	switch f.Kind {
	case KindU8:
		return "u8"
	case KindI8:
		return "i8"
	case KindU16:
		return "u16"
	case KindI16:
		return "i16"
	case KindU32:
		return "u32"
	case KindI32:
		return "i32"
	case KindChars:
		return fmt.Sprintf("chars[%d]", f.Len)
	case KindBytes:
		return fmt.Sprintf("bytes[%d]", f.Len)
	case KindPad:
		return fmt.Sprintf("pad[%d]", f.Len)
	default:
		return fmt.Sprintf("kind(%d)", f.Kind)
	}
}

func (f FieldType) validate() error {
	switch f.Kind {
	case KindU8, KindI8, KindU16, KindI16, KindU32, KindI32:
		return nil
	case KindChars, KindBytes, KindPad:
		if f.Len <= 0 {
			return fmt.Errorf("%w: %s field length must be positive", ErrSchema, f)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown field kind %d", ErrSchema, f.Kind)
	}
}

// Schema is the ordered field layout of a message payload.
type Schema []FieldType

// Size returns the payload size in bytes.
func (s Schema) Size() int {
	n := 0
	for _, f := range s {
		n += f.Size()
	}

	return n
}

// NumValues returns the number of payload values, i.e. fields other than Pad.
func (s Schema) NumValues() int {
	n := 0
	for _, f := range s {
		if f.HasValue() {
			n++
		}
	}

	return n
}

func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = f.String()
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

// Validate checks every field and the total size against the 16-bit length field.
func (s Schema) Validate() error {
	for _, f := range s {
		if err := f.validate(); err != nil {
			return err
		}
	}
	if size := s.Size(); size > MaxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds %d", ErrSchema, size, MaxPayloadSize)
	}

	return nil
}

// SchemaTable maps message IDs to payload layouts. It is safe for concurrent use.
type SchemaTable struct {
	schemas *xsync.MapOf[MessageID, Schema]
}

// NewSchemaTable creates an empty table.
func NewSchemaTable() *SchemaTable {
	return &SchemaTable{schemas: xsync.NewMapOf[MessageID, Schema]()}
}

// Register adds or replaces the layout for id.
func (t *SchemaTable) Register(id MessageID, s Schema) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("register %s: %w", id, err)
	}
	t.schemas.Store(id, append(Schema(nil), s...))

	return nil
}

// MustRegister is like Register but panics on an invalid schema.
func (t *SchemaTable) MustRegister(id MessageID, s Schema) {
	if err := t.Register(id, s); err != nil {
		panic(err)
	}
}

// Lookup returns the layout registered for id.
func (t *SchemaTable) Lookup(id MessageID) (Schema, bool) {
	return t.schemas.Load(id)
}

// Unregister removes the layout for id.
func (t *SchemaTable) Unregister(id MessageID) {
	t.schemas.Delete(id)
}

// Len returns the number of registered layouts.
func (t *SchemaTable) Len() int {
	return t.schemas.Size()
}

// Clone returns an independent copy of the table.
func (t *SchemaTable) Clone() *SchemaTable {
	c := NewSchemaTable()
	t.schemas.Range(func(id MessageID, s Schema) bool {
		c.schemas.Store(id, s)
		return true
	})

	return c
}

// DefaultSchemaTable returns a new table holding the payload layouts of the
// hardware, rack, motor and piezo messages defined in this package.
// Callers may register further layouts on the returned table.
func DefaultSchemaTable() *SchemaTable {
	t := NewSchemaTable()
	// serial, model, type, firmware, notes, reserved, hw version, mod state, channels
	t.MustRegister(HWGetInfo, Schema{U32, Chars(8), U16, Bytes(4), Chars(48), Pad(12), U16, U16, U16})

	counter := Schema{U16, I32}
	t.MustRegister(MotSetPosCounter, counter)
	t.MustRegister(MotGetPosCounter, counter)
	t.MustRegister(MotSetEncCounter, counter)
	t.MustRegister(MotGetEncCounter, counter)
	t.MustRegister(MotMoveAbsolute, counter)

	status := Schema{U16, I32, I32, U32} // channel, position, encoder, status bits
	t.MustRegister(MotMoveCompleted, status)
	t.MustRegister(MotMoveStopped, status)
	t.MustRegister(MotGetStatusUpdate, status)

	pair := Schema{U16, U16}
	t.MustRegister(PzSetOutputPos, pair)
	t.MustRegister(PzGetOutputPos, pair)
	t.MustRegister(PzGetMaxTravel, pair)
	t.MustRegister(PzSetInputVoltsSrc, pair)
	t.MustRegister(PzGetInputVoltsSrc, pair)
	t.MustRegister(PzSetOutputVolts, Schema{U16, I16})
	t.MustRegister(PzGetOutputVolts, Schema{U16, I16})
	t.MustRegister(PzSetPIConsts, Schema{U16, U16, U16})
	t.MustRegister(PzGetPIConsts, Schema{U16, U16, U16})
	t.MustRegister(PzGetPzStatusBits, Schema{U16, U32})
	t.MustRegister(PzSetIOSettings, Schema{U16, U16, U16, U16, U16})
	t.MustRegister(PzGetIOSettings, Schema{U16, U16, U16, U16, U16})
	// channel, max voltage in 0.1 V steps, flags
	t.MustRegister(PzSetOutputMaxVolts, Schema{U16, U16, U16})
	t.MustRegister(PzGetOutputMaxVolts, Schema{U16, U16, U16})

	return t
}
