package util

import (
	"encoding/hex"
	"strings"
)

// HexString formats b as space separated upper-case hex pairs, e.g. "05 00 00 00 50 01".
func HexString(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(b) * 3)

	enc := make([]byte, 2)
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		hex.Encode(enc, []byte{v})
		sb.WriteString(strings.ToUpper(string(enc)))
	}

	return sb.String()
}

// TrimNUL removes trailing NUL padding from fixed width text fields.
func TrimNUL(s string) string {
	return strings.TrimRight(s, "\x00")
}

// CloneBytes returns a copy of b, or nil when b is nil.
func CloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)

	return out
}
