package trace

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeCapture(t *testing.T, events ...Event) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, ev := range events {
		require.NoError(t, enc.Encode(ev))
	}

	return &buf
}

func ptr[T any](v T) *T { return &v }

func TestReader_Filter(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	out := sampleEvent(base, DirectionOut, 0x0005)
	in := sampleEvent(base.Add(time.Second), DirectionIn, 0x0006)
	bay := sampleEvent(base.Add(2*time.Second), DirectionIn, 0x0061)
	bay.Source = 0x11
	bay.Dest = 0x01
	other := sampleEvent(base.Add(3*time.Second), DirectionIn, 0x0006)
	other.ConnectionID = "deadbeef"
	bad := sampleEvent(base.Add(4*time.Second), DirectionIn, 0x7ABC)
	bad.Error = "apt: unknown payload layout"

	all := []Event{out, in, bay, other, bad}

	tests := []struct {
		name   string
		filter Filter
		want   []uint16
	}{
		{"all", Filter{}, []uint16{0x0005, 0x0006, 0x0061, 0x0006, 0x7ABC}},
		{"connection", Filter{ConnectionID: "c0ffee"}, []uint16{0x0005, 0x0006, 0x0061, 0x7ABC}},
		{"direction", Filter{Direction: ptr(DirectionOut)}, []uint16{0x0005}},
		{"message", Filter{MessageID: ptr(uint16(0x0006))}, []uint16{0x0006, 0x0006}},
		{"address", Filter{Address: ptr(uint8(0x11))}, []uint16{0x0061}},
		{"time window", Filter{TimeStart: ptr(base.Add(time.Second)), TimeEnd: ptr(base.Add(3 * time.Second))}, []uint16{0x0006, 0x0061}},
		{"errors", Filter{ErrorsOnly: true}, []uint16{0x7ABC}},
		{"none", Filter{MessageID: ptr(uint16(0x0223))}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewStreamReader(encodeCapture(t, all...), tt.filter)
			defer r.Close()

			events, err := r.ReadAll()
			require.NoError(t, err)

			var ids []uint16
			for _, ev := range events {
				ids = append(ids, ev.MessageID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestReader_Next(t *testing.T) {
	r := NewStreamReader(encodeCapture(t, sampleEvent(time.Now(), DirectionOut, 0x0005)), Filter{})

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0005), ev.MessageID)

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, r.Close())
}

func TestReader_Corrupt(t *testing.T) {
	buf := encodeCapture(t, sampleEvent(time.Now(), DirectionOut, 0x0005))
	buf.Write([]byte{0xA9, 0x01})

	r := NewStreamReader(buf, Filter{})
	events, err := r.ReadAll()
	require.Error(t, err)
	assert.Len(t, events, 1)
}

func TestNewReader_Missing(t *testing.T) {
	_, err := NewReader("/nonexistent/capture.cbor", Filter{})
	require.Error(t, err)
}
