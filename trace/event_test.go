package trace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent(ts time.Time, dir Direction, id uint16) Event {
	return Event{
		Timestamp:    ts,
		ConnectionID: "c0ffee",
		Port:         "/dev/ttyUSB0",
		Direction:    dir,
		MessageID:    id,
		Dest:         0x50,
		Source:       0x01,
		Frame:        []byte{byte(id), byte(id >> 8), 0x01, 0x00, 0x50, 0x01},
	}
}

func assertSameEvent(t *testing.T, want, got Event) {
	t.Helper()

	assert.True(t, want.Timestamp.Equal(got.Timestamp), "timestamp %v != %v", want.Timestamp, got.Timestamp)
	want.Timestamp, got.Timestamp = time.Time{}, time.Time{}
	assert.Equal(t, want, got)
}

func TestEvent_CBORRoundTrip(t *testing.T) {
	ev := sampleEvent(time.Date(2026, 3, 1, 12, 30, 0, 123456789, time.UTC), DirectionOut, 0x0411)
	ev.Error = "apt: unknown payload layout"

	data, err := EncodeEvent(ev)
	require.NoError(t, err)

	got, err := DecodeEvent(data)
	require.NoError(t, err)
	assertSameEvent(t, ev, got)
}

func TestEvent_CBORKeys(t *testing.T) {
	data, err := EncodeEvent(Event{ConnectionID: "x"})
	require.NoError(t, err)

	// map(6): omitempty drops the port, frame and error keys
	require.NotEmpty(t, data)
	assert.Equal(t, byte(0xA6), data[0])
}

func TestDecodeEvent_Invalid(t *testing.T) {
	_, err := DecodeEvent([]byte{0xFF})
	require.Error(t, err)
}

func TestDirection(t *testing.T) {
	assert.Equal(t, "IN", DirectionIn.String())
	assert.Equal(t, "OUT", DirectionOut.String())

	tests := []struct {
		in   string
		want Direction
		ok   bool
	}{
		{"in", DirectionIn, true},
		{"RX", DirectionIn, true},
		{"Out", DirectionOut, true},
		{"tx", DirectionOut, true},
		{"sideways", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseDirection(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
