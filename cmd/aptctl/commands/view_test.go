package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-apt/apt"
	"github.com/arloliu/go-apt/trace"
)

var viewTS = time.Date(2026, 2, 3, 4, 5, 6, 700000000, time.UTC)

func frameEvent(t *testing.T, dir trace.Direction, msg *apt.Message) trace.Event {
	t.Helper()

	frame, err := apt.Marshal(apt.DefaultSchemaTable(), msg)
	require.NoError(t, err)

	return trace.Event{
		Timestamp:    viewTS,
		ConnectionID: "0123456789abcdef",
		Direction:    dir,
		MessageID:    uint16(msg.ID),
		Dest:         uint8(msg.Dest),
		Source:       uint8(msg.Source),
		Frame:        frame,
	}
}

func TestFormatEvent_HeaderOnly(t *testing.T) {
	ev := frameEvent(t, trace.DirectionOut, apt.NewMessage(apt.ModSetChanEnableState, 0x01, 0x01, apt.GenericUSB, apt.HostAddress))

	var buf bytes.Buffer
	FormatEvent(&buf, ev, apt.DefaultSchemaTable())

	assert.Equal(t,
		"2026-02-03T04:05:06.700000Z [conn:01234567] OUT MOD_SET_CHANENABLESTATE(0x0210) 0x01 -> 0x50\n"+
			"  frame:   10 02 01 01 50 01\n"+
			"  params:  0x01 0x01\n",
		buf.String())
}

func TestFormatEvent_Payload(t *testing.T) {
	msg := apt.NewPayloadMessage(apt.PzGetOutputVolts, apt.HostAddress, apt.GenericUSB, uint16(1), int16(-5))
	ev := frameEvent(t, trace.DirectionIn, msg)

	var buf bytes.Buffer
	FormatEvent(&buf, ev, apt.DefaultSchemaTable())

	assert.Contains(t, buf.String(), " IN  PZ_GET_OUTPUTVOLTS(0x0645) 0x50 -> 0x01\n")
	assert.Contains(t, buf.String(), "  payload: [1 -5]\n")
}

func TestFormatEvent_Error(t *testing.T) {
	ev := trace.Event{
		Timestamp:    viewTS,
		ConnectionID: "abc",
		Direction:    trace.DirectionIn,
		MessageID:    0x7ABC,
		Dest:         0x01,
		Source:       0x50,
		Frame:        []byte{0xBC, 0x7A, 0x01, 0x00, 0x81, 0x50, 0xFF},
		Error:        "apt: unknown payload layout",
	}

	var buf bytes.Buffer
	FormatEvent(&buf, ev, apt.DefaultSchemaTable())

	assert.Contains(t, buf.String(), "[conn:abc] IN  0x7ABC 0x50 -> 0x01\n")
	assert.Contains(t, buf.String(), "  error:   apt: unknown payload layout\n")
	assert.NotContains(t, buf.String(), "payload:")
}

func TestFormatPayload(t *testing.T) {
	got := formatPayload(apt.Payload{uint32(83000001), "BPC303", []byte{1, 2}})
	assert.Equal(t, `[83000001 "BPC303" <01 02>]`, got)
}
