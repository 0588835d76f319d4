package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-apt/apt"
	"github.com/arloliu/go-apt/device"
	"github.com/arloliu/go-apt/transport"
)

func TestWritePorts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePorts(&buf, []transport.PortInfo{
		{Path: "/dev/ttyUSB0", VID: "0403", PID: "faf0", SerialNumber: "83000001"},
		{Path: "/dev/ttyUSB1", VID: "0403", PID: "6001", SerialNumber: "A9XYZ"},
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "PATH"))
	assert.True(t, strings.HasSuffix(lines[1], "yes"))
	assert.False(t, strings.HasSuffix(lines[2], "yes"))
}

func TestWriteInfo(t *testing.T) {
	info := device.HardwareInfo{
		SerialNumber: 71000042,
		Model:        "MMR601",
		Firmware:     [4]byte{4, 0, 1, 0},
		Notes:        "modular rack",
	}
	channels := []device.Channel{
		{Index: 0, ChannelID: 0x01, Dest: 0x21},
		{Index: 1, ChannelID: 0x01, Dest: apt.BayAddress(3)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteInfo(&buf, info, true, channels, []int{1}))

	out := buf.String()
	assert.Contains(t, out, "Model:    MMR601 (rack)\n")
	assert.Contains(t, out, "Serial:   71000042\n")
	assert.Contains(t, out, "Firmware: 1.0.4\n")
	assert.Contains(t, out, "Notes:    modular rack\n")
	assert.Regexp(t, `0\s+0x01\s+0x21\s+false`, out)
	assert.Regexp(t, `1\s+0x01\s+0x24\s+true`, out)
}
