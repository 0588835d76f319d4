package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-apt/device"
	"github.com/arloliu/go-apt/logger"
	"github.com/arloliu/go-apt/trace"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "aptctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
port: /dev/ttyUSB3
serial_number: "71000042"
log_level: debug
trace: session.cbor
rack_prefixes: [70, 71]
disable_on_close: false
line:
  baud_rate: 115200
  flow_control: rtscts
  settle_time: 20ms
connection:
  read_timeout: 200ms
  query_timeout: 3s
  retry_interval: 5ms
  drain_silence: 40ms
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB3", cfg.Port)
	assert.Equal(t, "71000042", cfg.SerialNumber)
	assert.Equal(t, logger.DebugLevel, cfg.Level())
	assert.Equal(t, "session.cbor", cfg.Trace)
	assert.Equal(t, []int{70, 71}, cfg.RackPrefixes)
	require.NotNil(t, cfg.DisableOnClose)
	assert.False(t, *cfg.DisableOnClose)
	assert.Nil(t, cfg.EnableChannels)
	assert.Equal(t, 115200, cfg.Line.BaudRate)
	assert.Equal(t, 20*time.Millisecond, cfg.Line.SettleTime)
	assert.Equal(t, ConnConfig{
		ReadTimeout:   200 * time.Millisecond,
		QueryTimeout:  3 * time.Second,
		RetryInterval: 5 * time.Millisecond,
		DrainSilence:  40 * time.Millisecond,
	}, cfg.Connection)

	assert.Len(t, cfg.ConnOptions(logger.NopLogger{}, &trace.MemoryTracer{}), 6)

	dcfg, err := device.NewConfig(cfg.DeviceOptions(logger.NopLogger{}, nil)...)
	require.NoError(t, err)
	assert.Equal(t, "71000042", dcfg.SerialNumber())
	assert.False(t, dcfg.DisableOnClose())
	assert.True(t, dcfg.EnableChannels())
	assert.True(t, dcfg.IsRackSerial(70000001))
	assert.False(t, dcfg.IsRackSerial(73000001))
}

func TestLoadConfig_Default(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, logger.InfoLevel, cfg.Level())
	assert.Len(t, cfg.ConnOptions(logger.NopLogger{}, nil), 1)

	_, err = device.NewConfig(cfg.DeviceOptions(logger.NopLogger{}, nil)...)
	require.NoError(t, err)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "port: [unterminated"))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "log_level: loud\n"))
	require.ErrorContains(t, err, "unknown log level")

	_, err = LoadConfig(writeConfig(t, "connection:\n  read_timeout: soon\n"))
	require.Error(t, err)
}
