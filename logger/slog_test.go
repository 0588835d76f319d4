package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger_JSONOutput(t *testing.T) {
	t.Setenv("ENV", "")

	var buf bytes.Buffer
	l := NewSlog(InfoLevel, false, &buf)

	l.Info("connected", "serial", uint32(83812345), "channels", 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "connected", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
	assert.Contains(t, rec, "ts")
	assert.EqualValues(t, 2, rec["channels"])
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	t.Setenv("ENV", "")

	var buf bytes.Buffer
	l := NewSlog(WarnLevel, false, &buf)

	l.Debug("tx", "frame", "05 00 00 00 50 01")
	l.Info("hello")
	assert.Empty(t, buf.String())

	l.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, l.Level())

	l.Debug("tx", "frame", "05 00 00 00 50 01")
	assert.Contains(t, buf.String(), "05 00 00 00 50 01")
}

func TestSlogLogger_WithSharesLevel(t *testing.T) {
	t.Setenv("ENV", "")

	var buf bytes.Buffer
	parent := NewSlog(ErrorLevel, false, &buf)
	child := parent.With("conn", "abc")

	child.Info("dropped")
	assert.Empty(t, buf.String())

	parent.SetLevel(InfoLevel)
	child.Info("kept")
	assert.Contains(t, buf.String(), `"conn":"abc"`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		want  Level
		valid bool
	}{
		{"debug", DebugLevel, true},
		{"info", InfoLevel, true},
		{"", InfoLevel, true},
		{"warning", WarnLevel, true},
		{"error", ErrorLevel, true},
		{"fatal", FatalLevel, true},
		{"verbose", InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLevel(tt.name)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.valid, ok)
		})
	}
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l.Info("ignored")
	assert.Equal(t, FatalLevel, l.Level())
	assert.Equal(t, l, l.With("k", "v"))
}
