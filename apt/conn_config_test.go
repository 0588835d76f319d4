package apt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-apt/logger"
	"github.com/arloliu/go-apt/trace"
)

func TestNewConnectionConfig_Defaults(t *testing.T) {
	cfg, err := NewConnectionConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultReadTimeout, cfg.ReadTimeout())
	assert.Zero(t, cfg.QueryTimeout())
	assert.Equal(t, DefaultRetryInterval, cfg.RetryInterval())
	assert.Equal(t, DefaultDrainSilence, cfg.DrainSilence())
	assert.Equal(t, HostAddress, cfg.HostAddress())
	assert.IsType(t, trace.NoopTracer{}, cfg.GetTracer())
	assert.NotNil(t, cfg.GetLogger())

	_, ok := cfg.SchemaTable().Lookup(HWGetInfo)
	assert.True(t, ok)
}

func TestNewConnectionConfig_Options(t *testing.T) {
	table := NewSchemaTable()
	tracer := &trace.MemoryTracer{}

	cfg, err := NewConnectionConfig(
		WithReadTimeout(time.Second),
		WithQueryTimeout(5*time.Second),
		WithRetryInterval(0),
		WithDrainSilence(20*time.Millisecond),
		WithHostAddress(0x02),
		WithSchemaTable(table),
		WithTracer(tracer),
		WithLogger(logger.NopLogger{}),
	)
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.ReadTimeout())
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout())
	assert.Zero(t, cfg.RetryInterval())
	assert.Equal(t, 20*time.Millisecond, cfg.DrainSilence())
	assert.Equal(t, Address(0x02), cfg.HostAddress())
	assert.Same(t, table, cfg.SchemaTable())
	assert.Same(t, tracer, cfg.GetTracer())
}

func TestNewConnectionConfig_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  ConnOption
	}{
		{"read timeout too short", WithReadTimeout(time.Millisecond)},
		{"read timeout too long", WithReadTimeout(time.Minute)},
		{"negative query timeout", WithQueryTimeout(-time.Second)},
		{"query timeout too long", WithQueryTimeout(time.Hour)},
		{"retry interval too long", WithRetryInterval(2 * time.Second)},
		{"drain silence zero", WithDrainSilence(0)},
		{"host address zero", WithHostAddress(0)},
		{"host address 8 bits", WithHostAddress(0x80)},
		{"nil table", WithSchemaTable(nil)},
		{"nil tracer", WithTracer(nil)},
		{"nil logger", WithLogger(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConnectionConfig(tt.opt)
			assert.Error(t, err)
		})
	}
}

func TestNewConnection_NilArgs(t *testing.T) {
	_, err := NewConnection(nil, nil)
	require.ErrorIs(t, err, ErrConnConfigNil)

	cfg, err := NewConnectionConfig()
	require.NoError(t, err)
	_, err = NewConnection(nil, cfg)
	require.Error(t, err)
}
