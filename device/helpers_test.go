package device

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-apt/apt"
	"github.com/arloliu/go-apt/internal/apttest"
	"github.com/arloliu/go-apt/logger"
)

const (
	benchSerial = 83000001
	rackSerial  = 71000042
)

func benchSim() *apttest.Sim {
	return apttest.New(apttest.Config{
		Serial:   benchSerial,
		Model:    "BPC303",
		Notes:    "3-channel piezo",
		Firmware: [4]byte{5, 3, 1, 0},
		Channels: 3,
	})
}

func rackSim(bays ...bool) *apttest.Sim {
	return apttest.New(apttest.Config{
		Serial: rackSerial,
		Model:  "MMR601",
		Bays:   bays,
	})
}

func simConn(t *testing.T, sim *apttest.Sim) *apt.Connection {
	t.Helper()

	conn, err := sim.Conn(apt.WithReadTimeout(50 * time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func openController(t *testing.T, sim *apttest.Sim, opts ...Option) *Controller {
	t.Helper()

	opts = append([]Option{WithLogger(logger.NopLogger{})}, opts...)
	c, err := NewController(context.Background(), simConn(t, sim), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func testConfig(t *testing.T, opts ...Option) *Config {
	t.Helper()

	cfg, err := NewConfig(append([]Option{WithLogger(logger.NopLogger{})}, opts...)...)
	require.NoError(t, err)

	return cfg
}
