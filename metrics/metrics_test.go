package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-apt/apt"
	"github.com/arloliu/go-apt/logger"
	"github.com/arloliu/go-apt/transport"
)

func newConnection(t *testing.T) *apt.Connection {
	t.Helper()

	cfg, err := apt.NewConnectionConfig(apt.WithLogger(logger.NopLogger{}))
	require.NoError(t, err)

	conn, err := apt.NewConnection(transport.NewConn(transport.NewFakeStream(), "ttyUSB0", logger.NopLogger{}), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestConnectionCollector(t *testing.T) {
	conn := newConnection(t)
	require.NoError(t, conn.Send(context.Background(), apt.HWReqInfo, 0, 0, apt.GenericUSB))
	require.NoError(t, conn.Send(context.Background(), apt.HWNoFlashProgramming, 0, 0, apt.GenericUSB))

	reg := prometheus.NewRegistry()
	c, err := Register(reg, conn)
	require.NoError(t, err)

	assert.Equal(t, len(counterDefs), testutil.CollectAndCount(c))

	expected := `
# HELP apt_connection_messages_sent_total Messages written to the controller.
# TYPE apt_connection_messages_sent_total counter
apt_connection_messages_sent_total{port="ttyUSB0"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "apt_connection_messages_sent_total"))
}

func TestRegister_Duplicate(t *testing.T) {
	conn := newConnection(t)
	reg := prometheus.NewRegistry()

	_, err := Register(reg, conn)
	require.NoError(t, err)
	_, err = Register(reg, conn)
	require.Error(t, err)
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	_, err := Register(reg, newConnection(t))
	require.NoError(t, err)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	rsp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer rsp.Body.Close()

	body, err := io.ReadAll(rsp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `apt_connection_queries_total{port="ttyUSB0"} 0`)
	assert.Contains(t, string(body), "go_goroutines")
}
