package transport

import (
	"testing"

	"github.com/arloliu/go-apt/logger"
)

// newTestConn wraps a fresh FakeStream and closes it on cleanup.
func newTestConn(t *testing.T) (*Conn, *FakeStream) {
	t.Helper()

	fs := NewFakeStream()
	c := NewConn(fs, "fake0", logger.NopLogger{})
	t.Cleanup(func() { _ = c.Close() })

	return c, fs
}
