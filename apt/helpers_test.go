package apt

import (
	"testing"
	"time"

	"github.com/arloliu/go-apt/logger"
	"github.com/arloliu/go-apt/transport"
)

// testID is a motor message with a (u16, i32) payload used across tests.
const testID MessageID = 0x0405

// newTestTable returns the default table plus a layout for testID.
func newTestTable(t *testing.T) *SchemaTable {
	t.Helper()

	table := DefaultSchemaTable()
	table.MustRegister(testID, Schema{U16, I32})

	return table
}

// newTestConnection creates a Connection over a FakeStream with short timeouts.
func newTestConnection(t *testing.T, opts ...ConnOption) (*Connection, *transport.FakeStream) {
	t.Helper()

	defaults := []ConnOption{
		WithReadTimeout(20 * time.Millisecond),
		WithRetryInterval(5 * time.Millisecond),
		WithDrainSilence(10 * time.Millisecond),
		WithSchemaTable(newTestTable(t)),
		WithLogger(logger.NopLogger{}),
	}

	cfg, err := NewConnectionConfig(append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestConnection: %v", err)
	}

	fs := transport.NewFakeStream()
	conn, err := NewConnection(transport.NewConn(fs, "fake0", logger.NopLogger{}), cfg)
	if err != nil {
		t.Fatalf("newTestConnection: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn, fs
}

// mustMarshal encodes msg with the test table.
func mustMarshal(t *testing.T, msg *Message) []byte {
	t.Helper()

	frame, err := Marshal(newTestTable(t), msg)
	if err != nil {
		t.Fatalf("mustMarshal: %v", err)
	}

	return frame
}
