package transport

import (
	"errors"
	"io"
	"time"
)

// Sentinel errors for the transport layer.
var (
	// ErrConnection indicates the port could not be opened or configured.
	ErrConnection = errors.New("transport: connection error")
	// ErrIO indicates a failed or short write, or a read error other than a timeout.
	ErrIO = errors.New("transport: i/o error")
	// ErrTimeout indicates fewer bytes than requested arrived before the deadline.
	ErrTimeout = errors.New("transport: read timeout")
	// ErrPortNotFound indicates no enumerated port matched the requested serial number.
	ErrPortNotFound = errors.New("transport: port not found")
	// ErrClosed indicates an operation on a closed connection.
	ErrClosed = errors.New("transport: connection closed")
)

// Stream is the minimal byte-stream contract a transport needs. It is the
// subset of go.bug.st/serial.Port used after the port has been configured.
//
// Read must return (0, nil) when the read timeout elapses without data,
// matching the serial driver's behaviour.
type Stream interface {
	io.ReadWriteCloser
	// SetReadTimeout sets the timeout of a single Read call. A negative
	// value blocks until at least one byte arrives.
	SetReadTimeout(t time.Duration) error
	// ResetInputBuffer discards bytes received but not yet read.
	ResetInputBuffer() error
}
