package transport

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-apt/logger"
)

// maxDrainDuration bounds Drain on a line that never goes silent.
const maxDrainDuration = 2 * time.Second

// Conn is a byte-oriented connection to one controller.
//
// Conn is NOT goroutine-safe; the message layer above it serializes access.
// Close is the exception and may be called from any goroutine, once or many
// times.
type Conn struct {
	stream Stream
	name   string
	logger logger.Logger

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// NewConn wraps an already configured stream. name identifies the
// connection in logs, typically the port path.
func NewConn(s Stream, name string, l logger.Logger) *Conn {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Conn{
		stream: s,
		name:   name,
		logger: l,
	}
}

// Name returns the name given at construction.
func (c *Conn) Name() string { return c.name }

// Write writes all of p. A failed or short write wraps ErrIO.
func (c *Conn) Write(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}

	n, err := c.stream.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: write %s: %w", ErrIO, c.name, err)
	}
	if n != len(p) {
		return n, fmt.Errorf("%w: short write on %s: %d of %d bytes", ErrIO, c.name, n, len(p))
	}

	return n, nil
}

// ReadFull reads exactly len(buf) bytes. If fewer bytes arrive within
// timeout it returns the number of bytes read and an error wrapping
// ErrTimeout.
func (c *Conn) ReadFull(buf []byte, timeout time.Duration) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}

	deadline := time.Now().Add(timeout)
	read := 0

	for read < len(buf) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return read, fmt.Errorf("%w: got %d of %d bytes within %v", ErrTimeout, read, len(buf), timeout)
		}

		if err := c.setReadTimeout(remaining); err != nil {
			return read, err
		}

		n, err := c.stream.Read(buf[read:])
		read += n

		if err != nil {
			if c.closed.Load() {
				return read, ErrClosed
			}

			return read, fmt.Errorf("%w: read %s: %w", ErrIO, c.name, err)
		}
	}

	return read, nil
}

// Drain discards pending input until the line has been silent for silence,
// returning the number of bytes read off the wire. Bytes dropped from the
// driver's input buffer are not counted.
func (c *Conn) Drain(silence time.Duration) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}

	if err := c.stream.ResetInputBuffer(); err != nil {
		return 0, fmt.Errorf("%w: reset input buffer: %w", ErrIO, err)
	}

	if err := c.setReadTimeout(silence); err != nil {
		return 0, err
	}

	buf := make([]byte, 256)
	total := 0
	limit := time.Now().Add(maxDrainDuration)

	for time.Now().Before(limit) {
		n, err := c.stream.Read(buf)
		total += n
		if err != nil {
			return total, fmt.Errorf("%w: drain %s: %w", ErrIO, c.name, err)
		}
		if n == 0 {
			break
		}
	}

	if total > 0 {
		c.logger.Debug("transport: drained stray bytes", "port", c.name, "bytes", total)
	}

	return total, nil
}

// Close closes the underlying stream. Only the first call reaches the
// stream; later calls return the first call's result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.stream.Close()
		c.logger.Debug("transport: connection closed", "port", c.name)
	})

	return c.closeErr
}

// IsClosed reports whether Close has been called.
func (c *Conn) IsClosed() bool { return c.closed.Load() }

func (c *Conn) setReadTimeout(d time.Duration) error {
	if err := c.stream.SetReadTimeout(d); err != nil {
		return fmt.Errorf("%w: set read timeout: %w", ErrIO, err)
	}

	return nil
}
