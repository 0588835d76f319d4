package apt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/arloliu/go-apt/internal/pool"
	"github.com/arloliu/go-apt/internal/util"
	"github.com/arloliu/go-apt/logger"
	"github.com/arloliu/go-apt/trace"
	"github.com/arloliu/go-apt/transport"
)

// Transport is the byte stream a Connection frames messages on.
// *transport.Conn implements it.
type Transport interface {
	// Name identifies the stream in logs and traces.
	Name() string
	Write(p []byte) (int, error)
	// ReadFull reads len(buf) bytes, returning an error wrapping
	// transport.ErrTimeout and the partial count if they do not arrive in time.
	ReadFull(buf []byte, timeout time.Duration) (int, error)
	// Drain discards input until the line is silent for silence.
	Drain(silence time.Duration) (int, error)
	Close() error
}

var _ Transport = (*transport.Conn)(nil)

// Connection frames APT messages on a Transport.
//
// All exchanges are serialized by an internal mutex: a Query is never
// interleaved with another call on the same connection. Close may be called
// from any goroutine and unblocks a pending read.
type Connection struct {
	cfg    *ConnectionConfig
	tr     Transport
	id     string
	logger logger.Logger
	tracer trace.Tracer
	table  *SchemaTable

	mu sync.Mutex
	// dirty is set when a query gave up waiting; the next write drains first.
	dirty bool

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool

	metrics ConnectionMetrics
}

// NewConnection creates a connection that owns tr. Closing the connection
// closes tr.
func NewConnection(tr Transport, cfg *ConnectionConfig) (*Connection, error) {
	if cfg == nil {
		return nil, ErrConnConfigNil
	}
	if tr == nil {
		return nil, errors.New("apt: transport is nil")
	}

	id := uuid.NewString()

	return &Connection{
		cfg:    cfg,
		tr:     tr,
		id:     id,
		logger: cfg.logger.With("port", tr.Name(), "connID", id),
		tracer: cfg.tracer,
		table:  cfg.table,
	}, nil
}

// ID returns the connection's unique ID, as recorded in trace events.
func (c *Connection) ID() string { return c.id }

// Name returns the transport name.
func (c *Connection) Name() string { return c.tr.Name() }

// Config returns the connection configuration.
func (c *Connection) Config() *ConnectionConfig { return c.cfg }

// HostAddress returns the source address of outgoing messages.
func (c *Connection) HostAddress() Address { return c.cfg.hostAddress }

// SchemaTable returns the payload layout table used by the connection.
func (c *Connection) SchemaTable() *SchemaTable { return c.table }

// GetLogger returns the connection logger.
func (c *Connection) GetLogger() logger.Logger { return c.logger }

// GetMetrics returns the connection metrics.
func (c *Connection) GetMetrics() *ConnectionMetrics { return &c.metrics }

// IsClosed reports whether Close has been called.
func (c *Connection) IsClosed() bool { return c.closed.Load() }

// WriteMessage writes msg. A zero Source is replaced by the host address.
func (c *Connection) WriteMessage(ctx context.Context, msg *Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkUsable(ctx); err != nil {
		return err
	}
	c.recoverLocked()

	return c.writeLocked(msg)
}

// Send writes a header-only message to dest.
func (c *Connection) Send(ctx context.Context, id MessageID, param1, param2 byte, dest Address) error {
	return c.WriteMessage(ctx, NewMessage(id, param1, param2, dest, c.cfg.hostAddress))
}

// ReadMessage decodes the next message on the wire. It makes a single
// attempt bounded by the read timeout or the context deadline, whichever
// is sooner.
func (c *Connection) ReadMessage(ctx context.Context) (*Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkUsable(ctx); err != nil {
		return nil, err
	}

	timeout := c.cfg.readTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(dl))
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: %w", ErrReceiveTimeout, context.DeadlineExceeded)
	}

	return c.readLocked(timeout)
}

// Expect waits for the next message and checks that its ID is expected.
// It applies the same deadline and retry policy as Query.
func (c *Connection) Expect(ctx context.Context, expected MessageID) (*Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkUsable(ctx); err != nil {
		return nil, err
	}

	return c.awaitLocked(ctx, 0, expected)
}

// Query writes req and decodes the response, which must carry the
// expected message ID.
//
// The deadline is the context deadline if set, otherwise the configured
// query timeout if non-zero. Within a deadline, receive timeouts are
// retried every retry interval; without one a single attempt is made. A
// response with another ID returns a *MismatchError at once.
func (c *Connection) Query(ctx context.Context, req *Message, expected MessageID) (*Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkUsable(ctx); err != nil {
		return nil, err
	}
	c.recoverLocked()

	if err := c.writeLocked(req); err != nil {
		return nil, err
	}
	c.metrics.incQueryCount()

	return c.awaitLocked(ctx, req.ID, expected)
}

// Request sends a header-only request to dest and waits for expected.
func (c *Connection) Request(ctx context.Context, id MessageID, param1, param2 byte, dest Address, expected MessageID) (*Message, error) {
	return c.Query(ctx, NewMessage(id, param1, param2, dest, c.cfg.hostAddress), expected)
}

// Drain discards pending input until the line is silent for the configured
// drain silence, returning the number of bytes discarded.
func (c *Connection) Drain() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return 0, ErrConnClosed
	}

	return c.drainLocked()
}

// Close closes the transport. Only the first call has an effect; later
// calls return the first call's result.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.tr.Close()
		if c.closeErr != nil {
			c.logger.Error("apt: failed to close transport", "error", c.closeErr)
		} else {
			c.logger.Debug("apt: connection closed")
		}
	})

	return c.closeErr
}

func (c *Connection) checkUsable(ctx context.Context) error {
	if c.closed.Load() {
		return ErrConnClosed
	}

	return ctx.Err()
}

// recoverLocked drains a stream left mid-exchange by an abandoned query.
func (c *Connection) recoverLocked() {
	if !c.dirty {
		return
	}
	if _, err := c.drainLocked(); err != nil {
		c.logger.Warn("apt: drain before exchange failed", "error", err)
	}
}

func (c *Connection) drainLocked() (int, error) {
	n, err := c.tr.Drain(c.cfg.drainSilence)
	c.metrics.addDrainedBytes(n)
	c.dirty = false

	if n > 0 {
		c.logger.Warn("apt: discarded stray bytes", "bytes", n)
	}
	if err != nil {
		return n, c.mapTransportErr(err)
	}

	return n, nil
}

func (c *Connection) writeLocked(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("%w: nil message", ErrInvalidMessage)
	}

	out := *msg
	if out.Source == 0 {
		out.Source = c.cfg.hostAddress
	}

	frame, err := Marshal(c.table, &out)
	if err != nil {
		c.metrics.incMsgErrCount()
		return err
	}

	if _, err := c.tr.Write(frame); err != nil {
		c.logger.Error("apt: write failed", "msgID", out.ID, "dest", out.Dest, "error", err)
		return c.mapTransportErr(err)
	}

	c.metrics.incMsgSendCount()
	c.traceFrame(trace.DirectionOut, out.ID, out.Dest, out.Source, frame, nil)
	if c.logger.Level() == logger.DebugLevel {
		c.logger.Debug("apt: tx", "msgID", out.ID, "dest", out.Dest, "frame", util.HexString(frame))
	}

	return nil
}

// queryDeadline returns the overall deadline of an await; ok is false
// when a single attempt should be made.
func (c *Connection) queryDeadline(ctx context.Context) (time.Time, bool) {
	if dl, ok := ctx.Deadline(); ok {
		return dl, true
	}
	if c.cfg.queryTimeout > 0 {
		return time.Now().Add(c.cfg.queryTimeout), true
	}

	return time.Time{}, false
}

func (c *Connection) awaitLocked(ctx context.Context, req, expected MessageID) (*Message, error) {
	deadline, bounded := c.queryDeadline(ctx)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			c.dirty = true
			return nil, err
		}

		timeout := c.cfg.readTimeout
		if bounded {
			timeout = min(timeout, time.Until(deadline))
		}

		var (
			msg *Message
			err error
		)
		if timeout > 0 {
			msg, err = c.readLocked(timeout)
		} else {
			err = fmt.Errorf("%w: deadline passed", ErrReceiveTimeout)
		}

		switch {
		case err == nil:
			if msg.ID != expected {
				c.metrics.incMismatchCount()
				c.dirty = true
				return nil, &MismatchError{Request: req, Expected: expected, Received: msg.ID}
			}
			return msg, nil

		case !errors.Is(err, ErrReceiveTimeout):
			return nil, err

		case !bounded || !time.Now().Before(deadline):
			c.metrics.incQueryTimeoutCount()
			c.dirty = true
			return nil, fmt.Errorf("awaiting %s after %d attempt(s): %w", expected, attempt, err)
		}

		c.metrics.incQueryRetryCount()
		c.logger.Debug("apt: no response yet, retrying", "expected", expected, "attempt", attempt)

		if err := pool.Sleep(ctx, min(c.cfg.retryInterval, time.Until(deadline))); err != nil && errors.Is(err, context.Canceled) {
			c.dirty = true
			return nil, err
		}
	}
}

func (c *Connection) readLocked(timeout time.Duration) (*Message, error) {
	var hdr Header
	if n, err := c.tr.ReadFull(hdr[:], timeout); err != nil {
		return nil, c.readFailure(err, n, HeaderSize, "header")
	}

	if !hdr.HasPayload() {
		msg := decodeHeaderOnly(&hdr)
		c.received(msg, hdr[:])
		return msg, nil
	}

	frame := make([]byte, HeaderSize+hdr.PayloadLen())
	copy(frame, hdr[:])
	if body := frame[HeaderSize:]; len(body) > 0 {
		if n, err := c.tr.ReadFull(body, c.cfg.readTimeout); err != nil {
			return nil, c.readFailure(err, HeaderSize+n, len(frame), "payload of "+hdr.ID().String())
		}
	}

	msg, err := decodePayloadMessage(c.table, &hdr, frame[HeaderSize:])
	if err != nil {
		c.metrics.incMsgErrCount()
		c.traceFrame(trace.DirectionIn, hdr.ID(), hdr.Dest(), hdr.Source(), frame, err)
		c.logger.Warn("apt: undecodable message", "msgID", hdr.ID(), "frame", util.HexString(frame), "error", err)
		return nil, err
	}
	c.received(msg, frame)

	return msg, nil
}

func (c *Connection) received(msg *Message, frame []byte) {
	c.metrics.incMsgRecvCount()
	c.traceFrame(trace.DirectionIn, msg.ID, msg.Dest, msg.Source, frame, nil)
	if c.logger.Level() == logger.DebugLevel {
		c.logger.Debug("apt: rx", "msgID", msg.ID, "src", msg.Source, "frame", util.HexString(frame))
	}
}

// readFailure classifies a failed transport read of want bytes, of which got arrived.
func (c *Connection) readFailure(err error, got, want int, what string) error {
	if !errors.Is(err, transport.ErrTimeout) {
		return c.mapTransportErr(err)
	}
	if got == 0 {
		return fmt.Errorf("%w: waiting for %s: %w", ErrReceiveTimeout, what, err)
	}

	c.metrics.incTruncatedCount()
	drained, derr := c.drainLocked()
	if derr != nil {
		c.logger.Warn("apt: drain after truncated message failed", "error", derr)
	}

	return fmt.Errorf("%w: %s: %d of %d bytes, %d stray bytes discarded", ErrTruncated, what, got, want, drained)
}

func (c *Connection) mapTransportErr(err error) error {
	if errors.Is(err, transport.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrConnClosed, err)
	}

	return err
}

func (c *Connection) traceFrame(dir trace.Direction, id MessageID, dest, src Address, frame []byte, err error) {
	event := trace.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Port:         c.tr.Name(),
		Direction:    dir,
		MessageID:    uint16(id),
		Dest:         uint8(dest),
		Source:       uint8(src),
		Frame:        util.CloneBytes(frame),
	}
	if err != nil {
		event.Error = err.Error()
	}
	c.tracer.Trace(event)
}
