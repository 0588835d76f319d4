package transport

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"go.bug.st/serial"
)

var errFakeClosed = errors.New("fake stream closed")

// FakeStream is an in-memory serial port for tests and simulators.
//
// Bytes queued with Feed are returned by Read. Read honours the configured
// read timeout the way the serial driver does: it returns (0, nil) when no
// byte arrives in time. When OnWrite is set, its return value is queued as
// the reply to every Write.
//
// FakeStream implements serial.Port so it can also stand in for a real port
// behind a PortOpener.
type FakeStream struct {
	mu   sync.Mutex
	cond *sync.Cond

	in      bytes.Buffer
	written bytes.Buffer

	readTimeout time.Duration
	closed      bool

	// OnWrite, when set, is called with a copy of each written chunk; the
	// returned bytes are queued for reading.
	OnWrite func(p []byte) []byte

	// MaxReadChunk limits the bytes returned by one Read call (0 = unlimited).
	MaxReadChunk int

	// WriteErr, when set, is returned by every Write.
	WriteErr error

	// Mode, RTS and Resets record the configuration applied through the
	// serial.Port methods.
	Mode       *serial.Mode
	RTS        bool
	DTR        bool
	Resets     int
	ReadCalls  int
	CloseCalls int
}

var (
	_ Stream      = (*FakeStream)(nil)
	_ serial.Port = (*FakeStream)(nil)
)

// NewFakeStream creates an empty FakeStream with a blocking read timeout.
func NewFakeStream() *FakeStream {
	f := &FakeStream{readTimeout: serial.NoTimeout}
	f.cond = sync.NewCond(&f.mu)

	return f
}

// Feed queues bytes to be read.
func (f *FakeStream) Feed(p []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.in.Write(p)
	f.cond.Broadcast()
}

// Written returns a copy of every byte written so far.
func (f *FakeStream) Written() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	return bytes.Clone(f.written.Bytes())
}

// Pending returns the number of queued bytes not yet read.
func (f *FakeStream) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.in.Len()
}

func (f *FakeStream) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ReadCalls++

	var deadline time.Time
	if f.readTimeout >= 0 {
		deadline = time.Now().Add(f.readTimeout)
	}

	for f.in.Len() == 0 && !f.closed {
		if deadline.IsZero() {
			f.cond.Wait()
			continue
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, nil
		}

		t := time.AfterFunc(remaining, f.cond.Broadcast)
		f.cond.Wait()
		t.Stop()
	}

	if f.closed {
		return 0, errFakeClosed
	}

	if f.MaxReadChunk > 0 && len(p) > f.MaxReadChunk {
		p = p[:f.MaxReadChunk]
	}

	return f.in.Read(p)
}

func (f *FakeStream) Write(p []byte) (int, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0, errFakeClosed
	}
	if f.WriteErr != nil {
		err := f.WriteErr
		f.mu.Unlock()
		return 0, err
	}
	f.written.Write(p)
	onWrite := f.OnWrite
	f.mu.Unlock()

	if onWrite != nil {
		if reply := onWrite(bytes.Clone(p)); len(reply) > 0 {
			f.Feed(reply)
		}
	}

	return len(p), nil
}

func (f *FakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CloseCalls++
	f.closed = true
	f.cond.Broadcast()

	return nil
}

func (f *FakeStream) SetReadTimeout(t time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.readTimeout = t

	return nil
}

func (f *FakeStream) ResetInputBuffer() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Resets++
	f.in.Reset()

	return nil
}

func (f *FakeStream) ResetOutputBuffer() error { return nil }

func (f *FakeStream) SetMode(mode *serial.Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Mode = mode

	return nil
}

func (f *FakeStream) Drain() error { return nil }

func (f *FakeStream) SetDTR(dtr bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.DTR = dtr

	return nil
}

func (f *FakeStream) SetRTS(rts bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.RTS = rts

	return nil
}

func (f *FakeStream) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{CTS: true, DSR: true}, nil
}

func (f *FakeStream) Break(time.Duration) error { return nil }
