package trace

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Tracer receives captured frames. Implementations must be safe for
// concurrent use and should return quickly.
type Tracer interface {
	Trace(event Event)
}

// NoopTracer discards all events. It is usable as a zero value.
type NoopTracer struct{}

// Trace discards the event.
func (NoopTracer) Trace(Event) {}

// FileTracer appends events to a file in CBOR format.
// It is safe for concurrent use.
type FileTracer struct {
	file    *os.File
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
	errs    int
}

// NewFileTracer opens path for appending, creating it with mode 0644.
func NewFileTracer(path string) (*FileTracer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	return &FileTracer{file: f, encoder: NewEncoder(f)}, nil
}

// Trace writes the event. After Close it is a no-op.
func (t *FileTracer) Trace(event Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	// capture failures never surface to the connection
	if err := t.encoder.Encode(event); err != nil {
		t.errs++
	}
}

// EncodeErrors returns how many events failed to be written.
func (t *FileTracer) EncodeErrors() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.errs
}

// Close closes the capture file. It is safe to call more than once.
func (t *FileTracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	return t.file.Close()
}

// MemoryTracer keeps events in memory.
type MemoryTracer struct {
	mu     sync.Mutex
	events []Event
}

// Trace appends the event.
func (t *MemoryTracer) Trace(event Event) {
	t.mu.Lock()
	t.events = append(t.events, event)
	t.mu.Unlock()
}

// Events returns a copy of the captured events.
func (t *MemoryTracer) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]Event(nil), t.events...)
}

// Reset drops the captured events.
func (t *MemoryTracer) Reset() {
	t.mu.Lock()
	t.events = nil
	t.mu.Unlock()
}

// MultiTracer forwards events to several tracers.
type MultiTracer []Tracer

// Trace forwards the event to each tracer in order.
func (m MultiTracer) Trace(event Event) {
	for _, t := range m {
		t.Trace(event)
	}
}

var (
	_ Tracer = NoopTracer{}
	_ Tracer = (*FileTracer)(nil)
	_ Tracer = (*MemoryTracer)(nil)
	_ Tracer = MultiTracer(nil)
)
