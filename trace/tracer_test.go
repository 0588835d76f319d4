package trace

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTracer_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cbor")
	base := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

	ft, err := NewFileTracer(path)
	require.NoError(t, err)

	want := []Event{
		sampleEvent(base, DirectionOut, 0x0005),
		sampleEvent(base.Add(time.Millisecond), DirectionIn, 0x0006),
	}
	for _, ev := range want {
		ft.Trace(ev)
	}
	require.NoError(t, ft.Close())
	require.NoError(t, ft.Close())
	assert.Zero(t, ft.EncodeErrors())

	// events after Close are dropped
	ft.Trace(sampleEvent(base, DirectionOut, 0x0011))

	r, err := NewReader(path, Filter{})
	require.NoError(t, err)
	defer r.Close()

	got, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assertSameEvent(t, want[i], got[i])
	}
}

func TestFileTracer_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cbor")
	now := time.Now()

	for range 2 {
		ft, err := NewFileTracer(path)
		require.NoError(t, err)
		ft.Trace(sampleEvent(now, DirectionOut, 0x0223))
		require.NoError(t, ft.Close())
	}

	r, err := NewReader(path, Filter{})
	require.NoError(t, err)
	defer r.Close()

	got, err := r.ReadAll()
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestNewFileTracer_BadPath(t *testing.T) {
	_, err := NewFileTracer(filepath.Join(t.TempDir(), "missing", "capture.cbor"))
	require.Error(t, err)
}

func TestMemoryTracer(t *testing.T) {
	var mt MemoryTracer

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mt.Trace(sampleEvent(time.Now(), DirectionIn, uint16(i)))
		}()
	}
	wg.Wait()

	assert.Len(t, mt.Events(), 8)
	mt.Reset()
	assert.Empty(t, mt.Events())
}

func TestMultiTracer(t *testing.T) {
	var a, b MemoryTracer
	multi := MultiTracer{&a, NoopTracer{}, &b}

	multi.Trace(sampleEvent(time.Now(), DirectionOut, 0x0018))

	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}
