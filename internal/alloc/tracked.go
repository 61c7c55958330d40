package alloc

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"go.uber.org/atomic"
)

// Tracked wraps an Allocator and counts live regions and bytes.
// With a non-zero limit it refuses requests that would exceed it,
// which gives a synthetic exhaustion point independent of the host.
type Tracked struct {
	inner Allocator
	limit int64

	liveBytes   atomic.Int64
	liveBuffers atomic.Int64
	allocs      atomic.Uint64
	frees       atomic.Uint64
}

// NewTracked wraps inner. limit <= 0 means no cap.
func NewTracked(inner Allocator, limit int64) *Tracked {
	return &Tracked{inner: inner, limit: limit}
}

func (t *Tracked) Name() string { return t.inner.Name() }

func (t *Tracked) Alloc(size int) ([]byte, error) {
	if t.limit > 0 && t.liveBytes.Load()+int64(size) > t.limit {
		return nil, fmt.Errorf("%w: %s requested, %s of %s in use", ErrExhausted,
			humanize.IBytes(uint64(size)),
			humanize.IBytes(uint64(t.liveBytes.Load())),
			humanize.IBytes(uint64(t.limit)))
	}
	buf, err := t.inner.Alloc(size)
	if err != nil {
		return nil, err
	}
	t.liveBytes.Add(int64(len(buf)))
	t.liveBuffers.Inc()
	t.allocs.Inc()
	return buf, nil
}

func (t *Tracked) Free(buf []byte) error {
	size := int64(len(buf))
	if err := t.inner.Free(buf); err != nil {
		return err
	}
	t.liveBytes.Sub(size)
	t.liveBuffers.Dec()
	t.frees.Inc()
	return nil
}

// LiveBytes returns bytes currently allocated and not freed
func (t *Tracked) LiveBytes() int64 { return t.liveBytes.Load() }

// LiveBuffers returns regions currently allocated and not freed
func (t *Tracked) LiveBuffers() int64 { return t.liveBuffers.Load() }

// Allocs returns the number of successful Alloc calls
func (t *Tracked) Allocs() uint64 { return t.allocs.Load() }

// Frees returns the number of successful Free calls
func (t *Tracked) Frees() uint64 { return t.frees.Load() }
