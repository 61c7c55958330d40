package alloc

import (
	"fmt"
	"runtime/debug"

	"go.uber.org/atomic"
)

// heapReturnThreshold is the freed volume after which Heap asks the
// runtime to hand memory back to the OS.
const heapReturnThreshold = 256 << 20

// Heap allocates from the Go heap. Freed regions are dropped and the
// runtime is periodically asked to scavenge them.
type Heap struct {
	pending atomic.Int64
}

// NewHeap creates a Go heap allocator
func NewHeap() *Heap {
	return &Heap{}
}

func (h *Heap) Name() string { return NameHeap }

func (h *Heap) Alloc(size int) (buf []byte, err error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid allocation size %d", size)
	}
	// The runtime throws rather than returning nil on a failed make; only
	// panics raised by make itself (e.g. len out of range) are recoverable.
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = fmt.Errorf("make %d bytes: %w: %v", size, ErrExhausted, r)
		}
	}()
	return make([]byte, size), nil
}

func (h *Heap) Free(buf []byte) error {
	if h.pending.Add(int64(cap(buf))) >= heapReturnThreshold {
		h.pending.Store(0)
		debug.FreeOSMemory()
	}
	return nil
}
