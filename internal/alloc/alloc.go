// Package alloc provides the large-buffer allocators driven by the harness.
//
// An Allocator hands out owning byte regions and takes them back. The mmap
// allocator returns memory to the OS as soon as a region is freed, which is
// what makes reclaiming gigabyte buffers between iterations observable on the
// host. The heap allocator is the portable fallback.
package alloc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

var (
	// ErrExhausted is returned when a request cannot be satisfied
	ErrExhausted = errors.New("allocator exhausted")
	// ErrAbort marks an allocation failure that must terminate the process
	ErrAbort = errors.New("allocator abort")
	// ErrUnsupported is returned when an allocator is not available on this host
	ErrUnsupported = errors.New("allocator not supported on this platform")
)

// Allocator hands out and reclaims large memory regions
type Allocator interface {
	// Alloc returns a zeroed region of exactly size bytes
	Alloc(size int) ([]byte, error)
	// Free releases a region previously returned by Alloc
	Free(buf []byte) error
	// Name identifies the allocator in logs and reports
	Name() string
}

const (
	NameAuto = "auto"
	NameMmap = "mmap"
	NameHeap = "heap"
)

// New returns the allocator registered under name.
// "auto" prefers mmap and falls back to the Go heap.
func New(name string) (Allocator, error) {
	switch strings.ToLower(name) {
	case "", NameAuto:
		if a, err := NewMmap(); err == nil {
			return a, nil
		}
		return NewHeap(), nil
	case NameMmap:
		a, err := NewMmap()
		if err != nil {
			return nil, err
		}
		return a, nil
	case NameHeap:
		return NewHeap(), nil
	default:
		return nil, fmt.Errorf("unknown allocator %q (want auto, mmap or heap)", name)
	}
}

// AbortError is the terminal allocation failure reported to the operator
type AbortError struct {
	Size  int
	Index int
	Err   error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("can't allocate %d bytes (%s) for buffer %d: %v",
		e.Size, humanize.IBytes(uint64(e.Size)), e.Index, e.Err)
}

// Is matches ErrAbort
func (e *AbortError) Is(target error) bool {
	return target == ErrAbort
}

func (e *AbortError) Unwrap() error {
	return e.Err
}
