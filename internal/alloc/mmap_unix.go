//go:build unix

package alloc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Mmap allocates anonymous private mappings and unmaps them on Free
type Mmap struct {
	pageSize int
}

// NewMmap creates an mmap-backed allocator
func NewMmap() (*Mmap, error) {
	return &Mmap{pageSize: unix.Getpagesize()}, nil
}

func (m *Mmap) Name() string { return NameMmap }

// PageSize returns the host page size used for mappings
func (m *Mmap) PageSize() int { return m.pageSize }

func (m *Mmap) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid allocation size %d", size)
	}
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		if err == unix.ENOMEM || err == unix.EAGAIN {
			return nil, fmt.Errorf("mmap %d bytes: %w: %v", size, ErrExhausted, err)
		}
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}
	return buf, nil
}

func (m *Mmap) Free(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	if err := unix.Munmap(buf[:cap(buf)]); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}
