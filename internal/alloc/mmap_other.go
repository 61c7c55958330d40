//go:build !unix

package alloc

// Mmap is unavailable on this platform
type Mmap struct{}

// NewMmap always fails off unix hosts
func NewMmap() (*Mmap, error) {
	return nil, ErrUnsupported
}

func (m *Mmap) Name() string { return NameMmap }

func (m *Mmap) PageSize() int { return 4096 }

func (m *Mmap) Alloc(size int) ([]byte, error) { return nil, ErrUnsupported }

func (m *Mmap) Free(buf []byte) error { return ErrUnsupported }
