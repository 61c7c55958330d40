//go:build unix

package alloc

import "testing"

func TestMmapAllocFree(t *testing.T) {
	m, err := NewMmap()
	if err != nil {
		t.Fatalf("NewMmap: %v", err)
	}
	if m.PageSize() <= 0 {
		t.Fatalf("invalid page size %d", m.PageSize())
	}

	size := 4 * m.PageSize()
	buf, err := m.Alloc(size)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if len(buf) != size {
		t.Fatalf("expected %d bytes, got %d", size, len(buf))
	}

	Fill(buf, 9, nil)
	if idx := Verify(buf, 9); idx != -1 {
		t.Errorf("byte %d not stamped", idx)
	}

	if err := m.Free(buf); err != nil {
		t.Errorf("Free: %v", err)
	}
}

func TestMmapRejectsBadSize(t *testing.T) {
	m, _ := NewMmap()
	if _, err := m.Alloc(-1); err == nil {
		t.Error("expected error for negative size")
	}
}
