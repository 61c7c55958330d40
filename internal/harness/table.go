package harness

// table owns the populated prefix of the current iteration.
// Every installed buffer has been allocated and completely stamped.
type table struct {
	bufs [][]byte
}

func newTable(capacity int) *table {
	return &table{bufs: make([][]byte, 0, capacity)}
}

func (t *table) install(buf []byte) {
	t.bufs = append(t.bufs, buf)
}

// progress is the length of the populated prefix
func (t *table) progress() int {
	return len(t.bufs)
}

// drain hands every installed buffer to release exactly once, in index
// order, and resets progress to zero.
func (t *table) drain(release func(index int, buf []byte)) int {
	n := len(t.bufs)
	for i, buf := range t.bufs {
		release(i, buf)
		t.bufs[i] = nil
	}
	t.bufs = t.bufs[:0]
	return n
}
