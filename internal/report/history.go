package report

import "sync"

// DefaultHistorySize bounds how many results History retains
const DefaultHistorySize = 256

// History keeps the most recent iteration results in arrival order
type History struct {
	mu      sync.RWMutex
	results []Result
	limit   int
}

// NewHistory creates a history keeping at most limit results
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &History{limit: limit}
}

func (h *History) Record(r *Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, *r)
	if over := len(h.results) - h.limit; over > 0 {
		h.results = append(h.results[:0:0], h.results[over:]...)
	}
}

// Snapshot returns a copy of the retained results
func (h *History) Snapshot() []Result {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Result, len(h.results))
	copy(out, h.results)
	return out
}

// Len returns the number of retained results
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.results)
}
