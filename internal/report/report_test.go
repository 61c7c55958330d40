package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func sampleResult(iteration uint64, outcome Outcome) *Result {
	start := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	return NewResult("run-1", iteration, 3, 1024, 3, outcome, "signal", start, start.Add(1500*time.Millisecond))
}

func TestNewResult(t *testing.T) {
	r := sampleResult(257, OutcomeRecovered)

	if r.Marker != 1 {
		t.Errorf("marker should be the low byte of the iteration, got %d", r.Marker)
	}
	if r.Duration != 1500*time.Millisecond {
		t.Errorf("unexpected duration %v", r.Duration)
	}
	if r.Bytes() != 3*1024 {
		t.Errorf("unexpected bytes %d", r.Bytes())
	}
}

func TestHistoryBounded(t *testing.T) {
	h := NewHistory(2)
	for i := uint64(1); i <= 3; i++ {
		h.Record(sampleResult(i, OutcomeCompleted))
	}

	got := h.Snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 retained results, got %d", len(got))
	}
	if got[0].Iteration != 2 || got[1].Iteration != 3 {
		t.Errorf("expected iterations 2,3, got %d,%d", got[0].Iteration, got[1].Iteration)
	}
}

func TestRecordersFanOut(t *testing.T) {
	a, b := NewHistory(0), NewHistory(0)
	Recorders{a, nil, b}.Record(sampleResult(1, OutcomeCompleted))

	if a.Len() != 1 || b.Len() != 1 {
		t.Errorf("expected both histories to record, got %d and %d", a.Len(), b.Len())
	}
}

func TestWriteFormats(t *testing.T) {
	results := []Result{*sampleResult(1, OutcomeRecovered), *sampleResult(2, OutcomeCompleted)}

	var table bytes.Buffer
	if err := Write(&table, "table", results); err != nil {
		t.Fatalf("table: %v", err)
	}
	for _, want := range []string{"ITERATION", "0x01", "recovered (signal)", "3.0 KiB"} {
		if !strings.Contains(strings.ToUpper(table.String()), strings.ToUpper(want)) {
			t.Errorf("table output missing %q:\n%s", want, table.String())
		}
	}

	var js bytes.Buffer
	if err := Write(&js, "json", results); err != nil {
		t.Fatalf("json: %v", err)
	}
	var decoded []Result
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("json output invalid: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Outcome != OutcomeRecovered {
		t.Errorf("unexpected decoded results: %+v", decoded)
	}

	var ym bytes.Buffer
	if err := Write(&ym, "yaml", results); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	var generic []map[string]interface{}
	if err := yaml.Unmarshal(ym.Bytes(), &generic); err != nil {
		t.Fatalf("yaml output invalid: %v", err)
	}
	if generic[1]["outcome"] != "completed" {
		t.Errorf("unexpected yaml: %v", generic)
	}

	if err := Write(&bytes.Buffer{}, "xml", results); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.BufferAllocated(10, time.Millisecond)
	m.BufferReleased(10)
	m.ReleaseFailed(10)
	m.Recovered("signal")
	m.Record(sampleResult(1, OutcomeCompleted))
	if m.Registry() != nil {
		t.Error("nil metrics should have no registry")
	}
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.BufferAllocated(1024, 2*time.Millisecond)
	m.BufferAllocated(1024, 2*time.Millisecond)
	m.BufferReleased(1024)
	m.Recovered("manual")
	m.Record(sampleResult(1, OutcomeRecovered))

	path := filepath.Join(t.TempDir(), "memstress.prom")
	if err := WriteTextfile(path, m.Registry()); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	out := string(data)

	for _, want := range []string{
		"memstress_buffers_allocated_total 2",
		"memstress_buffers_released_total 1",
		"memstress_resident_bytes 1024",
		`memstress_recoveries_total{reason="manual"} 1`,
		`memstress_iterations_total{outcome="recovered"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q", want)
		}
	}
}

// gatherValues flattens counter and gauge samples by family name
func gatherValues(t *testing.T, m *Metrics) map[string]float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	values := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				values[mf.GetName()] += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[mf.GetName()] += metric.GetGauge().GetValue()
			}
		}
	}
	return values
}

func TestReleaseFailedKeepsResidentBytes(t *testing.T) {
	m := NewMetrics()
	m.BufferAllocated(4096, time.Millisecond)
	m.BufferAllocated(4096, time.Millisecond)
	m.BufferReleased(4096)
	m.ReleaseFailed(4096)

	values := gatherValues(t, m)
	if got := values["memstress_resident_bytes"]; got != 4096 {
		t.Errorf("resident bytes = %v, want 4096 (failed release stays mapped)", got)
	}
	if got := values["memstress_release_errors_total"]; got != 1 {
		t.Errorf("release errors = %v, want 1", got)
	}
}

type fakeStats struct {
	liveBytes, liveBuffers int64
	allocs, frees          uint64
}

func (f *fakeStats) LiveBytes() int64   { return f.liveBytes }
func (f *fakeStats) LiveBuffers() int64 { return f.liveBuffers }
func (f *fakeStats) Allocs() uint64     { return f.allocs }
func (f *fakeStats) Frees() uint64      { return f.frees }

func TestTrackAllocator(t *testing.T) {
	m := NewMetrics()
	stats := &fakeStats{liveBytes: 3 << 20, liveBuffers: 3, allocs: 5, frees: 2}
	m.TrackAllocator(stats)

	values := gatherValues(t, m)
	tests := []struct {
		name string
		want float64
	}{
		{"memstress_allocator_live_bytes", 3 << 20},
		{"memstress_allocator_live_buffers", 3},
		{"memstress_allocator_allocs_total", 5},
		{"memstress_allocator_frees_total", 2},
	}
	for _, tt := range tests {
		if got := values[tt.name]; got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}

	stats.frees = 5
	if got := gatherValues(t, m)["memstress_allocator_frees_total"]; got != 5 {
		t.Errorf("counter func should read live values, got %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.TrackAllocator(stats)
}
