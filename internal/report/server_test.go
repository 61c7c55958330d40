package report

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestServerRoutes(t *testing.T) {
	metrics := NewMetrics()
	history := NewHistory(0)
	history.Record(sampleResult(1, OutcomeRecovered))
	metrics.BufferAllocated(4096, time.Millisecond)

	srv := NewServer("127.0.0.1:0", metrics, history, nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	tests := []struct {
		path        string
		wantStatus  int
		wantContain string
	}{
		{"/metrics", http.StatusOK, "memstress_buffers_allocated_total 1"},
		{"/healthz", http.StatusOK, `"status": "ok"`},
		{"/results", http.StatusOK, `"outcome": "recovered"`},
		{"/missing", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tt.path, err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("GET %s status = %d, want %d", tt.path, resp.StatusCode, tt.wantStatus)
			}
			if tt.wantContain != "" && !strings.Contains(string(body), tt.wantContain) {
				t.Errorf("GET %s body missing %q:\n%s", tt.path, tt.wantContain, body)
			}
		})
	}
}

func TestServerResultsEmpty(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewMetrics(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/results", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	var results []Result
	if err := json.Unmarshal(w.Body.Bytes(), &results); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestServerStart(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewMetrics(), nil, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := srv.HTTPServer().Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
