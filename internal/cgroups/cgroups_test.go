package cgroups

import (
	"os"
	"path/filepath"
	"testing"
)

func withRoot(t *testing.T, v2 bool) string {
	t.Helper()
	dir := t.TempDir()
	old := Root
	Root = dir
	t.Cleanup(func() { Root = old })
	if v2 {
		if err := os.WriteFile(filepath.Join(dir, "cgroup.controllers"), []byte("memory"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestVersion(t *testing.T) {
	withRoot(t, true)
	if Version() != 2 {
		t.Error("expected v2 when cgroup.controllers exists")
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"max\n", 0, false},
		{"1073741824\n", 1 << 30, false},
		{"9223372036854771712", 0, false},
		{"lots", 0, true},
	}
	for _, tt := range tests {
		got, err := parseLimit(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLimit(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestConfineV2(t *testing.T) {
	root := withRoot(t, true)
	m := New()

	path, err := m.Confine("test", 4242, 1<<30)
	if err != nil {
		t.Fatalf("Confine: %v", err)
	}
	if path != filepath.Join(root, "memstress", "test") {
		t.Fatalf("unexpected path %s", path)
	}

	limit, err := ReadMemoryMax(path)
	if err != nil || limit != 1<<30 {
		t.Errorf("ReadMemoryMax = %d, %v", limit, err)
	}
	procs, _ := os.ReadFile(filepath.Join(path, "cgroup.procs"))
	if string(procs) != "4242" {
		t.Errorf("unexpected cgroup.procs %q", procs)
	}
}

func TestJoinRejectsBadPID(t *testing.T) {
	withRoot(t, true)
	if err := New().Join("/nonexistent", 0); err == nil {
		t.Error("expected error for pid 0")
	}
	if err := New().Join("", 0); err != nil {
		t.Errorf("empty path should be a no-op, got %v", err)
	}
}

func TestSelfPath(t *testing.T) {
	withRoot(t, false)
	v2 := "0::/user.slice/session-1.scope\n"
	if got := selfPath(v2, 2); got != filepath.Join(Root, "/user.slice/session-1.scope") {
		t.Errorf("v2 selfPath = %q", got)
	}
	v1 := "5:cpu,cpuacct:/\n4:memory:/docker/abc\n"
	if got := selfPath(v1, 1); got != filepath.Join(Root, "memory", "/docker/abc") {
		t.Errorf("v1 selfPath = %q", got)
	}
}
