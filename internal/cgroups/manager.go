package cgroups

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Manager handles cgroup lifecycle only: create, join, delete.
type Manager struct {
	version int
}

// New creates a cgroup manager
func New() *Manager {
	return &Manager{
		version: Version(),
	}
}

// Create creates memstress/<name> and returns its path.
// It returns an empty path, not an error, when the hierarchy is not writable.
func (m *Manager) Create(name string) (string, error) {
	if name == "" {
		name = fmt.Sprintf("run-%d", os.Getpid())
	}

	path := filepath.Join(Root, "memstress", name)
	if m.version == 1 {
		path = filepath.Join(Root, "memory", "memstress", name)
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		if os.IsPermission(err) || os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return path, nil
}

// Join moves a PID into the cgroup
func (m *Manager) Join(cgroupPath string, pid int) error {
	if cgroupPath == "" {
		return nil
	}
	if pid <= 0 {
		return fmt.Errorf("invalid pid: %d", pid)
	}
	return os.WriteFile(filepath.Join(cgroupPath, "cgroup.procs"), []byte(strconv.Itoa(pid)), 0644)
}

// Delete removes the cgroup directory. The cgroup must be empty.
func (m *Manager) Delete(cgroupPath string) error {
	if cgroupPath == "" {
		return nil
	}
	return os.Remove(cgroupPath)
}

// Confine creates a cgroup named name with a memory limit and moves pid
// into it. It returns the cgroup path, or "" if cgroups are unavailable.
func (m *Manager) Confine(name string, pid int, memoryMax int64) (string, error) {
	path, err := m.Create(name)
	if err != nil || path == "" {
		return "", err
	}
	if err := WriteMemoryMax(path, memoryMax); err != nil {
		m.Delete(path)
		return "", fmt.Errorf("set memory limit: %w", err)
	}
	// best effort: not every kernel exposes swap accounting
	WriteSwapMax(path, 0)
	if err := m.Join(path, pid); err != nil {
		m.Delete(path)
		return "", fmt.Errorf("join cgroup: %w", err)
	}
	return path, nil
}

// Leave moves pid back to parentPath so the cgroup can be deleted
func (m *Manager) Leave(parentPath string, pid int) error {
	return m.Join(parentPath, pid)
}
