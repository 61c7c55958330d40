package cgroups

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Root is the cgroup filesystem mount point
var Root = "/sys/fs/cgroup"

// Version returns detected cgroup version (1 or 2)
func Version() int {
	if _, err := os.Stat(filepath.Join(Root, "cgroup.controllers")); err == nil {
		return 2
	}
	return 1
}

// WriteMemoryMax writes memory.max (v2) or memory.limit_in_bytes (v1).
// A zero limit is a no-op.
func WriteMemoryMax(cgroupPath string, bytes int64) error {
	if bytes < 0 {
		return fmt.Errorf("invalid memory limit: %d", bytes)
	}
	if bytes == 0 || cgroupPath == "" {
		return nil
	}

	file := "memory.limit_in_bytes"
	if Version() == 2 {
		file = "memory.max"
	}
	return os.WriteFile(filepath.Join(cgroupPath, file), []byte(strconv.FormatInt(bytes, 10)), 0644)
}

// WriteSwapMax disables or caps swap for the cgroup (v2 only).
// Without it a memory.max limit just pushes the harness into swap.
func WriteSwapMax(cgroupPath string, bytes int64) error {
	if cgroupPath == "" || Version() != 2 {
		return nil
	}
	return os.WriteFile(filepath.Join(cgroupPath, "memory.swap.max"), []byte(strconv.FormatInt(bytes, 10)), 0644)
}

// ReadMemoryMax reads the memory limit of cgroupPath.
// It returns 0 when the cgroup is unlimited.
func ReadMemoryMax(cgroupPath string) (int64, error) {
	file := "memory.limit_in_bytes"
	if Version() == 2 {
		file = "memory.max"
	}
	data, err := os.ReadFile(filepath.Join(cgroupPath, file))
	if err != nil {
		return 0, err
	}
	return parseLimit(string(data))
}

func parseLimit(raw string) (int64, error) {
	value := strings.TrimSpace(raw)
	if value == "max" || value == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory limit %q: %w", value, err)
	}
	// v1 reports "unlimited" as a page-rounded max int64
	if n >= 1<<62 {
		return 0, nil
	}
	return n, nil
}

// Self returns the cgroup path of the current process, or "" if unknown
func Self() string {
	data, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return ""
	}
	return selfPath(string(data), Version())
}

func selfPath(procCgroup string, version int) string {
	for _, line := range strings.Split(procCgroup, "\n") {
		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 {
			continue
		}
		if version == 2 && parts[0] == "0" {
			return filepath.Join(Root, parts[2])
		}
		if version == 1 && strings.Contains(","+parts[1]+",", ",memory,") {
			return filepath.Join(Root, "memory", parts[2])
		}
	}
	return ""
}
