// Package probe reports the host capabilities the harness depends on and
// checks a planned allocation pass against them.
package probe

import (
	"fmt"
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/psantana5/memstress/internal/alloc"
	"github.com/psantana5/memstress/internal/cgroups"
)

// Host describes the capabilities relevant to large allocations
type Host struct {
	OS            string `json:"os" yaml:"os"`
	Arch          string `json:"arch" yaml:"arch"`
	PageSize      int    `json:"page_size" yaml:"page_size"`
	CPUs          int    `json:"cpus" yaml:"cpus"`
	CPUModel      string `json:"cpu_model" yaml:"cpu_model"`
	RAMTotal      uint64 `json:"ram_total_bytes" yaml:"ram_total_bytes"`
	RAMAvailable  uint64 `json:"ram_available_bytes" yaml:"ram_available_bytes"`
	SwapTotal     uint64 `json:"swap_total_bytes" yaml:"swap_total_bytes"`
	SwapFree      uint64 `json:"swap_free_bytes" yaml:"swap_free_bytes"`
	MmapSupported bool   `json:"mmap_supported" yaml:"mmap_supported"`
	CgroupVersion int    `json:"cgroup_version,omitempty" yaml:"cgroup_version,omitempty"`
	CgroupPath    string `json:"cgroup_path,omitempty" yaml:"cgroup_path,omitempty"`
	MemoryLimit   int64  `json:"cgroup_memory_limit_bytes,omitempty" yaml:"cgroup_memory_limit_bytes,omitempty"`
}

// Detect probes the current host. Individual probe failures leave the
// corresponding fields zero rather than failing the whole probe.
func Detect() (*Host, error) {
	h := &Host{
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		PageSize: os.Getpagesize(),
		CPUs:     runtime.NumCPU(),
		CPUModel: "Unknown",
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory stats: %w", err)
	}
	h.RAMTotal = vm.Total
	h.RAMAvailable = vm.Available

	if swap, err := mem.SwapMemory(); err == nil {
		h.SwapTotal = swap.Total
		h.SwapFree = swap.Free
	}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 && infos[0].ModelName != "" {
		h.CPUModel = infos[0].ModelName
	}

	if _, err := alloc.NewMmap(); err == nil {
		h.MmapSupported = true
	}

	if runtime.GOOS == "linux" {
		h.CgroupVersion = cgroups.Version()
		h.CgroupPath = cgroups.Self()
		if h.CgroupPath != "" {
			if limit, err := cgroups.ReadMemoryMax(h.CgroupPath); err == nil {
				h.MemoryLimit = limit
			}
		}
	}

	return h, nil
}

// Headroom returns the bytes a pass can plausibly obtain: available RAM
// plus free swap, capped by the cgroup limit when one is set.
func (h *Host) Headroom() uint64 {
	room := h.RAMAvailable + h.SwapFree
	if h.MemoryLimit > 0 && uint64(h.MemoryLimit) < room {
		room = uint64(h.MemoryLimit)
	}
	return room
}

// Preflight returns warnings for a planned pass of n buffers of size bytes
func Preflight(h *Host, n, size int) []string {
	var warnings []string
	planned := uint64(n) * uint64(size)

	if planned > h.Headroom() {
		warnings = append(warnings, fmt.Sprintf(
			"planned pass of %d x %s = %s exceeds headroom of %s; expect exhaustion or the OOM killer",
			n, humanize.IBytes(uint64(size)), humanize.IBytes(planned), humanize.IBytes(h.Headroom())))
	}
	if h.MemoryLimit > 0 && uint64(size) > uint64(h.MemoryLimit) {
		warnings = append(warnings, fmt.Sprintf(
			"a single buffer (%s) is larger than the cgroup limit (%s)",
			humanize.IBytes(uint64(size)), humanize.IBytes(uint64(h.MemoryLimit))))
	}
	if h.PageSize > 0 && size%h.PageSize != 0 {
		warnings = append(warnings, fmt.Sprintf(
			"buffer size %d is not a multiple of the page size %d", size, h.PageSize))
	}
	return warnings
}
