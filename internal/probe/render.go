package probe

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/psantana5/memstress/internal/report"
)

// Write renders h as text, json or yaml
func Write(w io.Writer, format string, h *Host) error {
	switch format {
	case "json":
		return report.WriteJSON(w, h)
	case "yaml":
		return report.WriteYAML(w, h)
	case "text", "table", "":
		return writeTable(w, h)
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

func writeTable(w io.Writer, h *Host) error {
	table := tablewriter.NewWriter(w)
	table.Header("Capability", "Value")

	rows := [][]string{
		{"Platform", fmt.Sprintf("%s/%s", h.OS, h.Arch)},
		{"CPU", fmt.Sprintf("%s (%d threads)", h.CPUModel, h.CPUs)},
		{"Page size", humanize.IBytes(uint64(h.PageSize))},
		{"RAM total", humanize.IBytes(h.RAMTotal)},
		{"RAM available", humanize.IBytes(h.RAMAvailable)},
		{"Swap", fmt.Sprintf("%s free of %s", humanize.IBytes(h.SwapFree), humanize.IBytes(h.SwapTotal))},
		{"mmap", yesNo(h.MmapSupported)},
	}
	if h.CgroupVersion > 0 {
		limit := "none"
		if h.MemoryLimit > 0 {
			limit = humanize.IBytes(uint64(h.MemoryLimit))
		}
		rows = append(rows,
			[]string{"cgroup", fmt.Sprintf("v%d %s", h.CgroupVersion, h.CgroupPath)},
			[]string{"cgroup memory limit", limit},
		)
	}
	rows = append(rows, []string{"Headroom", humanize.IBytes(h.Headroom())})

	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
