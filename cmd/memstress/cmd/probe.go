package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/psantana5/memstress/internal/probe"
)

var probeOutput string

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Report host memory capabilities",
	Long: `Detects page size, RAM, swap, mmap support and cgroup limits, then checks
the configured pass (buffers x buffer-size) against the available headroom.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().StringVarP(&probeOutput, "output", "o", "text", "Output format: text, json, yaml")
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	size, err := cfg.BufferSizeBytes()
	if err != nil {
		return err
	}

	host, err := probe.Detect()
	if err != nil {
		return fmt.Errorf("failed to probe host: %w", err)
	}

	out := cmd.OutOrStdout()
	if err := probe.Write(out, probeOutput, host); err != nil {
		return err
	}

	if probeOutput == "text" || probeOutput == "" {
		warnings := probe.Preflight(host, cfg.Buffers, size)
		if len(warnings) == 0 {
			fmt.Fprintf(out, "\nPlanned pass of %d x %s fits in available memory.\n", cfg.Buffers, cfg.BufferSize)
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "WARNING: %s\n", w)
		}
	}
	return nil
}
