package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/psantana5/memstress/internal/alloc"
	"github.com/psantana5/memstress/internal/cgroups"
	"github.com/psantana5/memstress/internal/config"
	"github.com/psantana5/memstress/internal/harness"
	"github.com/psantana5/memstress/internal/probe"
	"github.com/psantana5/memstress/internal/recovery"
	"github.com/psantana5/memstress/internal/report"
	"github.com/psantana5/memstress/pkg/logging"
	"github.com/psantana5/memstress/pkg/shutdown"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the allocation harness (default command)",
	Long: `Prompts "continue? " on stdout. Replying with a line starting with "y"
allocates the configured number of buffers, stamping each with the iteration
marker and printing its index on stderr. Sending the recovery signal
(SIGUSR1 by default) during a pass releases the buffers filled so far and
returns to the prompt. Any other reply exits.`,
	RunE: runHarness,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runHarness(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger = logger.WithField("run_id", runID)

	shut := shutdown.New(10*time.Second, logger)
	shut.Register("logger", shutdown.CloseResource(logger))
	defer shut.Shutdown()

	ctx, stop := shut.NotifyContext(cmd.Context())
	defer stop()

	bufferSize, err := cfg.BufferSizeBytes()
	if err != nil {
		return err
	}

	if cfg.Preflight {
		preflight(cfg.Buffers, bufferSize, logger)
	}

	if err := confine(cfg, runID, shut, logger); err != nil {
		return err
	}

	allocator, err := newAllocator(cfg)
	if err != nil {
		return err
	}

	metrics := report.NewMetrics()
	metrics.TrackAllocator(allocator)
	history := report.NewHistory(0)
	if err := startMetrics(cfg, metrics, history, shut, logger); err != nil {
		return err
	}

	cont := recovery.New()
	stopSignals, err := watchRecoverySignal(ctx, cfg.RecoverSignal, cont, logger)
	if err != nil {
		return err
	}
	defer stopSignals()

	h, err := harness.New(harness.Options{
		Buffers:             cfg.Buffers,
		BufferSize:          bufferSize,
		OnComplete:          cfg.OnComplete,
		RecoverOnExhaustion: cfg.RecoverOnExhaustion,
		RunID:               runID,
		Continuation:        cont,
		Logger:              logger,
		Metrics:             metrics,
		Recorder:            report.Recorders{history, metrics},
	}, allocator, harness.Streams{
		In:   os.Stdin,
		Out:  os.Stdout,
		Diag: os.Stderr,
	})
	if err != nil {
		return err
	}

	logger.Info("Harness starting", logging.Fields{
		"allocator":   allocator.Name(),
		"buffers":     cfg.Buffers,
		"buffer_size": cfg.BufferSize,
		"on_complete": cfg.OnComplete,
	})

	runErr := h.Run(ctx)

	if cfg.Summary != "" && history.Len() > 0 {
		if err := report.Write(os.Stderr, strings.ToLower(cfg.Summary), history.Snapshot()); err != nil {
			logger.Warn("Failed to render summary", logging.Fields{"error": err.Error()})
		}
	}

	return runErr
}

// preflight logs a warning for every way the planned pass exceeds the host
func preflight(buffers, bufferSize int, logger *logging.Logger) {
	host, err := probe.Detect()
	if err != nil {
		logger.Debug("Preflight skipped", logging.Fields{"error": err.Error()})
		return
	}
	for _, warning := range probe.Preflight(host, buffers, bufferSize) {
		logger.Warn("Preflight: " + warning)
	}
}

// confine moves the process into a memory-limited cgroup when configured.
// Hosts without a writable cgroup hierarchy run unconfined.
func confine(cfg *config.Config, runID string, shut *shutdown.Manager, logger *logging.Logger) error {
	limit, err := cfg.MemoryMaxBytes()
	if err != nil || limit == 0 {
		return err
	}

	mgr := cgroups.New()
	parent := cgroups.Self()
	pid := os.Getpid()

	path, err := mgr.Confine(runID, pid, limit)
	if err != nil {
		return fmt.Errorf("failed to confine process: %w", err)
	}
	if path == "" {
		logger.Warn("cgroup hierarchy not writable, running without memory limit")
		return nil
	}

	logger.Info("Confined to cgroup", logging.Fields{"path": path, "memory_max": cfg.MemoryMax})
	shut.Register("cgroup", func(ctx context.Context) error {
		if err := mgr.Leave(parent, pid); err != nil {
			return err
		}
		return mgr.Delete(path)
	})
	return nil
}

// watchRecoverySignal routes the configured signal to cont. An empty name
// disables it. Hosts without user signals run without one and say so.
func watchRecoverySignal(ctx context.Context, name string, cont *recovery.Continuation, logger *logging.Logger) (stop func(), err error) {
	if name == "" {
		return func() {}, nil
	}
	sig, err := recovery.ParseSignal(name)
	if errors.Is(err, recovery.ErrUnsupported) {
		logger.Warn("Recovery signal unavailable on this platform, continuing without it", logging.Fields{"signal": name})
		return func() {}, nil
	}
	if err != nil {
		return nil, err
	}
	return recovery.NotifyOnSignal(ctx, cont, logger, sig), nil
}

// newAllocator builds the configured allocator wrapped with accounting
func newAllocator(cfg *config.Config) (*alloc.Tracked, error) {
	inner, err := alloc.New(cfg.Allocator)
	if err != nil {
		return nil, err
	}
	limit, err := cfg.AllocLimitBytes()
	if err != nil {
		return nil, err
	}
	return alloc.NewTracked(inner, limit), nil
}

// startMetrics starts the metrics endpoint and textfile dump when configured
func startMetrics(cfg *config.Config, metrics *report.Metrics, history *report.History, shut *shutdown.Manager, logger *logging.Logger) error {
	if cfg.MetricsAddr != "" {
		srv := report.NewServer(cfg.MetricsAddr, metrics, history, logger)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		shut.Register("metrics server", shutdown.StopHTTPServer(srv.HTTPServer()))
	}

	if cfg.MetricsTextfile != "" {
		path := cfg.MetricsTextfile
		shut.Register("metrics textfile", func(ctx context.Context) error {
			return report.WriteTextfile(path, metrics.Registry())
		})
	}
	return nil
}
