package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/psantana5/memstress/internal/config"
	"github.com/psantana5/memstress/pkg/logging"
)

var cfgFile string

// rootCmd runs the harness when invoked without a subcommand
var rootCmd = &cobra.Command{
	Use:   "memstress",
	Short: "Interactive large-allocation and recovery harness",
	Long: `memstress repeatedly allocates a table of large buffers, stamps every byte
with the iteration marker and, when a recovery signal arrives mid-pass,
releases the buffers filled so far and prompts again.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runHarness,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps a command error to the process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.memstress/config.yaml)")
	flags.Int("buffers", config.DefaultBuffers, "number of buffers per pass")
	flags.String("buffer-size", config.DefaultBufferSize, "size of each buffer (e.g. 1GiB, 256MB)")
	flags.String("allocator", "auto", "allocator: auto, mmap or heap")
	flags.String("on-complete", config.OnCompleteRelease, "after a full pass: release, hold or exit")
	flags.Bool("recover-on-exhaustion", false, "recover instead of aborting when the allocator runs out of memory")
	flags.String("recover-signal", "SIGUSR1", "signal that fires the recovery continuation (empty to disable)")
	flags.String("alloc-limit", "", "synthetic cap on bytes held by the harness")
	flags.String("memory-max", "", "confine the process to a cgroup with this memory limit")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9102)")
	flags.String("metrics-textfile", "", "write Prometheus metrics to this file on exit")
	flags.String("summary", "", "print per-iteration results on exit: table, json or yaml")
	flags.Bool("preflight", true, "warn when a pass cannot fit in host memory")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.Bool("log-json", false, "emit logs as JSON lines")
	flags.String("log-file", "", "also append logs to this file")

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		viper.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".memstress"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MEMSTRESS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}
}

// loadConfig resolves and validates the configuration
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// newLogger builds the process logger from cfg
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	level := logging.ParseLevel(cfg.LogLevel)
	if cfg.LogFile != "" {
		return logging.NewFileLogger(cfg.LogFile, level, cfg.LogJSON)
	}
	return logging.NewLogger(level, cfg.LogJSON), nil
}
