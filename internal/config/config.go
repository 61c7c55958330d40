// Package config loads and validates memstress settings from flags,
// MEMSTRESS_* environment variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// Completion policies for a full N-buffer pass
const (
	OnCompleteRelease = "release"
	OnCompleteHold    = "hold"
	OnCompleteExit    = "exit"
)

const (
	DefaultBuffers    = 1024
	DefaultBufferSize = "1GiB"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config is the resolved harness configuration
type Config struct {
	Buffers             int    `mapstructure:"buffers" yaml:"buffers" json:"buffers"`
	BufferSize          string `mapstructure:"buffer_size" yaml:"buffer_size" json:"buffer_size"`
	Allocator           string `mapstructure:"allocator" yaml:"allocator" json:"allocator"`
	OnComplete          string `mapstructure:"on_complete" yaml:"on_complete" json:"on_complete"`
	RecoverOnExhaustion bool   `mapstructure:"recover_on_exhaustion" yaml:"recover_on_exhaustion" json:"recover_on_exhaustion"`
	RecoverSignal       string `mapstructure:"recover_signal" yaml:"recover_signal" json:"recover_signal"`
	AllocLimit          string `mapstructure:"alloc_limit" yaml:"alloc_limit,omitempty" json:"alloc_limit,omitempty"`
	MemoryMax           string `mapstructure:"memory_max" yaml:"memory_max,omitempty" json:"memory_max,omitempty"`
	MetricsAddr         string `mapstructure:"metrics_addr" yaml:"metrics_addr,omitempty" json:"metrics_addr,omitempty"`
	MetricsTextfile     string `mapstructure:"metrics_textfile" yaml:"metrics_textfile,omitempty" json:"metrics_textfile,omitempty"`
	Summary             string `mapstructure:"summary" yaml:"summary,omitempty" json:"summary,omitempty"`
	Preflight           bool   `mapstructure:"preflight" yaml:"preflight" json:"preflight"`
	LogLevel            string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogJSON             bool   `mapstructure:"log_json" yaml:"log_json" json:"log_json"`
	LogFile             string `mapstructure:"log_file" yaml:"log_file,omitempty" json:"log_file,omitempty"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("buffers", DefaultBuffers)
	v.SetDefault("buffer_size", DefaultBufferSize)
	v.SetDefault("allocator", "auto")
	v.SetDefault("on_complete", OnCompleteRelease)
	v.SetDefault("recover_on_exhaustion", false)
	v.SetDefault("recover_signal", "SIGUSR1")
	v.SetDefault("alloc_limit", "")
	v.SetDefault("memory_max", "")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("metrics_textfile", "")
	v.SetDefault("summary", "")
	v.SetDefault("preflight", true)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_json", false)
	v.SetDefault("log_file", "")
}

// Load resolves a Config from v and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field
func (c *Config) Validate() error {
	if c.Buffers <= 0 {
		return fmt.Errorf("%w: buffers must be positive, got %d", ErrInvalid, c.Buffers)
	}
	size, err := c.BufferSizeBytes()
	if err != nil {
		return err
	}
	if size <= 0 {
		return fmt.Errorf("%w: buffer_size must be positive", ErrInvalid)
	}
	switch strings.ToLower(c.OnComplete) {
	case OnCompleteRelease, OnCompleteHold, OnCompleteExit:
	default:
		return fmt.Errorf("%w: on_complete must be release, hold or exit, got %q", ErrInvalid, c.OnComplete)
	}
	switch strings.ToLower(c.Allocator) {
	case "auto", "mmap", "heap":
	default:
		return fmt.Errorf("%w: allocator must be auto, mmap or heap, got %q", ErrInvalid, c.Allocator)
	}
	switch strings.ToLower(c.Summary) {
	case "", "table", "json", "yaml":
	default:
		return fmt.Errorf("%w: summary must be table, json or yaml, got %q", ErrInvalid, c.Summary)
	}
	if _, err := c.AllocLimitBytes(); err != nil {
		return err
	}
	if _, err := c.MemoryMaxBytes(); err != nil {
		return err
	}
	return nil
}

// BufferSizeBytes parses BufferSize ("1GiB", "512MB", "4096")
func (c *Config) BufferSizeBytes() (int, error) {
	n, err := parseSize("buffer_size", c.BufferSize)
	if err != nil {
		return 0, err
	}
	if n > uint64(maxInt) {
		return 0, fmt.Errorf("%w: buffer_size %s does not fit in memory addressing", ErrInvalid, c.BufferSize)
	}
	return int(n), nil
}

// AllocLimitBytes parses the synthetic allocator cap; 0 means none
func (c *Config) AllocLimitBytes() (int64, error) {
	n, err := parseSize("alloc_limit", c.AllocLimit)
	return int64(n), err
}

// MemoryMaxBytes parses the cgroup memory limit; 0 means none
func (c *Config) MemoryMaxBytes() (int64, error) {
	n, err := parseSize("memory_max", c.MemoryMax)
	return int64(n), err
}

const maxInt = int(^uint(0) >> 1)

func parseSize(key, raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	if n > 1<<62 {
		return 0, fmt.Errorf("%w: %s %q is too large", ErrInvalid, key, raw)
	}
	return n, nil
}
