package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/psantana5/memstress/internal/alloc"
	"github.com/psantana5/memstress/internal/config"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"cancelled", fmt.Errorf("run: %w", context.Canceled), 130},
		{"abort", &alloc.AbortError{Size: 1, Err: alloc.ErrExhausted}, 1},
		{"other", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestConfigShowJSON(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MEMSTRESS_ON_COMPLETE", "hold")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "show", "-o", "json", "--buffers", "8", "--buffer-size", "16MiB"})
	defer rootCmd.SetArgs(nil)

	if err := Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var cfg config.Config
	if err := json.Unmarshal(out.Bytes(), &cfg); err != nil {
		t.Fatalf("invalid JSON %q: %v", out.String(), err)
	}
	if cfg.Buffers != 8 || cfg.BufferSize != "16MiB" {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.OnComplete != config.OnCompleteHold {
		t.Errorf("environment not applied: on_complete=%q", cfg.OnComplete)
	}
	if cfg.RecoverSignal != "SIGUSR1" {
		t.Errorf("default not applied: recover_signal=%q", cfg.RecoverSignal)
	}
}
