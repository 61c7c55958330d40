//go:build unix

package recovery

import (
	"context"
	"syscall"
	"testing"
	"time"
)

func TestParseSignal(t *testing.T) {
	tests := []struct {
		name    string
		want    syscall.Signal
		wantErr bool
	}{
		{"SIGUSR1", syscall.SIGUSR1, false},
		{"usr2", syscall.SIGUSR2, false},
		{" hup ", syscall.SIGHUP, false},
		{"SIGKILL", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSignal(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSignal(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseSignal(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestNotifyOnSignal(t *testing.T) {
	c := New()
	c.Arm()

	stop := NotifyOnSignal(context.Background(), c, nil, syscall.SIGUSR2)
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR2); err != nil {
		t.Fatalf("kill: %v", err)
	}

	select {
	case <-c.Triggered():
	case <-time.After(2 * time.Second):
		t.Fatal("signal did not trigger the continuation")
	}
	if c.Reason() != ReasonSignal {
		t.Errorf("expected reason %q, got %q", ReasonSignal, c.Reason())
	}
}
