package harness

import (
	"errors"
	"testing"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		wantErr bool
	}{
		// Valid transitions
		{"Prompt to Alloc", StatePrompt, StateAlloc, false},
		{"Prompt to Done", StatePrompt, StateDone, false},
		{"Alloc to Prompt", StateAlloc, StatePrompt, false},
		{"Alloc to Recover", StateAlloc, StateRecover, false},
		{"Alloc to Done", StateAlloc, StateDone, false},
		{"Recover to Prompt", StateRecover, StatePrompt, false},

		// Invalid transitions
		{"Prompt to Recover", StatePrompt, StateRecover, true},
		{"Recover to Alloc", StateRecover, StateAlloc, true},
		{"Recover to Done", StateRecover, StateDone, true},
		{"Done to Prompt", StateDone, StatePrompt, true},
		{"Unknown source", State("paused"), StatePrompt, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTransition(%v, %v) error = %v, wantErr %v",
					tt.from, tt.to, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []State{StatePrompt, StateAlloc, StateRecover} {
		if IsTerminal(s) {
			t.Errorf("%s should not be terminal", s)
		}
	}
	if !IsTerminal(StateDone) {
		t.Error("done should be terminal")
	}
}

func TestTableDrain(t *testing.T) {
	tb := newTable(4)
	for i := 0; i < 3; i++ {
		tb.install([]byte{byte(i)})
	}

	var seen []int
	n := tb.drain(func(index int, buf []byte) {
		if int(buf[0]) != index {
			t.Errorf("buffer at %d carries %d", index, buf[0])
		}
		seen = append(seen, index)
	})

	if n != 3 || len(seen) != 3 {
		t.Fatalf("expected 3 releases, got n=%d seen=%v", n, seen)
	}
	if tb.progress() != 0 {
		t.Errorf("progress should reset, got %d", tb.progress())
	}
	if again := tb.drain(func(int, []byte) { t.Error("drained twice") }); again != 0 {
		t.Errorf("second drain released %d", again)
	}
}
