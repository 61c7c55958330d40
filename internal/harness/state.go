package harness

import (
	"errors"
	"fmt"
)

// State is a harness state
type State string

const (
	StatePrompt  State = "prompt"  // waiting for the operator
	StateAlloc   State = "alloc"   // filling the buffer table
	StateRecover State = "recover" // releasing the populated prefix
	StateDone    State = "done"    // terminal
)

// ErrInvalidTransition is returned for a state change outside the table
var ErrInvalidTransition = errors.New("invalid state transition")

var validTransitions = map[State]map[State]bool{
	StatePrompt: {
		StateAlloc: true, // affirmative reply
		StateDone:  true, // negative reply, end of input, cancellation
	},
	StateAlloc: {
		StatePrompt:  true, // full pass completed (release or hold)
		StateRecover: true, // continuation fired
		StateDone:    true, // exit-on-complete, allocator abort, cancellation
	},
	StateRecover: {
		StatePrompt: true, // unconditional
	},
	StateDone: {},
}

// ValidateTransition checks if a state transition is valid
func ValidateTransition(from, to State) error {
	allowed, ok := validTransitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown source state %q", ErrInvalidTransition, from)
	}
	if !allowed[to] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// IsTerminal reports whether no further transitions are possible
func IsTerminal(s State) bool {
	return s == StateDone
}
