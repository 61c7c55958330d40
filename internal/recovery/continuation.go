// Package recovery provides the recovery continuation used by the harness.
//
// A Continuation is armed before allocation begins and disarmed once the
// allocation scope returns. While armed, any goroutine may Trigger it; the
// allocation loop observes the trigger between buffer installations and
// unwinds to the prompt. Triggers against a disarmed continuation are
// dropped, so a stale trigger can never resume a scope that has returned.
package recovery

import (
	"errors"
	"sync"
)

// ErrUnsupported is returned by ParseSignal on hosts without user signals
var ErrUnsupported = errors.New("recovery signals not supported on this platform")

// Reason describes what fired a continuation
type Reason string

const (
	ReasonManual     Reason = "manual"
	ReasonSignal     Reason = "signal"
	ReasonExhaustion Reason = "exhaustion"
)

// Continuation is a one-shot cancellation token that can be re-armed.
type Continuation struct {
	mu        sync.Mutex
	armed     bool
	done      chan struct{}
	reason    Reason
	triggered bool
}

// New creates a disarmed continuation
func New() *Continuation {
	return &Continuation{done: make(chan struct{})}
}

// Arm establishes the continuation. Any earlier trigger is forgotten.
func (c *Continuation) Arm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed = true
	c.triggered = false
	c.reason = ""
	c.done = make(chan struct{})
}

// Disarm ends the capturing scope. Later triggers are ignored.
func (c *Continuation) Disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed = false
}

// Armed reports whether the continuation may currently be triggered
func (c *Continuation) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Trigger fires the continuation. It returns false if the continuation is
// disarmed or already fired.
func (c *Continuation) Trigger(reason Reason) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.armed || c.triggered {
		return false
	}
	c.triggered = true
	c.reason = reason
	close(c.done)
	return true
}

// Triggered returns a channel closed when the current arming fires
func (c *Continuation) Triggered() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Fired reports whether the current arming has been triggered
func (c *Continuation) Fired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.triggered
}

// Reason returns why the current arming fired, or "" if it has not
func (c *Continuation) Reason() Reason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}
