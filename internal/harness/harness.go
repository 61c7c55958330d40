// Package harness implements the interactive allocation/recovery loop.
//
// Each iteration prompts the operator, then fills a table of large buffers
// with the iteration marker. A recovery continuation armed for the duration
// of the allocation phase lets an external agent abandon the pass: the
// harness releases the populated prefix and returns to the prompt.
//
//	PROMPT --y--> ALLOC --done--> PROMPT
//	   |            |--fired--> RECOVER --> PROMPT
//	   n            `--abort/exit/cancel--> DONE
//	   `--> DONE
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/psantana5/memstress/internal/alloc"
	"github.com/psantana5/memstress/internal/config"
	"github.com/psantana5/memstress/internal/recovery"
	"github.com/psantana5/memstress/internal/report"
	"github.com/psantana5/memstress/pkg/logging"
)

// Options configures a Harness
type Options struct {
	Buffers    int
	BufferSize int
	// OnComplete is config.OnCompleteRelease, OnCompleteHold or OnCompleteExit
	OnComplete string
	// RecoverOnExhaustion fires the continuation instead of aborting when the
	// allocator runs out of memory mid-pass.
	RecoverOnExhaustion bool
	RunID               string

	Continuation *recovery.Continuation
	Logger       *logging.Logger
	Metrics      *report.Metrics
	// Recorder receives every finished pass; use report.Recorders to fan out
	Recorder     report.Recorder

	// Installed is called after each buffer joins the populated prefix
	// with the new prefix length.
	Installed func(progress int)
}

// Streams are the operator-facing streams
type Streams struct {
	In   io.Reader // operator replies
	Out  io.Writer // prompts and the exit notice
	Diag io.Writer // progress numbers and notices
}

// Harness runs the allocation loop. It is not safe for concurrent use;
// only the continuation may be touched from other goroutines.
type Harness struct {
	opts   Options
	alloc  alloc.Allocator
	cont   *recovery.Continuation
	logger *logging.Logger

	reader *lineReader
	out    io.Writer
	diag   io.Writer

	state     State
	iteration uint64
	table     *table
}

// New creates a harness
func New(opts Options, a alloc.Allocator, streams Streams) (*Harness, error) {
	if a == nil {
		return nil, errors.New("harness: allocator is required")
	}
	if opts.Buffers <= 0 {
		return nil, fmt.Errorf("harness: buffers must be positive, got %d", opts.Buffers)
	}
	if opts.BufferSize <= 0 {
		return nil, fmt.Errorf("harness: buffer size must be positive, got %d", opts.BufferSize)
	}
	opts.OnComplete = strings.ToLower(opts.OnComplete)
	switch opts.OnComplete {
	case "":
		opts.OnComplete = config.OnCompleteRelease
	case config.OnCompleteRelease, config.OnCompleteHold, config.OnCompleteExit:
	default:
		return nil, fmt.Errorf("harness: unknown completion policy %q", opts.OnComplete)
	}
	if opts.Continuation == nil {
		opts.Continuation = recovery.New()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if streams.In == nil || streams.Out == nil || streams.Diag == nil {
		return nil, errors.New("harness: in, out and diag streams are required")
	}

	return &Harness{
		opts:   opts,
		alloc:  a,
		cont:   opts.Continuation,
		logger: opts.Logger.WithField("run_id", opts.RunID),
		reader: newLineReader(streams.In),
		out:    streams.Out,
		diag:   streams.Diag,
		state:  StatePrompt,
		table:  newTable(opts.Buffers),
	}, nil
}

// Continuation returns the recovery continuation external agents trigger
func (h *Harness) Continuation() *recovery.Continuation {
	return h.cont
}

// Iteration returns the number of PROMPT->ALLOC transitions so far
func (h *Harness) Iteration() uint64 {
	return h.iteration
}

// Marker returns the stamp byte of the current iteration
func (h *Harness) Marker() byte {
	return byte(h.iteration)
}

// State returns the current state
func (h *Harness) State() State {
	return h.state
}

// Progress returns the length of the populated prefix
func (h *Harness) Progress() int {
	return h.table.progress()
}

func (h *Harness) transition(to State) error {
	if err := ValidateTransition(h.state, to); err != nil {
		return err
	}
	h.logger.Debug("State change", logging.Fields{"from": string(h.state), "to": string(to), "iteration": h.iteration})
	h.state = to
	return nil
}

// Run drives the loop until the operator declines, returning nil.
// It returns ctx.Err() on cancellation and an error matching alloc.ErrAbort
// when the allocator fails outside a recoverable pass.
func (h *Harness) Run(ctx context.Context) error {
	for {
		switch h.state {
		case StatePrompt:
			ok, err := h.ask(ctx)
			if err != nil {
				h.releaseHeld()
				return h.finish(err)
			}
			if !ok {
				fmt.Fprintln(h.out, exitNotice)
				h.releaseHeld()
				return h.finish(nil)
			}
			// Buffers held from a completed pass go before the next one starts.
			h.releaseHeld()
			h.iteration++
			if err := h.transition(StateAlloc); err != nil {
				return err
			}

		case StateAlloc:
			if err := h.runPass(ctx); err != nil {
				return err
			}
			if IsTerminal(h.state) {
				return nil
			}

		case StateRecover:
			h.table.drain(h.release)
			fmt.Fprintln(h.diag, reclaimNotice)
			if err := h.transition(StatePrompt); err != nil {
				return err
			}

		case StateDone:
			return nil

		default:
			return fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, h.state)
		}
	}
}

// finish moves to DONE and returns err
func (h *Harness) finish(err error) error {
	if terr := h.transition(StateDone); terr != nil {
		return terr
	}
	return err
}

// runPass executes one allocation phase and routes to the next state
func (h *Harness) runPass(ctx context.Context) error {
	start := time.Now()
	outcome, reason, err := h.allocate(ctx)
	progress := h.table.progress()

	record := func(released int) {
		result := report.NewResult(h.opts.RunID, h.iteration, progress, h.opts.BufferSize,
			released, outcome, reason, start, time.Now())
		result.LogSummary(h.logger)
		if h.opts.Recorder != nil {
			h.opts.Recorder.Record(result)
		}
	}

	switch outcome {
	case report.OutcomeAborted:
		// Abort path: nothing is released and no further prompt is shown.
		record(0)
		return h.finish(err)

	case report.OutcomeInterrupted:
		released := h.table.drain(h.release)
		record(released)
		return h.finish(err)

	case report.OutcomeRecovered:
		h.opts.Metrics.Recovered(reason)
		record(progress)
		return h.transition(StateRecover)

	default:
		switch h.opts.OnComplete {
		case config.OnCompleteHold:
			record(0)
			return h.transition(StatePrompt)
		case config.OnCompleteExit:
			released := h.table.drain(h.release)
			record(released)
			return h.finish(nil)
		default:
			released := h.table.drain(h.release)
			record(released)
			return h.transition(StatePrompt)
		}
	}
}

// allocate fills the table with up to N stamped buffers. The continuation
// is armed only for the duration of this call.
func (h *Harness) allocate(ctx context.Context) (report.Outcome, string, error) {
	h.cont.Arm()
	defer h.cont.Disarm()

	fmt.Fprintln(h.diag, allocNotice)
	marker := h.Marker()
	stop := func() bool {
		return h.cont.Fired() || ctx.Err() != nil
	}

	for i := 0; i < h.opts.Buffers; i++ {
		if stop() {
			break
		}

		began := time.Now()
		buf, err := h.alloc.Alloc(h.opts.BufferSize)
		if err != nil {
			// A trigger that landed during Alloc already owns the recovery.
			if h.opts.RecoverOnExhaustion && errors.Is(err, alloc.ErrExhausted) &&
				(h.cont.Trigger(recovery.ReasonExhaustion) || h.cont.Fired()) {
				h.logger.Warn("Allocator exhausted, recovering", logging.Fields{"index": i, "error": err.Error()})
				break
			}
			return report.OutcomeAborted, "", &alloc.AbortError{Size: h.opts.BufferSize, Index: i, Err: err}
		}

		if !alloc.Fill(buf, marker, stop) {
			// Partially stamped buffers never join the prefix.
			if ferr := h.alloc.Free(buf); ferr != nil {
				h.logger.Error("Failed to release partial buffer", logging.Fields{"index": i, "error": ferr.Error()})
			}
			break
		}

		h.table.install(buf)
		h.opts.Metrics.BufferAllocated(len(buf), time.Since(began))
		fmt.Fprintf(h.diag, "%d\n", i)

		if h.opts.Installed != nil {
			h.opts.Installed(h.table.progress())
		}
	}

	if err := ctx.Err(); err != nil {
		return report.OutcomeInterrupted, "cancelled", err
	}
	if h.cont.Fired() {
		return report.OutcomeRecovered, string(h.cont.Reason()), nil
	}
	return report.OutcomeCompleted, "", nil
}

// release returns one prefix entry to the allocator
func (h *Harness) release(index int, buf []byte) {
	if err := h.alloc.Free(buf); err != nil {
		h.opts.Metrics.ReleaseFailed(len(buf))
		h.logger.Error("Failed to release buffer", logging.Fields{"index": index, "error": err.Error()})
		return
	}
	h.opts.Metrics.BufferReleased(len(buf))
}

// releaseHeld drops buffers kept resident by the hold policy
func (h *Harness) releaseHeld() {
	if n := h.table.drain(h.release); n > 0 {
		h.logger.Info("Released held buffers", logging.Fields{"buffers": n})
	}
}
