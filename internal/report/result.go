package report

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/psantana5/memstress/pkg/logging"
)

// Outcome is how an iteration ended
type Outcome string

const (
	OutcomeCompleted   Outcome = "completed"   // full N-buffer pass
	OutcomeRecovered   Outcome = "recovered"   // recovery continuation fired
	OutcomeAborted     Outcome = "aborted"     // allocator abort path
	OutcomeInterrupted Outcome = "interrupted" // context cancelled mid-pass
)

// Result is the immutable record of one iteration. Set once, never change.
type Result struct {
	RunID      string  `json:"run_id" yaml:"run_id"`
	Iteration  uint64  `json:"iteration" yaml:"iteration"`
	Marker     uint8   `json:"marker" yaml:"marker"`
	Buffers    int     `json:"buffers" yaml:"buffers"`
	BufferSize int     `json:"buffer_size" yaml:"buffer_size"`
	Released   int     `json:"released" yaml:"released"`
	Outcome    Outcome `json:"outcome" yaml:"outcome"`
	Reason     string  `json:"reason,omitempty" yaml:"reason,omitempty"`

	StartTime time.Time     `json:"start_time" yaml:"start_time"`
	EndTime   time.Time     `json:"end_time" yaml:"end_time"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration"`
}

// NewResult creates an immutable result
func NewResult(runID string, iteration uint64, buffers, bufferSize, released int, outcome Outcome, reason string, start, end time.Time) *Result {
	return &Result{
		RunID:      runID,
		Iteration:  iteration,
		Marker:     uint8(iteration),
		Buffers:    buffers,
		BufferSize: bufferSize,
		Released:   released,
		Outcome:    outcome,
		Reason:     reason,
		StartTime:  start,
		EndTime:    end,
		Duration:   end.Sub(start),
	}
}

// Bytes returns the total bytes held at the end of the iteration
func (r *Result) Bytes() uint64 {
	return uint64(r.Buffers) * uint64(r.BufferSize)
}

// LogSummary emits a one-line summary of the iteration
func (r *Result) LogSummary(logger *logging.Logger) {
	fields := logging.Fields{
		"run_id":    r.RunID,
		"iteration": r.Iteration,
		"marker":    r.Marker,
		"buffers":   r.Buffers,
		"bytes":     humanize.IBytes(r.Bytes()),
		"released":  r.Released,
		"outcome":   string(r.Outcome),
		"runtime":   r.Duration.Round(time.Millisecond).String(),
	}
	if r.Reason != "" {
		fields["reason"] = r.Reason
	}

	if r.Outcome == OutcomeAborted {
		logger.Error("Iteration aborted", fields)
		return
	}
	logger.Info("Iteration finished", fields)
}

// Recorder receives finished iteration results
type Recorder interface {
	Record(r *Result)
}

// Recorders fans a result out to several recorders
type Recorders []Recorder

func (rs Recorders) Record(r *Result) {
	for _, rec := range rs {
		if rec != nil {
			rec.Record(r)
		}
	}
}
