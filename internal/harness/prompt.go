package harness

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/psantana5/memstress/pkg/logging"
)

// affirmative is the leading character that continues the loop
const affirmative = 'y'

const (
	promptText    = "continue? "
	exitNotice    = "exiting ..."
	allocNotice   = "allocating ..."
	reclaimNotice = "freed up memory for next iteration"
)

type lineResult struct {
	line string
	err  error
}

// lineReader reads operator replies on a helper goroutine so a blocked
// read does not pin the harness when its context is cancelled.
type lineReader struct {
	in      *bufio.Reader
	pending chan lineResult
}

func newLineReader(in io.Reader) *lineReader {
	return &lineReader{in: bufio.NewReader(in)}
}

func (r *lineReader) readLine(ctx context.Context) (string, error) {
	if r.pending == nil {
		ch := make(chan lineResult, 1)
		r.pending = ch
		go func() {
			line, err := r.in.ReadString('\n')
			ch <- lineResult{line: line, err: err}
		}()
	}

	select {
	case res := <-r.pending:
		r.pending = nil
		return res.line, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ask prints the prompt and reports whether the reply is affirmative.
// A read failure with no text counts as a negative reply.
func (h *Harness) ask(ctx context.Context) (bool, error) {
	fmt.Fprint(h.out, promptText)

	line, err := h.reader.readLine(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if err != nil && line == "" {
		if err != io.EOF {
			h.logger.Warn("Prompt read failed, treating as decline", logging.Fields{"error": err.Error()})
		}
		return false, nil
	}
	return strings.HasPrefix(line, string(affirmative)), nil
}
