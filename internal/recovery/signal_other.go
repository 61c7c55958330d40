//go:build !unix

package recovery

import (
	"context"
	"fmt"
	"os"

	"github.com/psantana5/memstress/pkg/logging"
)

// ParseSignal always fails with ErrUnsupported: recovery signals need a unix host
func ParseSignal(name string) (os.Signal, error) {
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, name)
}

// NotifyOnSignal is a no-op on platforms without user signals
func NotifyOnSignal(ctx context.Context, c *Continuation, logger *logging.Logger, sigs ...os.Signal) (stop func()) {
	return func() {}
}
