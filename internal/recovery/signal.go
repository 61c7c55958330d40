//go:build unix

package recovery

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/psantana5/memstress/pkg/logging"
)

var signalNames = map[string]syscall.Signal{
	"SIGUSR1": syscall.SIGUSR1,
	"SIGUSR2": syscall.SIGUSR2,
	"SIGHUP":  syscall.SIGHUP,
	"SIGQUIT": syscall.SIGQUIT,
}

// ParseSignal resolves a signal name such as "USR1" or "SIGUSR1"
func ParseSignal(name string) (os.Signal, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasPrefix(key, "SIG") {
		key = "SIG" + key
	}
	sig, ok := signalNames[key]
	if !ok {
		return nil, fmt.Errorf("unknown recovery signal %q (want USR1, USR2, HUP or QUIT)", name)
	}
	return sig, nil
}

// NotifyOnSignal triggers c whenever one of sigs arrives, until ctx is done
// or the returned stop func is called. Signals that arrive while c is
// disarmed are logged and dropped.
func NotifyOnSignal(ctx context.Context, c *Continuation, logger *logging.Logger, sigs ...os.Signal) (stop func()) {
	if logger == nil {
		logger = logging.Discard()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, sigs...)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		for {
			select {
			case sig := <-sigChan:
				if c.Trigger(ReasonSignal) {
					logger.Info("Recovery triggered", logging.Fields{"signal": sig.String()})
				} else {
					logger.Debug("Recovery signal ignored, no allocation in progress", logging.Fields{"signal": sig.String()})
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigChan)
		cancel()
	}
}
