package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/psantana5/memstress/pkg/logging"
)

// Manager handles graceful shutdown.
// Cleanup functions run in reverse registration order (LIFO).
type Manager struct {
	shutdownFuncs []namedFunc
	mu            sync.Mutex
	timeout       time.Duration
	logger        *logging.Logger
	once          sync.Once
}

type namedFunc struct {
	name string
	fn   func(context.Context) error
}

// New creates a new shutdown manager
func New(timeout time.Duration, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		timeout: timeout,
		logger:  logger,
	}
}

// Register adds a named cleanup function
func (m *Manager) Register(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownFuncs = append(m.shutdownFuncs, namedFunc{name: name, fn: fn})
}

// NotifyContext returns a context cancelled on SIGINT or SIGTERM.
// The returned stop func releases the signal registration.
func (m *Manager) NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		select {
		case sig := <-sigChan:
			m.logger.Warn("Received signal, initiating shutdown", logging.Fields{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// Shutdown executes all registered cleanup functions once.
// Errors are logged and joined into the returned error.
func (m *Manager) Shutdown() error {
	var errs []error
	m.once.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		for i := len(m.shutdownFuncs) - 1; i >= 0; i-- {
			f := m.shutdownFuncs[i]
			if err := f.fn(ctx); err != nil {
				m.logger.Error("Shutdown step failed", logging.Fields{"step": f.name, "error": err.Error()})
				errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
				continue
			}
			m.logger.Debug("Shutdown step complete", logging.Fields{"step": f.name})
		}
	})

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// StopHTTPServer creates a shutdown function for http.Server
func StopHTTPServer(server interface{ Shutdown(context.Context) error }) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to stop server: %w", err)
		}
		return nil
	}
}

// CloseResource creates a shutdown function for io.Closer
func CloseResource(closer interface{ Close() error }) func(context.Context) error {
	return func(ctx context.Context) error {
		return closer.Close()
	}
}
