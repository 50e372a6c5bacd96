// Package teardown runs cleanup hooks once before the process exits.
//
// A single Registry is created by the command entry point and passed to
// everything that needs to schedule cleanup. Hooks run in reverse
// registration order and never report errors to callers: the process is
// terminating, so failures are logged and skipped.
package teardown

import (
	"log/slog"
	"sync"
)

// Hook is a cleanup function.
type Hook func() error

type entry struct {
	name string
	fn   Hook
}

// Registry holds cleanup hooks. It is safe for concurrent use; Run may be
// triggered from a signal handler while the main goroutine is registering.
type Registry struct {
	mu     sync.Mutex
	hooks  []entry
	done   bool
	logger *slog.Logger
}

// New creates an empty registry. A nil logger means the default logger at
// the time hooks run.
func New(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a hook. Hooks registered after Run are executed immediately.
func (r *Registry) Register(name string, fn Hook) {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		r.runOne(entry{name: name, fn: fn})
		return
	}
	r.hooks = append(r.hooks, entry{name: name, fn: fn})
	r.mu.Unlock()
}

// Len returns the number of pending hooks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hooks)
}

// Run executes every hook once, last registered first. Subsequent calls are
// no-ops.
func (r *Registry) Run() {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.done = true
	hooks := r.hooks
	r.hooks = nil
	r.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		r.runOne(hooks[i])
	}
}

func (r *Registry) runOne(e entry) {
	logger := r.logger
	if logger == nil {
		logger = slog.Default()
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Warn("teardown hook panicked", "hook", e.name, "panic", p)
		}
	}()
	if err := e.fn(); err != nil {
		logger.Warn("teardown hook failed", "hook", e.name, "error", err)
		return
	}
	logger.Debug("teardown hook finished", "hook", e.name)
}
