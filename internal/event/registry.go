package event

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrDuplicateObserver reports an attempt to attach the same observer
// instance twice. This is a configuration error and is never caught
// internally.
var ErrDuplicateObserver = errors.New("observer already attached")

// Registry holds the ordered list of attached observers. Dispatch order
// equals attach order. It is an explicit process-scoped object constructed
// once at startup and injected where needed; there is no package-level
// singleton.
type Registry struct {
	mu          sync.Mutex
	observers   []Observer
	initialized bool
	builtin     func() []Observer
	logger      *zap.Logger
}

// NewRegistry builds a registry. builtin produces the fixed built-in
// observer set attached by EnsureInitialized; it may be nil when the
// embedding code attaches everything itself.
func NewRegistry(logger *zap.Logger, builtin func() []Observer) *Registry {
	return &Registry{
		builtin: builtin,
		logger:  logger.Named("event.registry"),
	}
}

// Attach appends an observer. Attaching the same instance twice fails with
// ErrDuplicateObserver; two distinct instances never conflict.
func (r *Registry) Attach(obs Observer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attachLocked(obs)
}

func (r *Registry) attachLocked(obs Observer) error {
	for _, existing := range r.observers {
		if existing == obs {
			return fmt.Errorf("%w: %s", ErrDuplicateObserver, obs.Name())
		}
	}
	r.observers = append(r.observers, obs)
	return nil
}

// EnsureInitialized attaches the built-in observer set exactly once per
// registry lifetime. Subsequent calls are no-ops.
func (r *Registry) EnsureInitialized() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureInitializedLocked()
}

func (r *Registry) ensureInitializedLocked() error {
	if r.initialized {
		return nil
	}
	if r.builtin != nil {
		for _, obs := range r.builtin() {
			if err := r.attachLocked(obs); err != nil {
				return err
			}
		}
	}
	r.initialized = true
	return nil
}

// Reinitialize rebuilds observer state after a worker process forks. The
// built-in set is attached first if it has not been, then every observer
// exposing a re-init hook gets it called. Hook failures are logged and do
// not abort the remaining observers.
func (r *Registry) Reinitialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureInitializedLocked(); err != nil {
		return err
	}

	for _, obs := range r.observers {
		ri, ok := obs.(Reinitializer)
		if !ok {
			continue
		}
		if err := ri.Reinit(); err != nil {
			r.logger.Error("observer_reinit_failed",
				zap.String("observer", obs.Name()),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Observers returns a snapshot of the attached observers in attach order.
func (r *Registry) Observers() []Observer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Observer, len(r.observers))
	copy(out, r.observers)
	return out
}
