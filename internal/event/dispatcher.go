package event

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DispatchError wraps the failure of a single observer handler. Dispatch is
// fail-fast: the first failing observer aborts the remaining ones and the
// caller decides whether the triggering operation is fatal.
type DispatchError struct {
	Observer string
	Kind     Kind
	Err      error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s to observer %s: %v", e.Kind, e.Observer, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Dispatcher fires events at every registered observer in attach order.
type Dispatcher struct {
	registry *Registry
	logger   *zap.Logger
}

func NewDispatcher(registry *Registry, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logger.Named("event.dispatcher"),
	}
}

// Fire invokes every observer's handler for the event's kind, sequentially
// in attach order, recording per-observer elapsed time into the event's
// summary. The first handler error aborts dispatch; observers already run
// are not re-run and later observers never run. The summary holds the
// timings of whatever did run.
func (d *Dispatcher) Fire(ctx context.Context, farmID int64, ev *Event) error {
	if err := d.registry.EnsureInitialized(); err != nil {
		return err
	}

	ev.FarmID = farmID

	handled := make(map[string]time.Duration)
	defer func() {
		ev.HandledObservers = handled
	}()

	for _, obs := range d.registry.Observers() {
		start := time.Now()

		d.logger.Info(fmt.Sprintf("Event %s. Observer: %s", ev.Name(), obs.Name()))

		if err := invoke(ctx, obs, ev); err != nil {
			firedTotal.WithLabelValues(string(ev.Kind), "error").Inc()
			d.logger.Error("observer_handler_failed",
				zap.String("observer", obs.Name()),
				zap.String("event", string(ev.Kind)),
				zap.String("event_id", ev.ID),
				zap.Error(err),
			)
			return &DispatchError{Observer: obs.Name(), Kind: ev.Kind, Err: err}
		}

		elapsed := time.Since(start)
		handled[obs.Name()] = elapsed
		observerDuration.WithLabelValues(obs.Name(), string(ev.Kind)).Observe(elapsed.Seconds())
	}

	firedTotal.WithLabelValues(string(ev.Kind), "ok").Inc()
	return nil
}
