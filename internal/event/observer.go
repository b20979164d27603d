package event

import "context"

// Observer is notified of every lifecycle event, one handler per kind.
// Handlers that do not care about a kind are no-ops; embedding NopObserver
// gives a full no-op base.
type Observer interface {
	// Name identifies the observer in logs and dispatch summaries.
	Name() string

	OnHostInit(ctx context.Context, ev *Event) error
	OnBeforeHostUp(ctx context.Context, ev *Event) error
	OnHostUp(ctx context.Context, ev *Event) error
	OnHostDown(ctx context.Context, ev *Event) error
	OnBeforeHostTerminate(ctx context.Context, ev *Event) error
	OnBeforeInstanceLaunch(ctx context.Context, ev *Event) error
	OnInstanceLaunchFailed(ctx context.Context, ev *Event) error
	OnResumeComplete(ctx context.Context, ev *Event) error

	// OnCustomEvent receives every custom event regardless of its name.
	OnCustomEvent(ctx context.Context, ev *Event) error
}

// Reinitializer is implemented by observers holding stateful connections
// that must be rebuilt after a worker process forks.
type Reinitializer interface {
	Reinit() error
}

// NopObserver is a no-op implementation of every handler. Concrete
// observers embed it and override the kinds they care about.
type NopObserver struct{}

func (NopObserver) OnHostInit(context.Context, *Event) error             { return nil }
func (NopObserver) OnBeforeHostUp(context.Context, *Event) error         { return nil }
func (NopObserver) OnHostUp(context.Context, *Event) error               { return nil }
func (NopObserver) OnHostDown(context.Context, *Event) error             { return nil }
func (NopObserver) OnBeforeHostTerminate(context.Context, *Event) error  { return nil }
func (NopObserver) OnBeforeInstanceLaunch(context.Context, *Event) error { return nil }
func (NopObserver) OnInstanceLaunchFailed(context.Context, *Event) error { return nil }
func (NopObserver) OnResumeComplete(context.Context, *Event) error       { return nil }
func (NopObserver) OnCustomEvent(context.Context, *Event) error          { return nil }

// invoke routes an event to the observer handler matching its kind. Custom
// events all route to the generic custom handler.
func invoke(ctx context.Context, obs Observer, ev *Event) error {
	if ev.IsCustom() {
		return obs.OnCustomEvent(ctx, ev)
	}

	switch ev.Kind {
	case KindHostInit:
		return obs.OnHostInit(ctx, ev)
	case KindBeforeHostUp:
		return obs.OnBeforeHostUp(ctx, ev)
	case KindHostUp:
		return obs.OnHostUp(ctx, ev)
	case KindHostDown:
		return obs.OnHostDown(ctx, ev)
	case KindBeforeHostTerminate:
		return obs.OnBeforeHostTerminate(ctx, ev)
	case KindBeforeInstanceLaunch:
		return obs.OnBeforeInstanceLaunch(ctx, ev)
	case KindInstanceLaunchFailed:
		return obs.OnInstanceLaunchFailed(ctx, ev)
	case KindResumeComplete:
		return obs.OnResumeComplete(ctx, ev)
	default:
		return obs.OnCustomEvent(ctx, ev)
	}
}
