package observer

import (
	"context"

	"go.uber.org/zap"

	"github.com/rkreddybogati/scalr/internal/behavior"
	"github.com/rkreddybogati/scalr/internal/event"
)

// BehaviorObserver bridges lifecycle events into the behavior hooks of the
// server's role, so database and proxy behaviors can react to launches and
// shutdowns without subscribing to the event bus themselves.
type BehaviorObserver struct {
	event.NopObserver

	behaviors *behavior.Dispatcher
	logger    *zap.Logger
}

func NewBehaviorObserver(behaviors *behavior.Dispatcher, logger *zap.Logger) *BehaviorObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BehaviorObserver{behaviors: behaviors, logger: logger.Named("observer.behavior")}
}

func (o *BehaviorObserver) Name() string { return "Behavior" }

func (o *BehaviorObserver) OnBeforeInstanceLaunch(ctx context.Context, ev *event.Event) error {
	if ev.Server == nil {
		return nil
	}
	o.behaviors.Fire(ctx, behavior.HookBeforeInstanceLaunch, ev.Server)
	return nil
}

func (o *BehaviorObserver) OnBeforeHostTerminate(ctx context.Context, ev *event.Event) error {
	if ev.Server == nil {
		return nil
	}
	o.behaviors.Fire(ctx, behavior.HookBeforeHostTerminate, ev.Server)
	return nil
}

func (o *BehaviorObserver) OnHostDown(ctx context.Context, ev *event.Event) error {
	if ev.Server == nil {
		return nil
	}
	o.behaviors.Fire(ctx, behavior.HookHostDown, ev.Server)
	return nil
}
