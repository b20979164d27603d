package behavior

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rkreddybogati/scalr/internal/agent"
	"github.com/rkreddybogati/scalr/internal/domain/server"
)

// Dispatcher routes agent messages and lifecycle transitions to the
// behaviors configured on a server's role. The base behavior always runs
// first so role specific behaviors can rely on the generic state it set.
type Dispatcher struct {
	registry *Registry
	deps     Deps
	logger   *zap.Logger
}

func NewDispatcher(registry *Registry, deps Deps, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		registry: registry,
		deps:     deps,
		logger:   logger.Named("behavior"),
	}
}

// ForServer instantiates the behavior chain for a server record, base
// first, then the role's behaviors in declaration order.
func (d *Dispatcher) ForServer(ctx context.Context, rec *server.Record) ([]Behavior, error) {
	role, err := d.deps.Farms.RoleByID(ctx, rec.RoleID)
	if err != nil {
		return nil, fmt.Errorf("load role %d: %w", rec.RoleID, err)
	}

	names := []string{NameBase}
	for _, name := range role.Behaviors {
		name = strings.TrimSpace(name)
		if name == "" || name == NameBase {
			continue
		}
		names = append(names, name)
	}

	chain := make([]Behavior, 0, len(names))
	for _, name := range names {
		b, err := d.registry.New(name, d.deps)
		if err != nil {
			return nil, err
		}
		chain = append(chain, b)
	}
	return chain, nil
}

// HandleMessage delivers an inbound agent message to every behavior. One
// behavior failing does not stop the rest; the first error is reported
// after the full chain ran.
func (d *Dispatcher) HandleMessage(ctx context.Context, rec *server.Record, msg agent.Message) error {
	chain, err := d.ForServer(ctx, rec)
	if err != nil {
		return err
	}

	var first error
	for _, b := range chain {
		if err := b.HandleMessage(ctx, rec, msg); err != nil {
			d.logger.Error("behavior_message_failed",
				zap.String("behavior", b.Name()),
				zap.String("message_type", msg.Type()),
				zap.String("server_id", rec.ServerID),
				zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// ExtendMessage lets every behavior layer its configuration onto an
// outbound message. Unlike inbound handling, a failure here aborts the
// chain: a partially configured message must not reach the agent.
func (d *Dispatcher) ExtendMessage(ctx context.Context, rec *server.Record, msg agent.Message) error {
	chain, err := d.ForServer(ctx, rec)
	if err != nil {
		return err
	}
	for _, b := range chain {
		if err := b.ExtendMessage(ctx, rec, msg); err != nil {
			return fmt.Errorf("behavior %s: extend %s: %w", b.Name(), msg.Type(), err)
		}
	}
	return nil
}

// Lifecycle hook kinds routed by Fire.
type Hook int

const (
	HookBeforeInstanceLaunch Hook = iota
	HookBeforeHostTerminate
	HookHostDown
)

// Fire runs one lifecycle hook across the behavior chain. Failures are
// logged and the chain continues; lifecycle side effects are best effort.
func (d *Dispatcher) Fire(ctx context.Context, hook Hook, rec *server.Record) {
	chain, err := d.ForServer(ctx, rec)
	if err != nil {
		d.logger.Error("cannot_resolve_behaviors",
			zap.String("server_id", rec.ServerID),
			zap.Error(err))
		return
	}
	for _, b := range chain {
		var err error
		switch hook {
		case HookBeforeInstanceLaunch:
			err = b.OnBeforeInstanceLaunch(ctx, rec)
		case HookBeforeHostTerminate:
			err = b.OnBeforeHostTerminate(ctx, rec)
		case HookHostDown:
			err = b.OnHostDown(ctx, rec)
		}
		if err != nil {
			d.logger.Error("behavior_hook_failed",
				zap.String("behavior", b.Name()),
				zap.String("server_id", rec.ServerID),
				zap.Error(err))
		}
	}
}
