package observer

import (
	"context"

	"go.uber.org/zap"

	"github.com/rkreddybogati/scalr/internal/domain/server"
	"github.com/rkreddybogati/scalr/internal/event"
)

// DNSManager maintains the DNS records advertising a server.
type DNSManager interface {
	RegisterServer(ctx context.Context, rec *server.Record) error
	DeregisterServer(ctx context.Context, rec *server.Record) error
}

// DNSObserver keeps DNS zones in sync with server lifecycle: records
// appear when a host comes up and disappear when it goes down.
type DNSObserver struct {
	event.NopObserver

	manager DNSManager
	logger  *zap.Logger
}

func NewDNSObserver(manager DNSManager, logger *zap.Logger) *DNSObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DNSObserver{manager: manager, logger: logger.Named("observer.dns")}
}

func (o *DNSObserver) Name() string { return "DNS" }

func (o *DNSObserver) OnHostUp(ctx context.Context, ev *event.Event) error {
	if ev.Server == nil || o.manager == nil {
		return nil
	}
	return o.manager.RegisterServer(ctx, ev.Server)
}

func (o *DNSObserver) OnHostDown(ctx context.Context, ev *event.Event) error {
	if ev.Server == nil || o.manager == nil {
		return nil
	}
	return o.manager.DeregisterServer(ctx, ev.Server)
}

func (o *DNSObserver) OnBeforeHostTerminate(ctx context.Context, ev *event.Event) error {
	if ev.Server == nil || o.manager == nil || ev.Suspended {
		return nil
	}
	// Pull the record ahead of shutdown so clients stop resolving a host
	// that is about to disappear.
	return o.manager.DeregisterServer(ctx, ev.Server)
}
