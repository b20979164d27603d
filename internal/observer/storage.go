package observer

import (
	"context"

	"go.uber.org/zap"

	"github.com/rkreddybogati/scalr/internal/domain/farm"
	"github.com/rkreddybogati/scalr/internal/event"
)

// StorageObserver attaches the volume layout to termination events so the
// agent can detach cleanly, and releases server storage after shutdown.
type StorageObserver struct {
	event.NopObserver

	storage farm.Storage
	logger  *zap.Logger
}

func NewStorageObserver(storage farm.Storage, logger *zap.Logger) *StorageObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StorageObserver{storage: storage, logger: logger.Named("observer.storage")}
}

func (o *StorageObserver) Name() string { return "Storage" }

func (o *StorageObserver) OnBeforeHostTerminate(ctx context.Context, ev *event.Event) error {
	if ev.Server == nil || o.storage == nil {
		return nil
	}
	volumes, err := o.storage.VolumeConfigs(ctx, ev.Server, false)
	if err != nil {
		// A missing volume layout must not block termination.
		o.logger.Warn("cannot_resolve_volumes",
			zap.String("server_id", ev.Server.ServerID),
			zap.Error(err))
		return nil
	}
	ev.Volumes = volumes
	return nil
}

func (o *StorageObserver) OnHostDown(ctx context.Context, ev *event.Event) error {
	if ev.Server == nil || o.storage == nil || ev.Suspended {
		return nil
	}
	if err := o.storage.Release(ctx, ev.Server); err != nil {
		o.logger.Warn("cannot_release_storage",
			zap.String("server_id", ev.Server.ServerID),
			zap.Error(err))
	}
	return nil
}
