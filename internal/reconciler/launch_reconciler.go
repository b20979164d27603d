package reconciler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rkreddybogati/scalr/internal/config"
	"github.com/rkreddybogati/scalr/internal/domain/server"
	"github.com/rkreddybogati/scalr/internal/usecase/launch"
)

// launchLockKey is the advisory lock key guarding the retry sweep so only
// one process retries pending launches at a time.
const launchLockKey = 0x5343414c52017001

// Locker serializes a named critical section across processes.
type Locker interface {
	// TryAcquire attempts to take the lock without blocking. It returns a
	// release func when the lock was taken, ok=false when another holder
	// has it.
	TryAcquire(ctx context.Context, key int64) (release func(), ok bool, err error)
}

// LaunchReconciler periodically re-drives servers parked in pending-launch
// through the launch orchestrator. Parked servers come from deliberate
// delays, admission throttling and failed platform calls; all of them are
// retried the same way until they launch or run out of attempts.
type LaunchReconciler struct {
	servers      server.Repository
	orchestrator *launch.Orchestrator
	locker       Locker
	logger       *zap.Logger
	interval     time.Duration
	batchSize    int
	maxAttempts  int
}

func NewLaunchReconciler(
	servers server.Repository,
	orchestrator *launch.Orchestrator,
	locker Locker,
	cfg *config.Config,
	logger *zap.Logger,
) *LaunchReconciler {
	return &LaunchReconciler{
		servers:      servers,
		orchestrator: orchestrator,
		locker:       locker,
		logger:       logger.Named("launch.reconciler"),
		interval:     time.Duration(cfg.LaunchRetryIntervalSec) * time.Second,
		batchSize:    cfg.LaunchRetryBatchSize,
		maxAttempts:  cfg.LaunchMaxAttempts,
	}
}

func (r *LaunchReconciler) Run(ctx context.Context) {
	if err := r.reconcile(ctx); err != nil {
		r.logger.Error("reconcile_initial_failed", zap.Error(err))
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.reconcile(ctx); err != nil {
				r.logger.Error("reconcile_failed", zap.Error(err))
			}
		}
	}
}

func (r *LaunchReconciler) reconcile(ctx context.Context) error {
	if r.locker != nil {
		release, ok, err := r.locker.TryAcquire(ctx, launchLockKey)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		defer release()
	}

	items, err := r.servers.ListByStatus(ctx, []server.Status{server.StatusPendingLaunch}, r.batchSize)
	if err != nil {
		return err
	}

	for _, rec := range items {
		r.retry(ctx, rec)
	}
	return nil
}

func (r *LaunchReconciler) retry(ctx context.Context, rec *server.Record) {
	if r.maxAttempts > 0 && rec.LaunchAttempts() >= r.maxAttempts {
		r.logger.Warn("launch_attempts_exhausted",
			zap.String("server_id", rec.ServerID),
			zap.Int("attempts", rec.LaunchAttempts()))
		return
	}

	if _, err := r.orchestrator.Launch(ctx, launch.Request{Record: rec}); err != nil {
		r.logger.Error("launch_retry_dispatch_failed",
			zap.String("server_id", rec.ServerID),
			zap.Error(err))
	}
}
