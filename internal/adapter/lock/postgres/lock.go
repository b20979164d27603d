// Package postgres provides process coordination on Postgres session
// advisory locks, so background sweeps run on exactly one instance at a
// time without a separate coordination service.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/rkreddybogati/scalr/internal/config"
)

type Locker struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewLocker(cfg *config.Config, logger *zap.Logger) (*Locker, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open lock pool: %w", err)
	}
	return &Locker{pool: pool, logger: logger.Named("lock")}, nil
}

// TryAcquire takes a session advisory lock without blocking. The returned
// release func unlocks and returns the connection to the pool; the lock is
// held for as long as the underlying session lives.
func (l *Locker) TryAcquire(ctx context.Context, key int64) (func(), bool, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&locked); err != nil {
		conn.Release()
		return nil, false, err
	}
	if !locked {
		conn.Release()
		return nil, false, nil
	}

	release := func() {
		// Unlock on a background context: release must work even when the
		// caller's context is already canceled during shutdown.
		if _, err := conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", key); err != nil {
			l.logger.Warn("advisory_unlock_failed", zap.Int64("key", key), zap.Error(err))
		}
		conn.Release()
	}
	return release, true, nil
}

func (l *Locker) Close() {
	l.pool.Close()
}
