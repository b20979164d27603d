package server

import "context"

// Repository defines the interface for persisting server records.
type Repository interface {
	// FindByID retrieves a server record by its server ID.
	FindByID(ctx context.Context, serverID string) (*Record, error)

	// Save persists a record (create or update).
	Save(ctx context.Context, record *Record) error

	// CountPending counts servers in Pending status on a platform,
	// excluding the given server ID. Used for admission control.
	CountPending(ctx context.Context, platform string, excludeServerID string) (int64, error)

	// ListByStatus retrieves records matching any of the provided statuses.
	ListByStatus(ctx context.Context, statuses []Status, limit int) ([]*Record, error)
}
