package event

import (
	"context"
	"time"

	"github.com/rkreddybogati/scalr/internal/domain/server"
	"github.com/rkreddybogati/scalr/pkg/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WebhookDispatcher fans an event out to configured webhook subscriptions
// and returns the number of delivery records created.
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, ev *Event, record *server.Record) (int, error)
}

// AuditRecord is one audit row per fired event.
type AuditRecord struct {
	ID             int64   `gorm:"primaryKey"`
	FarmID         int64   `gorm:"index;not null"`
	Type           string  `gorm:"type:varchar(100);not null"`
	Message        string  `gorm:"type:text"`
	EventID        string  `gorm:"type:varchar(36);uniqueIndex;not null"`
	EventServerID  string  `gorm:"type:varchar(36);index"`
	ElapsedSeconds float64 `gorm:"not null;default:0"`
	MsgExpected    int     `gorm:"not null;default:0"`
	MsgCreated     int     `gorm:"not null;default:0"`
	ScriptsTotal   int     `gorm:"not null;default:0"`
	Suspended      bool    `gorm:"not null;default:false"`
	WebhooksTotal  int     `gorm:"not null;default:0"`
	CreatedAt      time.Time
}

func (AuditRecord) TableName() string {
	return "events"
}

// Store persists the audit trail. Persistence is best-effort: failures are
// logged and never propagate into the triggering business operation.
type Store struct {
	db       *gorm.DB
	ids      *snowflake.Node
	webhooks WebhookDispatcher
	logger   *zap.Logger
}

func NewStore(db *gorm.DB, ids *snowflake.Node, webhooks WebhookDispatcher, logger *zap.Logger) *Store {
	return &Store{
		db:       db,
		ids:      ids,
		webhooks: webhooks,
		logger:   logger.Named("event.store"),
	}
}

// Store writes one audit row for the event and, for server-bound events
// with a farm role, runs the webhook fan-out and records the delivery count
// back onto the row. Neither step ever returns an error to the caller.
func (s *Store) Store(ctx context.Context, farmID int64, ev *Event, elapsed time.Duration) {
	row := AuditRecord{
		ID:             s.ids.GenerateID(),
		FarmID:         farmID,
		Type:           ev.Name(),
		Message:        ev.Message,
		EventID:        ev.ID,
		EventServerID:  ev.ServerID(),
		ElapsedSeconds: elapsed.Seconds(),
		MsgExpected:    ev.MsgExpected,
		MsgCreated:     ev.MsgCreated,
		ScriptsTotal:   ev.ScriptsCount,
		Suspended:      ev.Suspended,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.logger.Error("cannot_store_event",
			zap.String("event_id", ev.ID),
			zap.String("event", string(ev.Kind)),
			zap.Error(err),
		)
	}

	if ev.Server == nil || ev.Server.FarmRoleID == 0 || s.webhooks == nil {
		return
	}

	count, err := s.webhooks.Dispatch(ctx, ev, ev.Server)
	if err != nil {
		s.logger.Error("webhook_fanout_failed",
			zap.String("event_id", ev.ID),
			zap.Error(err),
		)
		return
	}

	if count > 0 {
		err := s.db.WithContext(ctx).Model(&AuditRecord{}).
			Where("event_id = ?", ev.ID).
			Update("webhooks_total", count).Error
		if err != nil {
			s.logger.Error("cannot_update_webhook_count",
				zap.String("event_id", ev.ID),
				zap.Error(err),
			)
		}
	}
}
