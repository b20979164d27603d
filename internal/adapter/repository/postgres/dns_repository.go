package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/rkreddybogati/scalr/internal/domain/server"
)

// DNSRecordModel is one zone record advertising a running server. Zone
// synchronization to the actual nameservers runs out of band from this
// table.
type DNSRecordModel struct {
	ID        int64  `gorm:"primaryKey"`
	FarmID    int64  `gorm:"index"`
	ServerID  string `gorm:"type:varchar(36);uniqueIndex"`
	Hostname  string `gorm:"type:varchar(255)"`
	CreatedAt time.Time
}

func (DNSRecordModel) TableName() string { return "dns_records" }

// DNSRepository keeps the zone record table in sync with server lifecycle.
type DNSRepository struct {
	db *gorm.DB
}

func NewDNSRepository(db *gorm.DB) *DNSRepository {
	return &DNSRepository{db: db}
}

func (r *DNSRepository) RegisterServer(ctx context.Context, rec *server.Record) error {
	row := DNSRecordModel{
		FarmID:   rec.FarmID,
		ServerID: rec.ServerID,
		Hostname: rec.Property(server.PropHostname),
	}
	// Re-registration after a resume replaces the old record.
	return r.db.WithContext(ctx).
		Where("server_id = ?", rec.ServerID).
		Assign(map[string]any{"hostname": row.Hostname, "farm_id": row.FarmID}).
		FirstOrCreate(&row).Error
}

func (r *DNSRepository) DeregisterServer(ctx context.Context, rec *server.Record) error {
	return r.db.WithContext(ctx).
		Where("server_id = ?", rec.ServerID).
		Delete(&DNSRecordModel{}).Error
}
