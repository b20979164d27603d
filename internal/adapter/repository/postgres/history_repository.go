package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/rkreddybogati/scalr/internal/domain/server"
	"github.com/rkreddybogati/scalr/pkg/snowflake"
)

// ServerHistoryModel is the append-only launch history row.
type ServerHistoryModel struct {
	ID            int64  `gorm:"primaryKey;autoIncrement:false"`
	ServerID      string `gorm:"type:varchar(36);index"`
	EnvID         int64
	FarmID        int64  `gorm:"index"`
	FarmRoleID    int64
	Platform      string `gorm:"type:varchar(50)"`
	CloudLocation string `gorm:"type:varchar(255)"`
	ImageID       string `gorm:"type:varchar(255)"`
	LaunchedByID  string `gorm:"type:varchar(20)"`
	LaunchReason  string `gorm:"type:text"`
	LaunchedAt    time.Time
}

func (ServerHistoryModel) TableName() string { return "servers_history" }

// HistoryRepository appends launch history entries.
type HistoryRepository struct {
	db  *gorm.DB
	ids *snowflake.Node
}

func NewHistoryRepository(db *gorm.DB, ids *snowflake.Node) *HistoryRepository {
	return &HistoryRepository{db: db, ids: ids}
}

func (r *HistoryRepository) RecordLaunch(ctx context.Context, rec *server.Record) error {
	row := ServerHistoryModel{
		ID:            r.ids.GenerateID(),
		ServerID:      rec.ServerID,
		EnvID:         rec.EnvID,
		FarmID:        rec.FarmID,
		FarmRoleID:    rec.FarmRoleID,
		Platform:      rec.Platform,
		CloudLocation: rec.CloudLocation,
		ImageID:       rec.ImageID,
		LaunchedByID:  rec.Property(server.PropLaunchedByID),
		LaunchReason:  rec.Property(server.PropLaunchReason),
		LaunchedAt:    time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}
