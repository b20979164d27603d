package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/rkreddybogati/scalr/internal/domain/server"
)

// StorageVolumeModel is one persistent volume bound to a farm role, and
// optionally attached to one of its servers.
type StorageVolumeModel struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	FarmRoleID int64  `gorm:"index"`
	ServerID   string `gorm:"type:varchar(36);index"`
	Type       string `gorm:"type:varchar(50)"`
	MountPoint string `gorm:"type:varchar(255)"`
	FSType     string `gorm:"type:varchar(20)"`
	SizeGB     int
	Device     string `gorm:"type:varchar(50)"`
	Attached   bool   `gorm:"not null;default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (StorageVolumeModel) TableName() string { return "storage_volumes" }

// StorageRepository resolves and records the volume layout of servers.
type StorageRepository struct {
	db *gorm.DB
}

func NewStorageRepository(db *gorm.DB) *StorageRepository {
	return &StorageRepository{db: db}
}

// VolumeConfigs returns the volumes a server should carry. On host init the
// server inherits unattached volumes of its farm role; afterwards only the
// volumes already bound to it.
func (r *StorageRepository) VolumeConfigs(ctx context.Context, rec *server.Record, isHostInit bool) ([]server.VolumeConfig, error) {
	query := r.db.WithContext(ctx).Model(&StorageVolumeModel{})
	if isHostInit {
		query = query.Where("farm_role_id = ? AND (server_id = ? OR attached = false)",
			rec.FarmRoleID, rec.ServerID)
	} else {
		query = query.Where("server_id = ?", rec.ServerID)
	}

	var models []StorageVolumeModel
	if err := query.Order("id asc").Find(&models).Error; err != nil {
		return nil, err
	}

	volumes := make([]server.VolumeConfig, 0, len(models))
	for _, m := range models {
		volumes = append(volumes, server.VolumeConfig{
			ID:         m.ID,
			Type:       m.Type,
			MountPoint: m.MountPoint,
			FSType:     m.FSType,
			SizeGB:     m.SizeGB,
			Device:     m.Device,
		})
	}
	return volumes, nil
}

// SetVolumes binds the volumes the agent reported as attached.
func (r *StorageRepository) SetVolumes(ctx context.Context, rec *server.Record, volumes []server.VolumeConfig) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, v := range volumes {
			err := tx.Model(&StorageVolumeModel{}).
				Where("id = ?", v.ID).
				Updates(map[string]any{
					"server_id":  rec.ServerID,
					"attached":   true,
					"device":     v.Device,
					"updated_at": time.Now().UTC(),
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Release detaches all volumes of a server so a replacement can claim them.
func (r *StorageRepository) Release(ctx context.Context, rec *server.Record) error {
	return r.db.WithContext(ctx).Model(&StorageVolumeModel{}).
		Where("server_id = ?", rec.ServerID).
		Updates(map[string]any{
			"server_id":  "",
			"attached":   false,
			"updated_at": time.Now().UTC(),
		}).Error
}
