package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rkreddybogati/scalr/internal/config"
	"github.com/rkreddybogati/scalr/internal/domain/server"
	"github.com/rkreddybogati/scalr/pkg/crypto"
)

// ServerModel is the database DTO with Gorm tags.
type ServerModel struct {
	ServerID      string `gorm:"primaryKey;type:varchar(36)"`
	EnvID         int64  `gorm:"index"`
	AccountID     int64  `gorm:"index"`
	FarmID        int64  `gorm:"index"`
	FarmRoleID    int64
	RoleID        int64
	Platform      string `gorm:"type:varchar(50);index:idx_servers_platform_status"`
	CloudLocation string `gorm:"type:varchar(255)"`
	ImageID       string `gorm:"type:varchar(255)"`
	Index         int    `gorm:"column:server_index"`
	Status        string `gorm:"type:varchar(50);index:idx_servers_platform_status"`

	Properties map[server.Property]string `gorm:"serializer:json;type:jsonb"`

	AddedAt   time.Time
	UpdatedAt time.Time
}

func (ServerModel) TableName() string {
	return "servers"
}

// ServerRepository persists server records. When a secrets key is
// configured, the agent shared secret is sealed with AES-GCM before it
// hits the database; domain records always carry the plaintext.
type ServerRepository struct {
	db         *gorm.DB
	secretsKey string
}

func NewServerRepository(db *gorm.DB, cfg *config.Config) *ServerRepository {
	return &ServerRepository{db: db, secretsKey: cfg.SecretsKey}
}

func (r *ServerRepository) FindByID(ctx context.Context, serverID string) (*server.Record, error) {
	var model ServerModel
	if err := r.db.WithContext(ctx).Where("server_id = ?", serverID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("server %s not found", serverID)
		}
		return nil, err
	}
	return r.toDomain(model)
}

func (r *ServerRepository) Save(ctx context.Context, rec *server.Record) error {
	model, err := r.toModel(rec)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return err
	}
	rec.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *ServerRepository) CountPending(ctx context.Context, platform string, excludeServerID string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&ServerModel{}).
		Where("platform = ? AND status = ?", platform, string(server.StatusPending))
	if excludeServerID != "" {
		query = query.Where("server_id <> ?", excludeServerID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ServerRepository) ListByStatus(ctx context.Context, statuses []server.Status, limit int) ([]*server.Record, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	values := make([]string, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, string(status))
	}

	query := r.db.WithContext(ctx).Where("status IN ?", values).Order("updated_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []ServerModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	items := make([]*server.Record, 0, len(models))
	for _, model := range models {
		rec, err := r.toDomain(model)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, nil
}

// Mappers

func (r *ServerRepository) toDomain(m ServerModel) (*server.Record, error) {
	props, err := r.unsealProperties(m.Properties)
	if err != nil {
		return nil, fmt.Errorf("server %s: %w", m.ServerID, err)
	}
	return &server.Record{
		ServerID:      m.ServerID,
		EnvID:         m.EnvID,
		AccountID:     m.AccountID,
		FarmID:        m.FarmID,
		FarmRoleID:    m.FarmRoleID,
		RoleID:        m.RoleID,
		Platform:      m.Platform,
		CloudLocation: m.CloudLocation,
		ImageID:       m.ImageID,
		Index:         m.Index,
		Status:        server.Status(m.Status),
		Properties:    props,
		AddedAt:       m.AddedAt,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}

func (r *ServerRepository) toModel(rec *server.Record) (ServerModel, error) {
	props, err := r.sealProperties(rec.Properties)
	if err != nil {
		return ServerModel{}, fmt.Errorf("server %s: %w", rec.ServerID, err)
	}
	return ServerModel{
		ServerID:      rec.ServerID,
		EnvID:         rec.EnvID,
		AccountID:     rec.AccountID,
		FarmID:        rec.FarmID,
		FarmRoleID:    rec.FarmRoleID,
		RoleID:        rec.RoleID,
		Platform:      rec.Platform,
		CloudLocation: rec.CloudLocation,
		ImageID:       rec.ImageID,
		Index:         rec.Index,
		Status:        string(rec.Status),
		Properties:    props,
		AddedAt:       rec.AddedAt,
	}, nil
}

// sealProperties copies the property bag with the agent key encrypted.
// The caller's map is never mutated; the in-memory record keeps the
// plaintext the platform adapters hand to the instance.
func (r *ServerRepository) sealProperties(props map[server.Property]string) (map[server.Property]string, error) {
	key, ok := props[server.PropAgentKey]
	if r.secretsKey == "" || !ok || key == "" {
		return props, nil
	}

	sealed, err := crypto.Encrypt(key, r.secretsKey)
	if err != nil {
		return nil, fmt.Errorf("seal agent key: %w", err)
	}

	out := make(map[server.Property]string, len(props))
	for p, v := range props {
		out[p] = v
	}
	out[server.PropAgentKey] = sealed
	return out, nil
}

func (r *ServerRepository) unsealProperties(props map[server.Property]string) (map[server.Property]string, error) {
	sealed, ok := props[server.PropAgentKey]
	if r.secretsKey == "" || !ok || sealed == "" {
		return props, nil
	}

	key, err := crypto.Decrypt(sealed, r.secretsKey)
	if err != nil {
		return nil, fmt.Errorf("unseal agent key: %w", err)
	}
	props[server.PropAgentKey] = key
	return props, nil
}
