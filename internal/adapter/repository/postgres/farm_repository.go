package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rkreddybogati/scalr/internal/domain/farm"
)

type FarmModel struct {
	ID             int64  `gorm:"primaryKey"`
	EnvID          int64  `gorm:"index"`
	AccountID      int64  `gorm:"index"`
	Name           string `gorm:"type:varchar(255)"`
	CreatedByID    int64
	CreatedByEmail string `gorm:"type:varchar(255)"`
	ProjectID      string `gorm:"type:varchar(36)"`
	CreatedAt      time.Time
}

func (FarmModel) TableName() string { return "farms" }

type RoleModel struct {
	ID         int64  `gorm:"primaryKey"`
	Name       string `gorm:"type:varchar(255)"`
	Generation int
	Behaviors  string `gorm:"type:varchar(255)"`
	LastUsedAt *time.Time
}

func (RoleModel) TableName() string { return "roles" }

type FarmRoleModel struct {
	ID       int64             `gorm:"primaryKey"`
	FarmID   int64             `gorm:"index"`
	RoleID   int64             `gorm:"index"`
	Alias    string            `gorm:"type:varchar(255)"`
	Settings map[string]string `gorm:"serializer:json;type:jsonb"`
}

func (FarmRoleModel) TableName() string { return "farm_roles" }

type FarmRepository struct {
	db *gorm.DB
}

func NewFarmRepository(db *gorm.DB) *FarmRepository {
	return &FarmRepository{db: db}
}

func (r *FarmRepository) FarmByID(ctx context.Context, id int64) (*farm.Farm, error) {
	var model FarmModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("farm %d not found", id)
		}
		return nil, err
	}
	return &farm.Farm{
		ID:             model.ID,
		EnvID:          model.EnvID,
		AccountID:      model.AccountID,
		Name:           model.Name,
		CreatedByID:    model.CreatedByID,
		CreatedByEmail: model.CreatedByEmail,
		ProjectID:      model.ProjectID,
		CreatedAt:      model.CreatedAt,
	}, nil
}

func (r *FarmRepository) RoleByID(ctx context.Context, id int64) (*farm.Role, error) {
	var model RoleModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("role %d not found", id)
		}
		return nil, err
	}

	var behaviors []string
	for _, b := range strings.Split(model.Behaviors, ",") {
		if b = strings.TrimSpace(b); b != "" {
			behaviors = append(behaviors, b)
		}
	}
	return &farm.Role{
		ID:         model.ID,
		Name:       model.Name,
		Generation: model.Generation,
		Behaviors:  behaviors,
		LastUsedAt: model.LastUsedAt,
	}, nil
}

func (r *FarmRepository) FarmRoleByID(ctx context.Context, id int64) (*farm.FarmRole, error) {
	var model FarmRoleModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("farm role %d not found", id)
		}
		return nil, err
	}
	return &farm.FarmRole{
		ID:       model.ID,
		FarmID:   model.FarmID,
		RoleID:   model.RoleID,
		Alias:    model.Alias,
		Settings: model.Settings,
	}, nil
}

func (r *FarmRepository) TouchRoleLastUsed(ctx context.Context, roleID int64, t time.Time) error {
	return r.db.WithContext(ctx).Model(&RoleModel{}).
		Where("id = ?", roleID).
		Update("last_used_at", t).Error
}
