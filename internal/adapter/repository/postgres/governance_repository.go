package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// GovernanceModel holds one enforced policy value per environment.
type GovernanceModel struct {
	ID       int64  `gorm:"primaryKey"`
	EnvID    int64  `gorm:"index:idx_gov_lookup,unique"`
	Category string `gorm:"type:varchar(50);index:idx_gov_lookup,unique"`
	Name     string `gorm:"type:varchar(100);index:idx_gov_lookup,unique"`
	Value    string `gorm:"type:text"`
	Enforced bool   `gorm:"not null;default:false"`
}

func (GovernanceModel) TableName() string { return "governance_policies" }

// GovernanceRepository looks up enforced configuration values.
type GovernanceRepository struct {
	db *gorm.DB
}

func NewGovernanceRepository(db *gorm.DB) *GovernanceRepository {
	return &GovernanceRepository{db: db}
}

func (r *GovernanceRepository) Value(ctx context.Context, envID int64, category, name string) (string, bool, error) {
	var model GovernanceModel
	err := r.db.WithContext(ctx).
		Where("env_id = ? AND category = ? AND name = ?", envID, category, name).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return model.Value, model.Enforced, nil
}
