package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/rkreddybogati/scalr/internal/domain/server"
	"github.com/rkreddybogati/scalr/internal/globalvar"
)

// GlobalVarModel holds one variable definition at one scope. Narrower
// scopes shadow wider ones at resolution time.
type GlobalVarModel struct {
	ID         int64  `gorm:"primaryKey"`
	EnvID      int64  `gorm:"index:idx_gv_scope"`
	FarmID     int64  `gorm:"index:idx_gv_scope"`
	FarmRoleID int64  `gorm:"index:idx_gv_scope"`
	Name       string `gorm:"type:varchar(128);not null"`
	Value      string `gorm:"type:text"`
	Private    bool   `gorm:"not null;default:false"`
	System     bool   `gorm:"not null;default:false"`
}

func (GlobalVarModel) TableName() string { return "global_variables" }

// GlobalVarRepository resolves the effective variable set of a server by
// merging environment, farm and farm-role scopes, narrowest scope winning.
type GlobalVarRepository struct {
	db *gorm.DB
}

func NewGlobalVarRepository(db *gorm.DB) *GlobalVarRepository {
	return &GlobalVarRepository{db: db}
}

func (r *GlobalVarRepository) List(ctx context.Context, rec *server.Record) ([]globalvar.Variable, error) {
	var models []GlobalVarModel
	err := r.db.WithContext(ctx).
		Where("env_id = ? AND farm_id IN (0, ?) AND farm_role_id IN (0, ?)",
			rec.EnvID, rec.FarmID, rec.FarmRoleID).
		Order("farm_id asc, farm_role_id asc, name asc").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	// Later rows come from narrower scopes and shadow earlier ones.
	byName := make(map[string]globalvar.Variable, len(models))
	order := make([]string, 0, len(models))
	for _, m := range models {
		if _, seen := byName[m.Name]; !seen {
			order = append(order, m.Name)
		}
		byName[m.Name] = globalvar.Variable{
			Name:    m.Name,
			Value:   m.Value,
			Private: m.Private,
			System:  m.System,
		}
	}

	vars := make([]globalvar.Variable, 0, len(order))
	for _, name := range order {
		vars = append(vars, byName[name])
	}
	return vars, nil
}
