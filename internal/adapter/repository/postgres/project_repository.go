package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ProjectModel links an analytics project to its cost center.
type ProjectModel struct {
	ProjectID    string `gorm:"primaryKey;type:varchar(36)"`
	CostCenterID string `gorm:"type:varchar(36);not null"`
	Name         string `gorm:"type:varchar(255)"`
}

func (ProjectModel) TableName() string { return "analytics_projects" }

// ProjectRepository resolves cost-center ownership of projects.
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) CostCenterID(ctx context.Context, projectID string) (string, error) {
	var model ProjectModel
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("project %s not found", projectID)
		}
		return "", err
	}
	return model.CostCenterID, nil
}
