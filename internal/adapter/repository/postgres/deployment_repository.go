package postgres

import (
	"context"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/rkreddybogati/scalr/internal/domain/server"
	"github.com/rkreddybogati/scalr/pkg/snowflake"
)

// DeploymentTaskModel is one pending application deployment onto a server.
type DeploymentTaskModel struct {
	ID            int64  `gorm:"primaryKey;autoIncrement:false"`
	ServerID      string `gorm:"type:varchar(36);index"`
	FarmRoleID    int64
	ApplicationID int64
	RemotePath    string `gorm:"type:text"`
	Status        string `gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (DeploymentTaskModel) TableName() string { return "deployment_tasks" }

// DeploymentRepository creates deployment tasks the agent polls for.
type DeploymentRepository struct {
	db  *gorm.DB
	ids *snowflake.Node
}

func NewDeploymentRepository(db *gorm.DB, ids *snowflake.Node) *DeploymentRepository {
	return &DeploymentRepository{db: db, ids: ids}
}

func (r *DeploymentRepository) CreateTask(ctx context.Context, rec *server.Record, applicationID int64, remotePath string) (string, error) {
	row := DeploymentTaskModel{
		ID:            r.ids.GenerateID(),
		ServerID:      rec.ServerID,
		FarmRoleID:    rec.FarmRoleID,
		ApplicationID: applicationID,
		RemotePath:    remotePath,
		Status:        "pending",
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	return strconv.FormatInt(row.ID, 10), nil
}
