package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ImageModel represents a machine image in the catalog. EnvID 0 marks a
// shared image visible to every environment.
type ImageModel struct {
	ID            int64      `gorm:"primaryKey"`
	ImageID       string     `gorm:"type:varchar(255);index:idx_images_lookup"`
	EnvID         int64      `gorm:"index:idx_images_lookup"`
	Platform      string     `gorm:"type:varchar(50)"`
	CloudLocation string     `gorm:"type:varchar(255)"`
	Name          string     `gorm:"type:varchar(255)"`
	Architecture  string     `gorm:"type:varchar(20)"`
	LastUsedAt    *time.Time `gorm:"column:dt_last_used"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (ImageModel) TableName() string { return "images" }

// ImageRegistry resolves machine images, preferring the environment's own
// copy over the shared catalog.
type ImageRegistry struct {
	db *gorm.DB
}

func NewImageRegistry(db *gorm.DB) *ImageRegistry {
	return &ImageRegistry{db: db}
}

// FindImage resolves an image by its cloud identifier. The environment's
// own registration wins; shared images (env 0) are the fallback.
func (r *ImageRegistry) FindImage(ctx context.Context, imageID string, envID int64) (*ImageModel, error) {
	var image ImageModel
	err := r.db.WithContext(ctx).
		Where("image_id = ? AND env_id = ?", imageID, envID).
		First(&image).Error
	if err == nil {
		return &image, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Where("image_id = ? AND env_id = 0", imageID).
		First(&image).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("image %s not found", imageID)
		}
		return nil, err
	}
	return &image, nil
}

// TouchLastUsed stamps when the image last launched a server.
func (r *ImageRegistry) TouchLastUsed(ctx context.Context, imageID string, envID int64, t time.Time) error {
	return r.db.WithContext(ctx).Model(&ImageModel{}).
		Where("image_id = ? AND env_id IN (0, ?)", imageID, envID).
		Update("dt_last_used", t).Error
}
