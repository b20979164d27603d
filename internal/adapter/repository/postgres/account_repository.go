package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rkreddybogati/scalr/internal/domain/account"
	"github.com/rkreddybogati/scalr/internal/domain/server"
)

type AccountModel struct {
	ID          int64  `gorm:"primaryKey"`
	Name        string `gorm:"type:varchar(255)"`
	ServerLimit int
}

func (AccountModel) TableName() string { return "accounts" }

type UserModel struct {
	ID    int64  `gorm:"primaryKey"`
	Email string `gorm:"type:varchar(255)"`
}

func (UserModel) TableName() string { return "users" }

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) ByID(ctx context.Context, id int64) (*account.Account, error) {
	var model AccountModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account %d not found", id)
		}
		return nil, err
	}
	return &account.Account{
		ID:          model.ID,
		Name:        model.Name,
		ServerLimit: model.ServerLimit,
	}, nil
}

func (r *AccountRepository) ActiveServerCount(ctx context.Context, accountID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ServerModel{}).
		Where("account_id = ? AND status <> ?", accountID, string(server.StatusTerminated)).
		Count(&count).Error
	return count, err
}

// UserRepository resolves launch attribution identities.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) ByID(ctx context.Context, id int64) (*account.User, error) {
	var model UserModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d not found", id)
		}
		return nil, err
	}
	return &account.User{ID: model.ID, Email: model.Email}, nil
}
