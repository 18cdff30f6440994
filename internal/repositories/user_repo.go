package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// AddStorageUsed 原子地增减已用空间，结果不小于 0
	AddStorageUsed(ctx context.Context, id string, delta int64) error
}

type userRepository struct {
	db *gorm.DB
}

var _ UserRepository = (*userRepository)(nil)

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		logger.Error("Create: Failed to create user", zap.String("email", user.Email), zap.Error(err))
		return fmt.Errorf("user repository: %w", err)
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrUserNotFound
		}
		logger.Error("FindByID: Failed to get user", zap.String("userID", id), zap.Error(err))
		return nil, fmt.Errorf("user repository: %w", err)
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrUserNotFound
		}
		logger.Error("FindByEmail: Failed to get user", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("user repository: %w", err)
	}
	return &user, nil
}

func (r *userRepository) AddStorageUsed(ctx context.Context, id string, delta int64) error {
	if delta == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Update("storage_used", gorm.Expr("CASE WHEN storage_used + ? < 0 THEN 0 ELSE storage_used + ? END", delta, delta))
	if result.Error != nil {
		logger.Error("AddStorageUsed: Failed to update storage usage", zap.String("userID", id), zap.Int64("delta", delta), zap.Error(result.Error))
		return fmt.Errorf("user repository: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return xerr.ErrUserNotFound
	}
	return nil
}
