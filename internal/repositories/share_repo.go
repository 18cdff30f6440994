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

type ShareRepository interface {
	Create(ctx context.Context, share *models.Share) error
	FindByToken(ctx context.Context, token string) (*models.Share, error)
	FindByID(ctx context.Context, userID, id string) (*models.Share, error)
	ListByTarget(ctx context.Context, userID string, target models.ShareTarget) ([]models.Share, error)
	Delete(ctx context.Context, share *models.Share) error
	// IncrementDownloadCount 原子加一并返回新的计数
	IncrementDownloadCount(ctx context.Context, share *models.Share) (int64, error)
}

type shareRepository struct {
	db *gorm.DB
}

var _ ShareRepository = (*shareRepository)(nil)

// NewShareRepository 创建新的shareRepository实例
func NewShareRepository(db *gorm.DB) ShareRepository {
	return &shareRepository{db: db}
}

func (r *shareRepository) Create(ctx context.Context, share *models.Share) error {
	if err := r.db.WithContext(ctx).Create(share).Error; err != nil {
		logger.Error("Create: Failed to create share", zap.String("userID", share.UserID), zap.Error(err))
		return fmt.Errorf("share repository: %w", err)
	}
	return nil
}

func (r *shareRepository) FindByToken(ctx context.Context, token string) (*models.Share, error) {
	var share models.Share
	err := r.db.WithContext(ctx).Where("share_token = ?", token).First(&share).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrShareNotFound
		}
		logger.Error("FindByToken: Failed to query share", zap.Error(err))
		return nil, fmt.Errorf("share repository: %w", err)
	}
	return &share, nil
}

func (r *shareRepository) FindByID(ctx context.Context, userID, id string) (*models.Share, error) {
	var share models.Share
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&share).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrShareNotFound
		}
		logger.Error("FindByID: Failed to query share", zap.String("shareID", id), zap.Error(err))
		return nil, fmt.Errorf("share repository: %w", err)
	}
	return &share, nil
}

func (r *shareRepository) ListByTarget(ctx context.Context, userID string, target models.ShareTarget) ([]models.Share, error) {
	var shares []models.Share
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	switch target.Kind {
	case models.TargetFile:
		q = q.Where("file_id = ?", target.ID)
	case models.TargetFolder:
		q = q.Where("folder_id = ?", target.ID)
	default:
		return nil, xerr.ErrInvalidParams
	}
	if err := q.Order("created_at DESC").Find(&shares).Error; err != nil {
		return nil, fmt.Errorf("share repository: %w", err)
	}
	return shares, nil
}

func (r *shareRepository) Delete(ctx context.Context, share *models.Share) error {
	result := r.db.WithContext(ctx).Where("id = ?", share.ID).Delete(&models.Share{})
	if result.Error != nil {
		logger.Error("Delete: Failed to delete share", zap.String("shareID", share.ID), zap.Error(result.Error))
		return fmt.Errorf("share repository: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return xerr.ErrShareNotFound
	}
	return nil
}

func (r *shareRepository) IncrementDownloadCount(ctx context.Context, share *models.Share) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Share{}).Where("id = ?", share.ID).
			UpdateColumn("download_count", gorm.Expr("download_count + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return xerr.ErrShareNotFound
		}
		return tx.Model(&models.Share{}).Where("id = ?", share.ID).Pluck("download_count", &count).Error
	})
	if err != nil {
		if errors.Is(err, xerr.ErrShareNotFound) {
			return 0, err
		}
		logger.Error("IncrementDownloadCount: Failed to update download count", zap.String("shareID", share.ID), zap.Error(err))
		return 0, fmt.Errorf("share repository: %w", err)
	}
	return count, nil
}
