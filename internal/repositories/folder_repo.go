package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FolderRepository 目录数据访问层
// 所有查询都带 userID，不属于该用户的目录等同于不存在
type FolderRepository interface {
	WithTx(tx *gorm.DB) FolderRepository

	Create(ctx context.Context, folder *models.Folder) error
	// FindByID 不区分是否已删除
	FindByID(ctx context.Context, userID, id string) (*models.Folder, error)
	FindActiveByID(ctx context.Context, userID, id string) (*models.Folder, error)
	FindChildren(ctx context.Context, userID string, parentID *string, includeDeleted bool) ([]models.Folder, error)
	// FindChildIDs 返回直接子目录 ID，不区分是否已删除
	FindChildIDs(ctx context.Context, userID string, parentIDs []string) ([]string, error)
	ExistsActiveName(ctx context.Context, userID string, parentID *string, name, excludeID string) (bool, error)

	UpdateFields(ctx context.Context, userID, id string, fields map[string]any) error
	MarkDeleted(ctx context.Context, userID string, ids []string, at time.Time) (int64, error)
	MarkRestored(ctx context.Context, userID string, ids []string) (int64, error)

	ListDeleted(ctx context.Context, userID string) ([]models.Folder, error)
	ListFavorites(ctx context.Context, userID string) ([]models.Folder, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]models.Folder, error)
	Search(ctx context.Context, userID string, f SearchFilter) ([]models.Folder, error)
}

type folderRepository struct {
	db *gorm.DB
}

var _ FolderRepository = (*folderRepository)(nil)

func NewFolderRepository(db *gorm.DB) FolderRepository {
	return &folderRepository{db: db}
}

func (r *folderRepository) WithTx(tx *gorm.DB) FolderRepository {
	return &folderRepository{db: tx}
}

func (r *folderRepository) Create(ctx context.Context, folder *models.Folder) error {
	if err := r.db.WithContext(ctx).Create(folder).Error; err != nil {
		logger.Error("Create: Failed to create folder", zap.String("userID", folder.UserID), zap.String("name", folder.Name), zap.Error(err))
		return fmt.Errorf("folder repository: %w", err)
	}
	return nil
}

func (r *folderRepository) find(ctx context.Context, userID, id string, activeOnly bool) (*models.Folder, error) {
	var folder models.Folder
	q := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID)
	if activeOnly {
		q = q.Where("is_deleted = ?", false)
	}
	if err := q.First(&folder).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrFolderNotFound
		}
		logger.Error("FindByID: Failed to get folder", zap.String("folderID", id), zap.Error(err))
		return nil, fmt.Errorf("folder repository: %w", err)
	}
	return &folder, nil
}

func (r *folderRepository) FindByID(ctx context.Context, userID, id string) (*models.Folder, error) {
	return r.find(ctx, userID, id, false)
}

func (r *folderRepository) FindActiveByID(ctx context.Context, userID, id string) (*models.Folder, error) {
	return r.find(ctx, userID, id, true)
}

func (r *folderRepository) FindChildren(ctx context.Context, userID string, parentID *string, includeDeleted bool) ([]models.Folder, error) {
	var folders []models.Folder
	q := parentCondition(r.db.WithContext(ctx).Where("user_id = ?", userID), "parent_id", parentID)
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	if err := q.Order("name ASC").Find(&folders).Error; err != nil {
		logger.Error("FindChildren: Failed to list folders", zap.String("userID", userID), zap.Any("parentID", parentID), zap.Error(err))
		return nil, fmt.Errorf("folder repository: %w", err)
	}
	return folders, nil
}

func (r *folderRepository) FindChildIDs(ctx context.Context, userID string, parentIDs []string) ([]string, error) {
	var ids []string
	if len(parentIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).Model(&models.Folder{}).
		Where("user_id = ? AND parent_id IN ?", userID, parentIDs).
		Pluck("id", &ids).Error
	if err != nil {
		logger.Error("FindChildIDs: Failed to list child folders", zap.String("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("folder repository: %w", err)
	}
	return ids, nil
}

func (r *folderRepository) ExistsActiveName(ctx context.Context, userID string, parentID *string, name, excludeID string) (bool, error) {
	var count int64
	q := parentCondition(r.db.WithContext(ctx).Model(&models.Folder{}).
		Where("user_id = ? AND name = ? AND is_deleted = ?", userID, name, false), "parent_id", parentID)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("folder repository: %w", err)
	}
	return count > 0, nil
}

func (r *folderRepository) UpdateFields(ctx context.Context, userID, id string, fields map[string]any) error {
	result := r.db.WithContext(ctx).Model(&models.Folder{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields)
	if result.Error != nil {
		logger.Error("UpdateFields: Failed to update folder", zap.String("folderID", id), zap.Error(result.Error))
		return fmt.Errorf("folder repository: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return xerr.ErrFolderNotFound
	}
	return nil
}

// MarkDeleted 只更新尚未删除的行，已在回收站中的保留原删除时间
func (r *folderRepository) MarkDeleted(ctx context.Context, userID string, ids []string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&models.Folder{}).
		Where("user_id = ? AND id IN ? AND is_deleted = ?", userID, ids, false).
		Updates(map[string]any{"is_deleted": true, "deleted_at": at})
	if result.Error != nil {
		return 0, fmt.Errorf("folder repository: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *folderRepository) MarkRestored(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&models.Folder{}).
		Where("user_id = ? AND id IN ? AND is_deleted = ?", userID, ids, true).
		Updates(map[string]any{"is_deleted": false, "deleted_at": nil})
	if result.Error != nil {
		return 0, fmt.Errorf("folder repository: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *folderRepository) ListDeleted(ctx context.Context, userID string) ([]models.Folder, error) {
	var folders []models.Folder
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_deleted = ?", userID, true).
		Order("deleted_at DESC").
		Find(&folders).Error
	if err != nil {
		return nil, fmt.Errorf("folder repository: %w", err)
	}
	return folders, nil
}

func (r *folderRepository) ListFavorites(ctx context.Context, userID string) ([]models.Folder, error) {
	var folders []models.Folder
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_favorite = ? AND is_deleted = ?", userID, true, false).
		Order("updated_at DESC").
		Find(&folders).Error
	if err != nil {
		return nil, fmt.Errorf("folder repository: %w", err)
	}
	return folders, nil
}

func (r *folderRepository) ListRecent(ctx context.Context, userID string, limit int) ([]models.Folder, error) {
	var folders []models.Folder
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Order("updated_at DESC").
		Limit(limit).
		Find(&folders).Error
	if err != nil {
		return nil, fmt.Errorf("folder repository: %w", err)
	}
	return folders, nil
}

// Search 目录只有名称和时间两类条件
func (r *folderRepository) Search(ctx context.Context, userID string, f SearchFilter) ([]models.Folder, error) {
	var folders []models.Folder
	q := r.db.WithContext(ctx).Where("user_id = ? AND is_deleted = ?", userID, false)
	if f.IDs != nil {
		if len(f.IDs) == 0 {
			return folders, nil
		}
		q = q.Where("id IN ?", f.IDs)
	}
	if f.Name != "" {
		q = q.Where("LOWER(name) LIKE ? ESCAPE '!'", ContainsPattern(f.Name))
	}
	if f.ScopeSet {
		q = parentCondition(q, "parent_id", f.ScopeParentID)
	}
	q = applyPage(applyTimeRange(q, f), f)
	if err := q.Order("updated_at DESC").Find(&folders).Error; err != nil {
		logger.Error("Search: Failed to search folders", zap.String("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("folder repository: %w", err)
	}
	return folders, nil
}
