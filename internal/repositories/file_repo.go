package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FileRepository 文件元数据访问层
type FileRepository interface {
	WithTx(tx *gorm.DB) FileRepository

	Create(ctx context.Context, file *models.File) error
	FindByID(ctx context.Context, userID, id string) (*models.File, error)
	FindActiveByID(ctx context.Context, userID, id string) (*models.File, error)
	FindInFolder(ctx context.Context, userID string, folderID *string, includeDeleted bool) ([]models.File, error)
	// FindActiveInFolders 批量读取多个目录下未删除的文件
	FindActiveInFolders(ctx context.Context, userID string, folderIDs []string) ([]models.File, error)
	ExistsActiveName(ctx context.Context, userID string, folderID *string, name, excludeID string) (bool, error)

	UpdateFields(ctx context.Context, userID, id string, fields map[string]any) error
	MarkDeletedInFolders(ctx context.Context, userID string, folderIDs []string, at time.Time) (int64, error)
	MarkRestoredInFolders(ctx context.Context, userID string, folderIDs []string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
	// DeleteTrashed 只删除仍在回收站中的记录，返回是否删除
	DeleteTrashed(ctx context.Context, userID, id string) (bool, error)

	ListDeleted(ctx context.Context, userID string) ([]models.File, error)
	ListFavorites(ctx context.Context, userID string) ([]models.File, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]models.File, error)
	Search(ctx context.Context, userID string, f SearchFilter) ([]models.File, error)
}

type fileRepository struct {
	db *gorm.DB
}

var _ FileRepository = (*fileRepository)(nil)

func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) WithTx(tx *gorm.DB) FileRepository {
	return &fileRepository{db: tx}
}

func (r *fileRepository) Create(ctx context.Context, file *models.File) error {
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		logger.Error("Create: Failed to create file in DB", zap.String("userID", file.UserID), zap.String("fileName", file.OriginalName), zap.Error(err))
		return fmt.Errorf("file repository: %w", err)
	}
	return nil
}

func (r *fileRepository) find(ctx context.Context, userID, id string, activeOnly bool) (*models.File, error) {
	var file models.File
	q := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID)
	if activeOnly {
		q = q.Where("is_deleted = ?", false)
	}
	if err := q.First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrFileNotFound
		}
		logger.Error("FindByID: Failed to get file", zap.String("fileID", id), zap.Error(err))
		return nil, fmt.Errorf("file repository: %w", err)
	}
	return &file, nil
}

func (r *fileRepository) FindByID(ctx context.Context, userID, id string) (*models.File, error) {
	return r.find(ctx, userID, id, false)
}

func (r *fileRepository) FindActiveByID(ctx context.Context, userID, id string) (*models.File, error) {
	return r.find(ctx, userID, id, true)
}

func (r *fileRepository) FindInFolder(ctx context.Context, userID string, folderID *string, includeDeleted bool) ([]models.File, error) {
	var files []models.File
	q := parentCondition(r.db.WithContext(ctx).Where("user_id = ?", userID), "folder_id", folderID)
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	if err := q.Order("created_at DESC").Find(&files).Error; err != nil {
		logger.Error("FindInFolder: Failed to list files", zap.String("userID", userID), zap.Any("folderID", folderID), zap.Error(err))
		return nil, fmt.Errorf("file repository: %w", err)
	}
	return files, nil
}

func (r *fileRepository) FindActiveInFolders(ctx context.Context, userID string, folderIDs []string) ([]models.File, error) {
	var files []models.File
	if len(folderIDs) == 0 {
		return files, nil
	}
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND folder_id IN ? AND is_deleted = ?", userID, folderIDs, false).
		Order("original_name ASC").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("file repository: %w", err)
	}
	return files, nil
}

func (r *fileRepository) ExistsActiveName(ctx context.Context, userID string, folderID *string, name, excludeID string) (bool, error) {
	var count int64
	q := parentCondition(r.db.WithContext(ctx).Model(&models.File{}).
		Where("user_id = ? AND original_name = ? AND is_deleted = ?", userID, name, false), "folder_id", folderID)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("file repository: %w", err)
	}
	return count > 0, nil
}

func (r *fileRepository) UpdateFields(ctx context.Context, userID, id string, fields map[string]any) error {
	result := r.db.WithContext(ctx).Model(&models.File{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields)
	if result.Error != nil {
		logger.Error("UpdateFields: Failed to update file", zap.String("fileID", id), zap.Error(result.Error))
		return fmt.Errorf("file repository: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return xerr.ErrFileNotFound
	}
	return nil
}

func (r *fileRepository) MarkDeletedInFolders(ctx context.Context, userID string, folderIDs []string, at time.Time) (int64, error) {
	if len(folderIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&models.File{}).
		Where("user_id = ? AND folder_id IN ? AND is_deleted = ?", userID, folderIDs, false).
		Updates(map[string]any{"is_deleted": true, "deleted_at": at})
	if result.Error != nil {
		return 0, fmt.Errorf("file repository: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *fileRepository) MarkRestoredInFolders(ctx context.Context, userID string, folderIDs []string) (int64, error) {
	if len(folderIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&models.File{}).
		Where("user_id = ? AND folder_id IN ? AND is_deleted = ?", userID, folderIDs, true).
		Updates(map[string]any{"is_deleted": false, "deleted_at": nil})
	if result.Error != nil {
		return 0, fmt.Errorf("file repository: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *fileRepository) Delete(ctx context.Context, userID, id string) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.File{})
	if result.Error != nil {
		logger.Error("Delete: Failed to delete file row", zap.String("fileID", id), zap.Error(result.Error))
		return fmt.Errorf("file repository: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return xerr.ErrFileNotFound
	}
	return nil
}

func (r *fileRepository) DeleteTrashed(ctx context.Context, userID, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_deleted = ?", id, userID, true).
		Delete(&models.File{})
	if result.Error != nil {
		logger.Error("DeleteTrashed: Failed to delete file row", zap.String("fileID", id), zap.Error(result.Error))
		return false, fmt.Errorf("file repository: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *fileRepository) ListDeleted(ctx context.Context, userID string) ([]models.File, error) {
	var files []models.File
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_deleted = ?", userID, true).
		Order("deleted_at DESC").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("file repository: %w", err)
	}
	return files, nil
}

func (r *fileRepository) ListFavorites(ctx context.Context, userID string) ([]models.File, error) {
	var files []models.File
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_favorite = ? AND is_deleted = ?", userID, true, false).
		Order("updated_at DESC").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("file repository: %w", err)
	}
	return files, nil
}

func (r *fileRepository) ListRecent(ctx context.Context, userID string, limit int) ([]models.File, error) {
	var files []models.File
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Order("updated_at DESC").
		Limit(limit).
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("file repository: %w", err)
	}
	return files, nil
}

func (r *fileRepository) Search(ctx context.Context, userID string, f SearchFilter) ([]models.File, error) {
	var files []models.File
	q := r.db.WithContext(ctx).Where("user_id = ? AND is_deleted = ?", userID, false)
	if f.IDs != nil {
		if len(f.IDs) == 0 {
			return files, nil
		}
		q = q.Where("id IN ?", f.IDs)
	}
	if f.Name != "" {
		pattern := ContainsPattern(f.Name)
		q = q.Where("(LOWER(name) LIKE ? ESCAPE '!' OR LOWER(original_name) LIKE ? ESCAPE '!')", pattern, pattern)
	}
	if f.MimeExact != "" {
		q = q.Where("mime_type = ?", f.MimeExact)
	}
	if len(f.MimePrefixes) > 0 || len(f.MimeExacts) > 0 {
		var conds []string
		var args []any
		for _, prefix := range f.MimePrefixes {
			conds = append(conds, "mime_type LIKE ? ESCAPE '!'")
			args = append(args, PrefixPattern(prefix))
		}
		if len(f.MimeExacts) > 0 {
			conds = append(conds, "mime_type IN ?")
			args = append(args, f.MimeExacts)
		}
		q = q.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
	if f.MinSize != nil {
		q = q.Where("size >= ?", *f.MinSize)
	}
	if f.MaxSize != nil {
		q = q.Where("size <= ?", *f.MaxSize)
	}
	if f.ScopeSet {
		q = parentCondition(q, "folder_id", f.ScopeParentID)
	}
	q = applyPage(applyTimeRange(q, f), f)
	if err := q.Order("updated_at DESC").Find(&files).Error; err != nil {
		logger.Error("Search: Failed to search files", zap.String("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("file repository: %w", err)
	}
	return files, nil
}
