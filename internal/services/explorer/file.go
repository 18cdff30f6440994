package explorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/search"
	"github.com/3Eeeecho/supfile/internal/pkg/storage"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type FileService interface {
	// 文件上传
	Upload(ctx context.Context, userID string, folderID *string, items []UploadItem) (*UploadResult, error)

	// 文件查询
	List(ctx context.Context, userID string, folderID *string, includeDeleted bool) ([]models.File, error)
	Get(ctx context.Context, userID, fileID string) (*models.File, error)
	Download(ctx context.Context, userID, fileID string) (*models.File, io.ReadCloser, error)

	// 文件操作
	Rename(ctx context.Context, userID, fileID, name string) (*models.File, error)
	Move(ctx context.Context, userID, fileID string, folderID *string) (*models.File, error)
	ToggleFavorite(ctx context.Context, userID, fileID string) (*models.File, error)

	// 回收站操作
	SoftDelete(ctx context.Context, userID, fileID string) (*models.File, error)
	Restore(ctx context.Context, userID, fileID string) (*models.File, error)
	PermanentDelete(ctx context.Context, userID, fileID string) (*StorageUsage, error)
	EmptyTrash(ctx context.Context, userID string) (*EmptyTrashResult, error)

	// 预览
	PreviewInfo(ctx context.Context, userID, fileID string) (*PreviewInfo, error)
	Preview(ctx context.Context, userID, fileID string) (*models.File, io.ReadCloser, error)
}

type StorageUsage struct {
	StorageUsed  int64 `json:"storage_used"`
	StorageQuota int64 `json:"storage_quota"`
}

type EmptyTrashResult struct {
	FilesDeleted int   `json:"files_deleted"`
	SpaceFreed   int64 `json:"space_freed"`
	// BlobFailures 对象删除失败的个数，记录仍然会被删除
	BlobFailures int   `json:"blob_failures"`
	StorageUsed  int64 `json:"storage_used"`
}

type fileService struct {
	userRepo           repositories.UserRepository
	folderRepo         repositories.FolderRepository
	fileRepo           repositories.FileRepository
	quota              QuotaLedger
	transactionManager TransactionManager
	storage            storage.StorageService
	index              search.Index
	bucket             string
	limits             UploadLimits
}

var _ FileService = (*fileService)(nil)

// FileServiceDeps 构造 FileService 需要的依赖
type FileServiceDeps struct {
	UserRepo           repositories.UserRepository
	FolderRepo         repositories.FolderRepository
	FileRepo           repositories.FileRepository
	Quota              QuotaLedger
	TransactionManager TransactionManager
	Storage            storage.StorageService
	Index              search.Index
	Bucket             string
	Limits             UploadLimits
}

func NewFileService(deps FileServiceDeps) FileService {
	index := deps.Index
	if index == nil {
		index = search.NoopIndex{}
	}
	return &fileService{
		userRepo:           deps.UserRepo,
		folderRepo:         deps.FolderRepo,
		fileRepo:           deps.FileRepo,
		quota:              deps.Quota,
		transactionManager: deps.TransactionManager,
		storage:            deps.Storage,
		index:              index,
		bucket:             deps.Bucket,
		limits:             deps.Limits,
	}
}

func (s *fileService) List(ctx context.Context, userID string, folderID *string, includeDeleted bool) ([]models.File, error) {
	if folderID != nil {
		if _, err := s.folderRepo.FindByID(ctx, userID, *folderID); err != nil {
			return nil, wrapServiceError("file service", err)
		}
	}
	files, err := s.fileRepo.FindInFolder(ctx, userID, folderID, includeDeleted)
	if err != nil {
		return nil, wrapServiceError("file service", err)
	}
	return files, nil
}

func (s *fileService) Get(ctx context.Context, userID, fileID string) (*models.File, error) {
	file, err := s.fileRepo.FindActiveByID(ctx, userID, fileID)
	if err != nil {
		return nil, wrapServiceError("file service", err)
	}
	return file, nil
}

func (s *fileService) Download(ctx context.Context, userID, fileID string) (*models.File, io.ReadCloser, error) {
	file, err := s.fileRepo.FindActiveByID(ctx, userID, fileID)
	if err != nil {
		return nil, nil, wrapServiceError("file service", err)
	}
	reader, err := OpenBlob(ctx, s.storage, file)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Download: Streaming file", zap.String("userID", userID), zap.String("fileID", fileID))
	return file, reader, nil
}

// OpenBlob 读取文件内容，对象不存在时返回 ErrBlobNotFound
func OpenBlob(ctx context.Context, storageService storage.StorageService, file *models.File) (io.ReadCloser, error) {
	obj, err := storageService.GetObject(ctx, file.Bucket, file.BlobPath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			logger.Warn("OpenBlob: Blob missing for file", zap.String("fileID", file.ID), zap.String("blobPath", file.BlobPath))
			return nil, fmt.Errorf("file %s: %w", file.ID, xerr.ErrBlobNotFound)
		}
		logger.Error("OpenBlob: Failed to read blob", zap.String("fileID", file.ID), zap.Error(err))
		return nil, fmt.Errorf("file %s: %w: %v", file.ID, xerr.ErrStorageError, err)
	}
	return obj.Reader, nil
}

func (s *fileService) Rename(ctx context.Context, userID, fileID, name string) (*models.File, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, fmt.Errorf("file service: %w", err)
	}

	var file *models.File
	err = s.transactionManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		fileRepo := s.fileRepo.WithTx(tx)
		current, err := fileRepo.FindActiveByID(ctx, userID, fileID)
		if err != nil {
			return err
		}
		exists, err := fileRepo.ExistsActiveName(ctx, userID, current.FolderID, name, current.ID)
		if err != nil {
			return err
		}
		if exists {
			return xerr.ErrNameConflict
		}
		if err := fileRepo.UpdateFields(ctx, userID, current.ID, map[string]any{"original_name": name}); err != nil {
			return err
		}
		file, err = fileRepo.FindByID(ctx, userID, current.ID)
		return err
	})
	if err != nil {
		return nil, wrapServiceError("file service", err)
	}

	indexFile(ctx, s.index, file)
	logger.Info("Rename: File renamed", zap.String("fileID", fileID), zap.String("name", name))
	return file, nil
}

// Move 文件不会形成环，只需要校验目标目录
func (s *fileService) Move(ctx context.Context, userID, fileID string, folderID *string) (*models.File, error) {
	var file *models.File
	err := s.transactionManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		fileRepo := s.fileRepo.WithTx(tx)
		current, err := fileRepo.FindActiveByID(ctx, userID, fileID)
		if err != nil {
			return err
		}
		if _, err := NewTreeDomainService(s.folderRepo.WithTx(tx)).CheckParent(ctx, userID, folderID); err != nil {
			return err
		}
		if err := fileRepo.UpdateFields(ctx, userID, current.ID, map[string]any{"folder_id": folderID}); err != nil {
			return err
		}
		file, err = fileRepo.FindByID(ctx, userID, current.ID)
		return err
	})
	if err != nil {
		return nil, wrapServiceError("file service", err)
	}
	logger.Info("Move: File moved", zap.String("fileID", fileID), zap.Any("folderID", folderID))
	return file, nil
}

func (s *fileService) ToggleFavorite(ctx context.Context, userID, fileID string) (*models.File, error) {
	file, err := s.fileRepo.FindActiveByID(ctx, userID, fileID)
	if err != nil {
		return nil, wrapServiceError("file service", err)
	}
	if err := s.fileRepo.UpdateFields(ctx, userID, file.ID, map[string]any{"is_favorite": !file.IsFavorite}); err != nil {
		return nil, wrapServiceError("file service", err)
	}
	file.IsFavorite = !file.IsFavorite
	return file, nil
}

// SoftDelete 移入回收站，不影响配额
func (s *fileService) SoftDelete(ctx context.Context, userID, fileID string) (*models.File, error) {
	file, err := s.fileRepo.FindActiveByID(ctx, userID, fileID)
	if err != nil {
		return nil, wrapServiceError("file service", err)
	}
	deletedAt := time.Now().UTC().Truncate(time.Millisecond)
	if err := s.fileRepo.UpdateFields(ctx, userID, file.ID, map[string]any{"is_deleted": true, "deleted_at": deletedAt}); err != nil {
		return nil, wrapServiceError("file service", err)
	}
	file.IsDeleted = true
	file.DeletedAt = &deletedAt
	logger.Info("SoftDelete: File moved to recycle bin", zap.String("userID", userID), zap.String("fileID", fileID))
	return file, nil
}

func (s *fileService) Restore(ctx context.Context, userID, fileID string) (*models.File, error) {
	file, err := s.fileRepo.FindByID(ctx, userID, fileID)
	if err != nil {
		return nil, wrapServiceError("file service", err)
	}
	if !file.IsDeleted {
		return nil, fmt.Errorf("file service: %w", xerr.ErrNotInRecycleBin)
	}
	if err := s.fileRepo.UpdateFields(ctx, userID, file.ID, map[string]any{"is_deleted": false, "deleted_at": nil}); err != nil {
		return nil, wrapServiceError("file service", err)
	}
	file.IsDeleted = false
	file.DeletedAt = nil
	logger.Info("RestoreFile: File restored", zap.String("userID", userID), zap.String("fileID", fileID))
	return file, nil
}

// PermanentDelete 对象删除失败只记日志，记录和配额照常处理
func (s *fileService) PermanentDelete(ctx context.Context, userID, fileID string) (*StorageUsage, error) {
	file, err := s.fileRepo.FindByID(ctx, userID, fileID)
	if err != nil {
		return nil, wrapServiceError("file service", err)
	}

	s.removeBlob(ctx, file)

	err = s.transactionManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.fileRepo.WithTx(tx).Delete(ctx, userID, file.ID); err != nil {
			return err
		}
		return s.quota.WithTx(tx).Release(ctx, userID, file.Size)
	})
	if err != nil {
		return nil, wrapServiceError("file service", err)
	}
	unindex(ctx, s.index, file.ID)

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, wrapServiceError("file service", err)
	}
	logger.Info("PermanentDelete: File permanently deleted",
		zap.String("userID", userID),
		zap.String("fileID", fileID),
		zap.Int64("size", file.Size))
	return &StorageUsage{StorageUsed: user.StorageUsed, StorageQuota: user.StorageQuota}, nil
}

// EmptyTrash 只清理回收站中的文件，目录记录保留
func (s *fileService) EmptyTrash(ctx context.Context, userID string) (*EmptyTrashResult, error) {
	files, err := s.fileRepo.ListDeleted(ctx, userID)
	if err != nil {
		return nil, wrapServiceError("file service", err)
	}

	// 列表之后被恢复的文件不再属于回收站，跳过
	purged := make([]models.File, 0, len(files))
	result := &EmptyTrashResult{}
	err = s.transactionManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		fileRepo := s.fileRepo.WithTx(tx)
		for i := range files {
			deleted, err := fileRepo.DeleteTrashed(ctx, userID, files[i].ID)
			if err != nil {
				return err
			}
			if !deleted {
				logger.Warn("EmptyTrash: File left the recycle bin, skipping", zap.String("fileID", files[i].ID))
				continue
			}
			purged = append(purged, files[i])
			result.SpaceFreed += files[i].Size
		}
		return s.quota.WithTx(tx).Release(ctx, userID, result.SpaceFreed)
	})
	if err != nil {
		return nil, wrapServiceError("file service", err)
	}

	result.FilesDeleted = len(purged)
	for i := range purged {
		if !s.removeBlob(ctx, &purged[i]) {
			result.BlobFailures++
		}
		unindex(ctx, s.index, purged[i].ID)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, wrapServiceError("file service", err)
	}
	result.StorageUsed = user.StorageUsed
	logger.Info("EmptyTrash: Recycle bin emptied",
		zap.String("userID", userID),
		zap.Int("filesDeleted", result.FilesDeleted),
		zap.Int64("spaceFreed", result.SpaceFreed),
		zap.Int("blobFailures", result.BlobFailures))
	return result, nil
}

// removeBlob 返回 false 表示对象没有删掉
func (s *fileService) removeBlob(ctx context.Context, file *models.File) bool {
	err := s.storage.RemoveObject(context.WithoutCancel(ctx), file.Bucket, file.BlobPath)
	if err == nil {
		return true
	}
	if errors.Is(err, storage.ErrObjectNotFound) {
		logger.Warn("removeBlob: Blob already missing", zap.String("fileID", file.ID), zap.String("blobPath", file.BlobPath))
	} else {
		logger.Error("removeBlob: Failed to delete blob", zap.String("fileID", file.ID), zap.String("blobPath", file.BlobPath), zap.Error(err))
	}
	return false
}
