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
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type FolderService interface {
	Create(ctx context.Context, userID, name string, parentID *string) (*models.Folder, error)
	List(ctx context.Context, userID string, parentID *string, includeDeleted bool) ([]models.Folder, error)
	Get(ctx context.Context, userID, folderID string) (*models.FolderContents, error)
	Rename(ctx context.Context, userID, folderID, name string) (*models.Folder, error)
	Move(ctx context.Context, userID, folderID string, newParentID *string) (*models.Folder, error)

	// 回收站
	SoftDelete(ctx context.Context, userID, folderID string) (*CascadeResult, error)
	Restore(ctx context.Context, userID, folderID string) (*CascadeResult, error)

	ToggleFavorite(ctx context.Context, userID, folderID string) (*models.Folder, error)
	Download(ctx context.Context, userID, folderID string) (*models.Folder, io.ReadCloser, error)
}

// CascadeResult 级联删除/恢复影响的行数
type CascadeResult struct {
	FolderID  string     `json:"folder_id"`
	Folders   int64      `json:"folders"`
	Files     int64      `json:"files"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

type folderService struct {
	folderRepo         repositories.FolderRepository
	fileRepo           repositories.FileRepository
	transactionManager TransactionManager
	zipStreamer        *ZipStreamer
	index              search.Index
}

var _ FolderService = (*folderService)(nil)

func NewFolderService(
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
	transactionManager TransactionManager,
	zipStreamer *ZipStreamer,
	index search.Index,
) FolderService {
	return &folderService{
		folderRepo:         folderRepo,
		fileRepo:           fileRepo,
		transactionManager: transactionManager,
		zipStreamer:        zipStreamer,
		index:              index,
	}
}

func (s *folderService) Create(ctx context.Context, userID, name string, parentID *string) (*models.Folder, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, fmt.Errorf("folder service: %w", err)
	}

	folder := &models.Folder{Name: name, ParentID: parentID, UserID: userID}
	err = s.transactionManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		folderRepo := s.folderRepo.WithTx(tx)
		if _, err := NewTreeDomainService(folderRepo).CheckParent(ctx, userID, parentID); err != nil {
			return err
		}
		exists, err := folderRepo.ExistsActiveName(ctx, userID, parentID, name, "")
		if err != nil {
			return err
		}
		if exists {
			return xerr.ErrNameConflict
		}
		return folderRepo.Create(ctx, folder)
	})
	if err != nil {
		return nil, wrapServiceError("folder service", err)
	}

	indexFolder(ctx, s.index, folder)
	logger.Info("Create: Folder created", zap.String("userID", userID), zap.String("folderID", folder.ID), zap.String("name", name))
	return folder, nil
}

func (s *folderService) List(ctx context.Context, userID string, parentID *string, includeDeleted bool) ([]models.Folder, error) {
	if parentID != nil {
		if _, err := s.folderRepo.FindByID(ctx, userID, *parentID); err != nil {
			return nil, wrapServiceError("folder service", err)
		}
	}
	folders, err := s.folderRepo.FindChildren(ctx, userID, parentID, includeDeleted)
	if err != nil {
		return nil, wrapServiceError("folder service", err)
	}
	return folders, nil
}

func (s *folderService) Get(ctx context.Context, userID, folderID string) (*models.FolderContents, error) {
	folder, err := s.folderRepo.FindActiveByID(ctx, userID, folderID)
	if err != nil {
		return nil, wrapServiceError("folder service", err)
	}
	files, err := s.fileRepo.FindInFolder(ctx, userID, &folder.ID, false)
	if err != nil {
		return nil, wrapServiceError("folder service", err)
	}
	subfolders, err := s.folderRepo.FindChildren(ctx, userID, &folder.ID, false)
	if err != nil {
		return nil, wrapServiceError("folder service", err)
	}
	return &models.FolderContents{Folder: folder, Files: files, Subfolders: subfolders}, nil
}

func (s *folderService) Rename(ctx context.Context, userID, folderID, name string) (*models.Folder, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, fmt.Errorf("folder service: %w", err)
	}

	var folder *models.Folder
	err = s.transactionManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		folderRepo := s.folderRepo.WithTx(tx)
		current, err := folderRepo.FindActiveByID(ctx, userID, folderID)
		if err != nil {
			return err
		}
		exists, err := folderRepo.ExistsActiveName(ctx, userID, current.ParentID, name, current.ID)
		if err != nil {
			return err
		}
		if exists {
			return xerr.ErrNameConflict
		}
		if err := folderRepo.UpdateFields(ctx, userID, current.ID, map[string]any{"name": name}); err != nil {
			return err
		}
		folder, err = folderRepo.FindByID(ctx, userID, current.ID)
		return err
	})
	if err != nil {
		return nil, wrapServiceError("folder service", err)
	}

	indexFolder(ctx, s.index, folder)
	logger.Info("Rename: Folder renamed", zap.String("folderID", folderID), zap.String("name", name))
	return folder, nil
}

func (s *folderService) Move(ctx context.Context, userID, folderID string, newParentID *string) (*models.Folder, error) {
	var folder *models.Folder
	err := s.transactionManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		folderRepo := s.folderRepo.WithTx(tx)
		domain := NewTreeDomainService(folderRepo)

		current, err := folderRepo.FindActiveByID(ctx, userID, folderID)
		if err != nil {
			return err
		}
		if _, err := domain.CheckParent(ctx, userID, newParentID); err != nil {
			return err
		}
		if err := domain.EnsureMovable(ctx, userID, current.ID, newParentID); err != nil {
			return err
		}
		exists, err := folderRepo.ExistsActiveName(ctx, userID, newParentID, current.Name, current.ID)
		if err != nil {
			return err
		}
		if exists {
			return xerr.ErrNameConflict
		}
		if err := folderRepo.UpdateFields(ctx, userID, current.ID, map[string]any{"parent_id": newParentID}); err != nil {
			return err
		}
		folder, err = folderRepo.FindByID(ctx, userID, current.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, xerr.ErrCannotMoveIntoSelf) || errors.Is(err, xerr.ErrCannotMoveIntoSubtree) {
			logger.Warn("Move: Rejected folder move", zap.String("folderID", folderID), zap.Any("newParentID", newParentID), zap.Error(err))
		}
		return nil, wrapServiceError("folder service", err)
	}

	logger.Info("Move: Folder moved", zap.String("folderID", folderID), zap.Any("newParentID", newParentID))
	return folder, nil
}

// SoftDelete 目录及其全部后代在同一个事务里进入回收站，共用一个删除时间
func (s *folderService) SoftDelete(ctx context.Context, userID, folderID string) (*CascadeResult, error) {
	deletedAt := time.Now().UTC().Truncate(time.Millisecond)
	result := &CascadeResult{FolderID: folderID, DeletedAt: &deletedAt}

	err := s.transactionManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		folderRepo := s.folderRepo.WithTx(tx)
		fileRepo := s.fileRepo.WithTx(tx)

		root, err := folderRepo.FindActiveByID(ctx, userID, folderID)
		if err != nil {
			return err
		}
		ids, err := NewTreeDomainService(folderRepo).CollectSubtree(ctx, userID, root.ID)
		if err != nil {
			return err
		}
		if result.Folders, err = folderRepo.MarkDeleted(ctx, userID, ids, deletedAt); err != nil {
			return err
		}
		result.Files, err = fileRepo.MarkDeletedInFolders(ctx, userID, ids, deletedAt)
		return err
	})
	if err != nil {
		return nil, wrapServiceError("folder service", err)
	}

	logger.Info("SoftDelete: Folder moved to recycle bin",
		zap.String("userID", userID),
		zap.String("folderID", folderID),
		zap.Int64("folders", result.Folders),
		zap.Int64("files", result.Files))
	return result, nil
}

// Restore 只恢复处于回收站中的后代，遇到正常状态的节点直接跳过
func (s *folderService) Restore(ctx context.Context, userID, folderID string) (*CascadeResult, error) {
	result := &CascadeResult{FolderID: folderID}

	err := s.transactionManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		folderRepo := s.folderRepo.WithTx(tx)
		fileRepo := s.fileRepo.WithTx(tx)

		root, err := folderRepo.FindByID(ctx, userID, folderID)
		if err != nil {
			return err
		}
		if !root.IsDeleted {
			return xerr.ErrNotInRecycleBin
		}
		exists, err := folderRepo.ExistsActiveName(ctx, userID, root.ParentID, root.Name, root.ID)
		if err != nil {
			return err
		}
		if exists {
			return xerr.ErrNameConflict
		}
		ids, err := NewTreeDomainService(folderRepo).CollectSubtree(ctx, userID, root.ID)
		if err != nil {
			return err
		}
		if result.Folders, err = folderRepo.MarkRestored(ctx, userID, ids); err != nil {
			return err
		}
		result.Files, err = fileRepo.MarkRestoredInFolders(ctx, userID, ids)
		return err
	})
	if err != nil {
		return nil, wrapServiceError("folder service", err)
	}

	logger.Info("Restore: Folder restored",
		zap.String("userID", userID),
		zap.String("folderID", folderID),
		zap.Int64("folders", result.Folders),
		zap.Int64("files", result.Files))
	return result, nil
}

func (s *folderService) ToggleFavorite(ctx context.Context, userID, folderID string) (*models.Folder, error) {
	folder, err := s.folderRepo.FindActiveByID(ctx, userID, folderID)
	if err != nil {
		return nil, wrapServiceError("folder service", err)
	}
	if err := s.folderRepo.UpdateFields(ctx, userID, folder.ID, map[string]any{"is_favorite": !folder.IsFavorite}); err != nil {
		return nil, wrapServiceError("folder service", err)
	}
	folder.IsFavorite = !folder.IsFavorite
	return folder, nil
}

func (s *folderService) Download(ctx context.Context, userID, folderID string) (*models.Folder, io.ReadCloser, error) {
	folder, err := s.folderRepo.FindActiveByID(ctx, userID, folderID)
	if err != nil {
		return nil, nil, wrapServiceError("folder service", err)
	}
	logger.Info("Download: Streaming folder as zip", zap.String("userID", userID), zap.String("folderID", folderID))
	return folder, s.zipStreamer.Stream(ctx, folder), nil
}
