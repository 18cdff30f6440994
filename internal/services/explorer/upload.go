package explorer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/storage"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultMimeType = "application/octet-stream"
	sniffLen        = 3072
)

// UploadItem 由 multipart 解析后交给服务层的单个文件
type UploadItem struct {
	OriginalName string
	MimeType     string
	Size         int64
	Content      io.Reader
}

type UploadLimits struct {
	MaxFiles    int
	MaxFileSize int64
}

type UploadResult struct {
	Files        []models.File `json:"files"`
	StorageUsed  int64         `json:"storage_used"`
	StorageQuota int64         `json:"storage_quota"`
}

type storedBlob struct {
	file models.File
}

// Upload 批量上传
//
// 顺序：校验 -> 目标目录 -> 配额检查 -> 写对象存储 -> 事务内建记录并记账。
// 任一步失败都会尽量删除本批次已经写入的对象。
func (s *fileService) Upload(ctx context.Context, userID string, folderID *string, items []UploadItem) (*UploadResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("file service: no files uploaded: %w", xerr.ErrInvalidParams)
	}
	if s.limits.MaxFiles > 0 && len(items) > s.limits.MaxFiles {
		return nil, fmt.Errorf("file service: %d files exceeds limit %d: %w", len(items), s.limits.MaxFiles, xerr.ErrTooManyFiles)
	}

	var total int64
	for i := range items {
		name, err := NormalizeName(path.Base(items[i].OriginalName))
		if err != nil {
			return nil, fmt.Errorf("file service: %w", err)
		}
		items[i].OriginalName = name
		if items[i].Size < 0 {
			return nil, fmt.Errorf("file service: negative size: %w", xerr.ErrInvalidParams)
		}
		if s.limits.MaxFileSize > 0 && items[i].Size > s.limits.MaxFileSize {
			return nil, fmt.Errorf("file service: %s: %w", name, xerr.ErrFileTooLarge)
		}
		total += items[i].Size
	}

	if _, err := NewTreeDomainService(s.folderRepo).CheckParent(ctx, userID, folderID); err != nil {
		return nil, wrapServiceError("file service", err)
	}
	if err := s.quota.Reserve(ctx, userID, total); err != nil {
		return nil, wrapServiceError("file service", err)
	}

	stored := make([]storedBlob, 0, len(items))
	for i := range items {
		blob, err := s.putBlob(ctx, userID, folderID, &items[i])
		if err != nil {
			s.removeBlobs(ctx, stored)
			return nil, err
		}
		stored = append(stored, blob)
	}

	err := s.transactionManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		fileRepo := s.fileRepo.WithTx(tx)
		for i := range stored {
			if err := fileRepo.Create(ctx, &stored[i].file); err != nil {
				return err
			}
		}
		return s.quota.WithTx(tx).Commit(ctx, userID, total)
	})
	if err != nil {
		s.removeBlobs(ctx, stored)
		return nil, wrapServiceError("file service", err)
	}

	files := make([]models.File, 0, len(stored))
	for i := range stored {
		indexFile(ctx, s.index, &stored[i].file)
		files = append(files, stored[i].file)
	}

	result := &UploadResult{Files: files}
	if user, err := s.userRepo.FindByID(ctx, userID); err == nil {
		result.StorageUsed = user.StorageUsed
		result.StorageQuota = user.StorageQuota
	}
	logger.Info("Upload: Files uploaded", zap.String("userID", userID), zap.Int("count", len(files)), zap.Int64("bytes", total))
	return result, nil
}

func (s *fileService) putBlob(ctx context.Context, userID string, folderID *string, item *UploadItem) (storedBlob, error) {
	content := item.Content
	mimeType := item.MimeType
	if mimeType == "" || mimeType == defaultMimeType {
		head := make([]byte, sniffLen)
		n, err := io.ReadFull(content, head)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return storedBlob{}, fmt.Errorf("file service: read upload: %w", xerr.ErrInvalidParams)
		}
		head = head[:n]
		mimeType = mimetype.Detect(head).String()
		content = io.MultiReader(bytes.NewReader(head), content)
	}

	storedName := uuid.NewString() + path.Ext(item.OriginalName)
	objectName := storage.ObjectName(userID, storedName)

	hasher := sha256.New()
	if _, err := s.storage.PutObject(ctx, s.bucket, objectName, io.TeeReader(content, hasher), item.Size, mimeType); err != nil {
		logger.Error("Upload: Failed to write blob", zap.String("userID", userID), zap.String("object", objectName), zap.Error(err))
		return storedBlob{}, fmt.Errorf("file service: %w: %v", xerr.ErrStorageError, err)
	}
	hash := hex.EncodeToString(hasher.Sum(nil))

	return storedBlob{file: models.File{
		Name:         storedName,
		OriginalName: item.OriginalName,
		MimeType:     mimeType,
		Size:         item.Size,
		Bucket:       s.bucket,
		BlobPath:     objectName,
		FolderID:     folderID,
		UserID:       userID,
		Hash:         &hash,
	}}, nil
}

func (s *fileService) removeBlobs(ctx context.Context, stored []storedBlob) {
	ctx = context.WithoutCancel(ctx)
	for _, blob := range stored {
		if err := s.storage.RemoveObject(ctx, blob.file.Bucket, blob.file.BlobPath); err != nil {
			logger.Warn("Upload: Failed to clean up blob", zap.String("object", blob.file.BlobPath), zap.Error(err))
		}
	}
}
