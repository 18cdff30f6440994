package share

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/storage"
	"github.com/3Eeeecho/supfile/internal/pkg/utils"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/repositories"
	"github.com/3Eeeecho/supfile/internal/services/explorer"
	"go.uber.org/zap"
)

// ShareService 分享链接的创建、管理和公开访问
type ShareService interface {
	Create(ctx context.Context, userID string, target models.ShareTarget, req CreateShareRequest) (*ShareInfo, error)
	ListForTarget(ctx context.Context, userID string, target models.ShareTarget) ([]ShareInfo, error)
	Delete(ctx context.Context, userID, shareID string) error

	// Resolve 公开访问，成功时下载计数加一
	Resolve(ctx context.Context, token, password string) (*ShareView, error)
	// Download fileID 非空时只下载分享目录中的单个文件
	Download(ctx context.Context, token, password, fileID string) (*ShareDownload, error)
}

type CreateShareRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
	Password  string     `json:"password"`
}

// UnmarshalJSON 同时接受 expires_at 和 expiresAt
func (r *CreateShareRequest) UnmarshalJSON(data []byte) error {
	type plain CreateShareRequest
	var camel struct {
		ExpiresAt *time.Time `json:"expiresAt"`
	}
	if err := json.Unmarshal(data, (*plain)(r)); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &camel); err != nil {
		return err
	}
	if r.ExpiresAt == nil {
		r.ExpiresAt = camel.ExpiresAt
	}
	return nil
}

type ShareInfo struct {
	ID            string     `json:"id"`
	Token         string     `json:"token"`
	URL           string     `json:"url"`
	ExpiresAt     *time.Time `json:"expires_at"`
	HasPassword   bool       `json:"has_password"`
	DownloadCount int64      `json:"download_count"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ShareView 公开访问时看到的内容，目录只列出直接子项
type ShareView struct {
	Type          models.TargetKind     `json:"type"`
	Name          string                `json:"name"`
	OriginalName  string                `json:"original_name,omitempty"`
	Size          int64                 `json:"size,omitempty"`
	MimeType      string                `json:"mime_type,omitempty"`
	Contents      *SharedFolderContents `json:"contents,omitempty"`
	DownloadCount int64                 `json:"download_count"`
}

type SharedFolderContents struct {
	Files   []SharedFile   `json:"files"`
	Folders []SharedFolder `json:"folders"`
}

type SharedFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

type SharedFolder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ShareDownload Size 为 -1 表示长度未知 (zip 流)
type ShareDownload struct {
	FileName      string
	MimeType      string
	Size          int64
	Reader        io.ReadCloser
	DownloadCount int64
}

type shareService struct {
	shareRepo   repositories.ShareRepository
	folderRepo  repositories.FolderRepository
	fileRepo    repositories.FileRepository
	storage     storage.StorageService
	zipStreamer *explorer.ZipStreamer
	frontendURL string
	now         func() time.Time
}

var _ ShareService = (*shareService)(nil)

type Option func(*shareService)

// WithClock 测试中固定当前时间
func WithClock(now func() time.Time) Option {
	return func(s *shareService) { s.now = now }
}

func NewShareService(
	shareRepo repositories.ShareRepository,
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
	storageService storage.StorageService,
	zipStreamer *explorer.ZipStreamer,
	frontendURL string,
	opts ...Option,
) ShareService {
	s := &shareService{
		shareRepo:   shareRepo,
		folderRepo:  folderRepo,
		fileRepo:    fileRepo,
		storage:     storageService,
		zipStreamer: zipStreamer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *shareService) shareURL(token string) string {
	return fmt.Sprintf("%s/share/%s", s.frontendURL, token)
}

func (s *shareService) toInfo(share *models.Share) ShareInfo {
	return ShareInfo{
		ID:            share.ID,
		Token:         share.ShareToken,
		URL:           s.shareURL(share.ShareToken),
		ExpiresAt:     share.ExpiresAt,
		HasPassword:   share.HasPassword(),
		DownloadCount: share.DownloadCount,
		CreatedAt:     share.CreatedAt,
	}
}

// checkTarget 校验分享对象属于用户; activeOnly 为 false 时回收站里的也算
func (s *shareService) checkTarget(ctx context.Context, userID string, target models.ShareTarget, activeOnly bool) error {
	if !target.Valid() {
		return xerr.ErrInvalidParams
	}
	var err error
	switch target.Kind {
	case models.TargetFile:
		if activeOnly {
			_, err = s.fileRepo.FindActiveByID(ctx, userID, target.ID)
		} else {
			_, err = s.fileRepo.FindByID(ctx, userID, target.ID)
		}
	case models.TargetFolder:
		if activeOnly {
			_, err = s.folderRepo.FindActiveByID(ctx, userID, target.ID)
		} else {
			_, err = s.folderRepo.FindByID(ctx, userID, target.ID)
		}
	}
	return err
}

func (s *shareService) Create(ctx context.Context, userID string, target models.ShareTarget, req CreateShareRequest) (*ShareInfo, error) {
	if err := s.checkTarget(ctx, userID, target, true); err != nil {
		return nil, wrapError(err)
	}

	token, err := utils.GenerateShareToken()
	if err != nil {
		logger.Error("CreateShare: Failed to generate share token", zap.Error(err))
		return nil, fmt.Errorf("share service: %w", xerr.ErrInternalServer)
	}

	share := &models.Share{
		ShareToken: token,
		UserID:     userID,
		ExpiresAt:  req.ExpiresAt,
	}
	share.SetTarget(target)
	if req.Password != "" {
		hash, err := utils.HashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("share service: %w", xerr.ErrInternalServer)
		}
		share.PasswordHash = &hash
	}

	if err := s.shareRepo.Create(ctx, share); err != nil {
		return nil, wrapError(err)
	}

	logger.Info("CreateShare: Share created",
		zap.String("userID", userID),
		zap.String("shareID", share.ID),
		zap.String("targetType", string(target.Kind)),
		zap.String("targetID", target.ID))
	info := s.toInfo(share)
	return &info, nil
}

func (s *shareService) ListForTarget(ctx context.Context, userID string, target models.ShareTarget) ([]ShareInfo, error) {
	if err := s.checkTarget(ctx, userID, target, false); err != nil {
		return nil, wrapError(err)
	}
	shares, err := s.shareRepo.ListByTarget(ctx, userID, target)
	if err != nil {
		return nil, wrapError(err)
	}
	infos := make([]ShareInfo, 0, len(shares))
	for i := range shares {
		infos = append(infos, s.toInfo(&shares[i]))
	}
	return infos, nil
}

func (s *shareService) Delete(ctx context.Context, userID, shareID string) error {
	share, err := s.shareRepo.FindByID(ctx, userID, shareID)
	if err != nil {
		return wrapError(err)
	}
	if err := s.shareRepo.Delete(ctx, share); err != nil {
		return wrapError(err)
	}
	logger.Info("DeleteShare: Share deleted", zap.String("userID", userID), zap.String("shareID", shareID))
	return nil
}

// authorize 依次检查：是否存在、是否过期、密码
func (s *shareService) authorize(ctx context.Context, token, password string) (*models.Share, models.ShareTarget, error) {
	share, err := s.shareRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, models.ShareTarget{}, wrapError(err)
	}
	if share.IsExpired(s.now()) {
		return nil, models.ShareTarget{}, fmt.Errorf("share service: %w", xerr.ErrShareExpired)
	}
	if share.HasPassword() {
		if password == "" {
			return nil, models.ShareTarget{}, fmt.Errorf("share service: %w", xerr.ErrSharePasswordRequired)
		}
		if !utils.CheckPasswordHash(password, *share.PasswordHash) {
			logger.Warn("authorize: Incorrect share password", zap.String("shareID", share.ID))
			return nil, models.ShareTarget{}, fmt.Errorf("share service: %w", xerr.ErrSharePasswordIncorrect)
		}
	}
	target := share.Target()
	if !target.Valid() {
		logger.Error("authorize: Share has no single target", zap.String("shareID", share.ID))
		return nil, models.ShareTarget{}, fmt.Errorf("share service: %w", xerr.ErrInvariantViolation)
	}
	return share, target, nil
}

func (s *shareService) countAccess(ctx context.Context, share *models.Share) (int64, error) {
	count, err := s.shareRepo.IncrementDownloadCount(ctx, share)
	if err != nil {
		return 0, wrapError(err)
	}
	return count, nil
}

func (s *shareService) Resolve(ctx context.Context, token, password string) (*ShareView, error) {
	share, target, err := s.authorize(ctx, token, password)
	if err != nil {
		return nil, err
	}

	var view *ShareView
	switch target.Kind {
	case models.TargetFile:
		file, err := s.targetFile(ctx, share, target.ID)
		if err != nil {
			return nil, err
		}
		view = &ShareView{
			Type:         models.TargetFile,
			Name:         file.DisplayName(),
			OriginalName: file.OriginalName,
			Size:         file.Size,
			MimeType:     file.MimeType,
		}
	case models.TargetFolder:
		folder, err := s.targetFolder(ctx, share, target.ID)
		if err != nil {
			return nil, err
		}
		contents, err := s.listDirect(ctx, share.UserID, folder.ID)
		if err != nil {
			return nil, err
		}
		view = &ShareView{Type: models.TargetFolder, Name: folder.Name, Contents: contents}
	}

	if view.DownloadCount, err = s.countAccess(ctx, share); err != nil {
		return nil, err
	}
	logger.Info("ResolveShare: Share accessed", zap.String("shareID", share.ID), zap.Int64("downloadCount", view.DownloadCount))
	return view, nil
}

func (s *shareService) listDirect(ctx context.Context, ownerID, folderID string) (*SharedFolderContents, error) {
	files, err := s.fileRepo.FindInFolder(ctx, ownerID, &folderID, false)
	if err != nil {
		return nil, wrapError(err)
	}
	folders, err := s.folderRepo.FindChildren(ctx, ownerID, &folderID, false)
	if err != nil {
		return nil, wrapError(err)
	}

	contents := &SharedFolderContents{
		Files:   make([]SharedFile, 0, len(files)),
		Folders: make([]SharedFolder, 0, len(folders)),
	}
	for _, f := range files {
		contents.Files = append(contents.Files, SharedFile{ID: f.ID, Name: f.DisplayName(), Size: f.Size, MimeType: f.MimeType})
	}
	for _, f := range folders {
		contents.Folders = append(contents.Folders, SharedFolder{ID: f.ID, Name: f.Name})
	}
	return contents, nil
}

func (s *shareService) Download(ctx context.Context, token, password, fileID string) (*ShareDownload, error) {
	share, target, err := s.authorize(ctx, token, password)
	if err != nil {
		return nil, err
	}

	switch target.Kind {
	case models.TargetFile:
		if fileID != "" && fileID != target.ID {
			return nil, fmt.Errorf("share service: %w", xerr.ErrShareFileNotFound)
		}
		file, err := s.targetFile(ctx, share, target.ID)
		if err != nil {
			return nil, err
		}
		return s.streamFile(ctx, share, file)

	default:
		folder, err := s.targetFolder(ctx, share, target.ID)
		if err != nil {
			return nil, err
		}
		if fileID != "" {
			file, err := s.fileInSubtree(ctx, share.UserID, folder.ID, fileID)
			if err != nil {
				return nil, err
			}
			return s.streamFile(ctx, share, file)
		}

		count, err := s.countAccess(ctx, share)
		if err != nil {
			return nil, err
		}
		logger.Info("DownloadShare: Streaming shared folder", zap.String("shareID", share.ID), zap.String("folderID", folder.ID))
		return &ShareDownload{
			FileName:      explorer.ArchiveName(folder),
			MimeType:      "application/zip",
			Size:          -1,
			Reader:        s.zipStreamer.Stream(ctx, folder),
			DownloadCount: count,
		}, nil
	}
}

// streamFile 先确认对象存在再计数
func (s *shareService) streamFile(ctx context.Context, share *models.Share, file *models.File) (*ShareDownload, error) {
	exists, err := s.storage.ObjectExists(ctx, file.Bucket, file.BlobPath)
	if err != nil {
		logger.Error("DownloadShare: Failed to check blob", zap.String("fileID", file.ID), zap.Error(err))
		return nil, fmt.Errorf("share service: %w: %v", xerr.ErrStorageError, err)
	}
	if !exists {
		return nil, fmt.Errorf("share service: %w", xerr.ErrBlobNotFound)
	}

	count, err := s.countAccess(ctx, share)
	if err != nil {
		return nil, err
	}
	reader, err := explorer.OpenBlob(ctx, s.storage, file)
	if err != nil {
		return nil, fmt.Errorf("share service: %w", err)
	}
	logger.Info("DownloadShare: Streaming shared file", zap.String("shareID", share.ID), zap.String("fileID", file.ID))
	return &ShareDownload{
		FileName:      file.DisplayName(),
		MimeType:      file.MimeType,
		Size:          file.Size,
		Reader:        reader,
		DownloadCount: count,
	}, nil
}

func (s *shareService) targetFile(ctx context.Context, share *models.Share, fileID string) (*models.File, error) {
	file, err := s.fileRepo.FindActiveByID(ctx, share.UserID, fileID)
	if err != nil {
		if errors.Is(err, xerr.ErrFileNotFound) {
			return nil, fmt.Errorf("share service: %w", xerr.ErrShareTargetGone)
		}
		return nil, wrapError(err)
	}
	return file, nil
}

func (s *shareService) targetFolder(ctx context.Context, share *models.Share, folderID string) (*models.Folder, error) {
	folder, err := s.folderRepo.FindActiveByID(ctx, share.UserID, folderID)
	if err != nil {
		if errors.Is(err, xerr.ErrFolderNotFound) {
			return nil, fmt.Errorf("share service: %w", xerr.ErrShareTargetGone)
		}
		return nil, wrapError(err)
	}
	return folder, nil
}

// fileInSubtree 从文件所在目录向上查找，必须只经过未删除的目录到达分享的根目录
func (s *shareService) fileInSubtree(ctx context.Context, ownerID, rootID, fileID string) (*models.File, error) {
	file, err := s.fileRepo.FindActiveByID(ctx, ownerID, fileID)
	if err != nil {
		if errors.Is(err, xerr.ErrFileNotFound) {
			return nil, fmt.Errorf("share service: %w", xerr.ErrShareFileNotFound)
		}
		return nil, wrapError(err)
	}

	visited := make(map[string]struct{})
	current := file.FolderID
	for current != nil {
		if *current == rootID {
			return file, nil
		}
		if _, seen := visited[*current]; seen {
			return nil, fmt.Errorf("share service: %w", xerr.ErrInvariantViolation)
		}
		visited[*current] = struct{}{}

		// 回收站中的目录不算分享内容，与 zip 下载保持一致
		folder, err := s.folderRepo.FindActiveByID(ctx, ownerID, *current)
		if err != nil {
			if errors.Is(err, xerr.ErrFolderNotFound) {
				break
			}
			return nil, wrapError(err)
		}
		current = folder.ParentID
	}
	logger.Warn("DownloadShare: Requested file is outside the shared folder", zap.String("fileID", fileID), zap.String("folderID", rootID))
	return nil, fmt.Errorf("share service: %w", xerr.ErrShareFileNotFound)
}

func wrapError(err error) error {
	if xerr.Kind(err) != xerr.KindInternal {
		return fmt.Errorf("share service: %w", err)
	}
	if xerr.Is(err, xerr.ErrInvariantViolation) || xerr.Is(err, xerr.ErrStorageError) {
		return fmt.Errorf("share service: %w", err)
	}
	return fmt.Errorf("share service: %w: %v", xerr.ErrDatabaseError, err)
}
