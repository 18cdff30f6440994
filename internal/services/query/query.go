package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/search"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/repositories"
	"go.uber.org/zap"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// 搜索引擎最多返回的候选数量
	maxCandidates = 1000

	TypeAll    = "all"
	TypeFile   = "file"
	TypeFolder = "folder"

	// RootFolder 高级搜索中表示根目录
	RootFolder = "root"
)

// QueryService 只读查询
type QueryService interface {
	Trash(ctx context.Context, userID string) (*Listing, error)
	Favorites(ctx context.Context, userID string) (*Listing, error)
	Recents(ctx context.Context, userID string, limit int) (*Listing, error)
	Search(ctx context.Context, userID string, req SearchRequest) (*SearchResult, error)
	AdvancedSearch(ctx context.Context, userID string, req AdvancedSearchRequest) (*SearchResult, error)
}

type Listing struct {
	Files   []models.File   `json:"files"`
	Folders []models.Folder `json:"folders"`
}

type SearchRequest struct {
	Query  string
	Type   string
	Limit  int
	Offset int
}

type AdvancedSearchRequest struct {
	Query          string     `json:"query"`
	Type           string     `json:"type"`
	MimeType       string     `json:"mime_type"`
	MinSize        *int64     `json:"min_size"`
	MaxSize        *int64     `json:"max_size"`
	CreatedAfter   *time.Time `json:"created_after"`
	CreatedBefore  *time.Time `json:"created_before"`
	ModifiedAfter  *time.Time `json:"modified_after"`
	ModifiedBefore *time.Time `json:"modified_before"`
	FolderID       string     `json:"folder_id"`
	Limit          int        `json:"limit"`
	Offset         int        `json:"offset"`
}

// advancedSearchCamel 前端使用的 camelCase 字段
type advancedSearchCamel struct {
	MimeType       *string    `json:"mimeType"`
	MinSize        *int64     `json:"minSize"`
	MaxSize        *int64     `json:"maxSize"`
	CreatedAfter   *time.Time `json:"createdAfter"`
	CreatedBefore  *time.Time `json:"createdBefore"`
	ModifiedAfter  *time.Time `json:"modifiedAfter"`
	ModifiedBefore *time.Time `json:"modifiedBefore"`
	FolderID       *string    `json:"folderId"`
}

// UnmarshalJSON 同时接受 snake_case 和 camelCase，snake_case 优先
func (r *AdvancedSearchRequest) UnmarshalJSON(data []byte) error {
	type plain AdvancedSearchRequest
	var camel advancedSearchCamel
	if err := json.Unmarshal(data, (*plain)(r)); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &camel); err != nil {
		return err
	}
	if r.MimeType == "" && camel.MimeType != nil {
		r.MimeType = *camel.MimeType
	}
	if r.FolderID == "" && camel.FolderID != nil {
		r.FolderID = *camel.FolderID
	}
	fillInt64(&r.MinSize, camel.MinSize)
	fillInt64(&r.MaxSize, camel.MaxSize)
	fillTime(&r.CreatedAfter, camel.CreatedAfter)
	fillTime(&r.CreatedBefore, camel.CreatedBefore)
	fillTime(&r.ModifiedAfter, camel.ModifiedAfter)
	fillTime(&r.ModifiedBefore, camel.ModifiedBefore)
	return nil
}

func fillInt64(dst **int64, v *int64) {
	if *dst == nil {
		*dst = v
	}
}

func fillTime(dst **time.Time, v *time.Time) {
	if *dst == nil {
		*dst = v
	}
}

type SearchResult struct {
	Query   string          `json:"query"`
	Files   []models.File   `json:"files"`
	Folders []models.Folder `json:"folders"`
	Total   int             `json:"total"`
}

type queryService struct {
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
	index      search.Index
}

var _ QueryService = (*queryService)(nil)

func NewQueryService(folderRepo repositories.FolderRepository, fileRepo repositories.FileRepository, index search.Index) QueryService {
	if index == nil {
		index = search.NoopIndex{}
	}
	return &queryService{folderRepo: folderRepo, fileRepo: fileRepo, index: index}
}

// NormalizeLimit 非法值使用默认值，超过上限时截断
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func NormalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func wantFiles(kind string) bool {
	return kind != TypeFolder
}

func wantFolders(kind string) bool {
	return kind != TypeFile
}

func normalizeType(kind string) string {
	switch kind {
	case TypeFile, TypeFolder:
		return kind
	default:
		return TypeAll
	}
}

func (s *queryService) Trash(ctx context.Context, userID string) (*Listing, error) {
	files, err := s.fileRepo.ListDeleted(ctx, userID)
	if err != nil {
		return nil, wrapError(err)
	}
	folders, err := s.folderRepo.ListDeleted(ctx, userID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &Listing{Files: files, Folders: folders}, nil
}

func (s *queryService) Favorites(ctx context.Context, userID string) (*Listing, error) {
	files, err := s.fileRepo.ListFavorites(ctx, userID)
	if err != nil {
		return nil, wrapError(err)
	}
	folders, err := s.folderRepo.ListFavorites(ctx, userID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &Listing{Files: files, Folders: folders}, nil
}

func (s *queryService) Recents(ctx context.Context, userID string, limit int) (*Listing, error) {
	limit = NormalizeLimit(limit)
	files, err := s.fileRepo.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, wrapError(err)
	}
	folders, err := s.folderRepo.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, wrapError(err)
	}
	return &Listing{Files: files, Folders: folders}, nil
}

// candidates 搜索引擎可用时先取候选 ID，出错或候选达到上限时退回数据库模糊匹配
func (s *queryService) candidates(ctx context.Context, userID, kind, q string) []string {
	if !s.index.Enabled() {
		return nil
	}
	ids, err := s.index.SearchIDs(ctx, userID, kind, q, maxCandidates)
	if err != nil {
		logger.Warn("Search: Index query failed, falling back to database", zap.String("userID", userID), zap.Error(err))
		return nil
	}
	// 候选被截断时结果不完整，交给数据库匹配
	if len(ids) >= maxCandidates {
		logger.Warn("Search: Index candidates truncated, falling back to database", zap.String("userID", userID), zap.Int("candidates", len(ids)))
		return nil
	}
	if ids == nil {
		ids = []string{}
	}
	return ids
}

func (s *queryService) Search(ctx context.Context, userID string, req SearchRequest) (*SearchResult, error) {
	q := strings.TrimSpace(req.Query)
	if q == "" {
		return nil, fmt.Errorf("query service: %w", xerr.ErrSearchQueryRequired)
	}
	kind := normalizeType(req.Type)
	base := repositories.SearchFilter{
		Name:   q,
		Limit:  NormalizeLimit(req.Limit),
		Offset: NormalizeOffset(req.Offset),
	}

	result := &SearchResult{Query: q, Files: []models.File{}, Folders: []models.Folder{}}
	if wantFiles(kind) {
		filter := base
		filter.IDs = s.candidates(ctx, userID, search.KindFile, q)
		files, err := s.fileRepo.Search(ctx, userID, filter)
		if err != nil {
			return nil, wrapError(err)
		}
		result.Files = files
	}
	if wantFolders(kind) {
		filter := base
		filter.IDs = s.candidates(ctx, userID, search.KindFolder, q)
		folders, err := s.folderRepo.Search(ctx, userID, filter)
		if err != nil {
			return nil, wrapError(err)
		}
		result.Folders = folders
	}
	result.Total = len(result.Files) + len(result.Folders)
	return result, nil
}

// applyMimeCategory image/video/audio/document 是分类，其余按精确值匹配
func applyMimeCategory(filter *repositories.SearchFilter, mimeType string) {
	switch mimeType {
	case "":
	case "image", "video", "audio":
		filter.MimePrefixes = []string{mimeType + "/"}
	case "document":
		filter.MimeExacts = []string{"application/pdf", "application/msword"}
		filter.MimePrefixes = []string{"application/vnd.openxmlformats", "text/"}
	default:
		filter.MimeExact = mimeType
	}
}

func (s *queryService) AdvancedSearch(ctx context.Context, userID string, req AdvancedSearchRequest) (*SearchResult, error) {
	q := strings.TrimSpace(req.Query)
	kind := normalizeType(req.Type)
	if req.MinSize != nil && req.MaxSize != nil && *req.MinSize > *req.MaxSize {
		return nil, fmt.Errorf("query service: min size greater than max size: %w", xerr.ErrInvalidParams)
	}

	base := repositories.SearchFilter{
		Name:           q,
		CreatedAfter:   req.CreatedAfter,
		CreatedBefore:  req.CreatedBefore,
		ModifiedAfter:  req.ModifiedAfter,
		ModifiedBefore: req.ModifiedBefore,
		Limit:          NormalizeLimit(req.Limit),
		Offset:         NormalizeOffset(req.Offset),
	}
	if req.FolderID != "" {
		base.ScopeSet = true
		if req.FolderID != RootFolder {
			folderID := req.FolderID
			base.ScopeParentID = &folderID
		}
	}

	result := &SearchResult{Query: q, Files: []models.File{}, Folders: []models.Folder{}}
	if wantFiles(kind) {
		filter := base
		filter.MinSize = req.MinSize
		filter.MaxSize = req.MaxSize
		applyMimeCategory(&filter, req.MimeType)
		if q != "" {
			filter.IDs = s.candidates(ctx, userID, search.KindFile, q)
		}
		files, err := s.fileRepo.Search(ctx, userID, filter)
		if err != nil {
			return nil, wrapError(err)
		}
		result.Files = files
	}
	// 目录没有 mime 和大小，带了这些条件时不返回目录
	if wantFolders(kind) && req.MimeType == "" && req.MinSize == nil && req.MaxSize == nil {
		filter := base
		if q != "" {
			filter.IDs = s.candidates(ctx, userID, search.KindFolder, q)
		}
		folders, err := s.folderRepo.Search(ctx, userID, filter)
		if err != nil {
			return nil, wrapError(err)
		}
		result.Folders = folders
	}
	result.Total = len(result.Files) + len(result.Folders)
	return result, nil
}

func wrapError(err error) error {
	if xerr.Kind(err) != xerr.KindInternal {
		return fmt.Errorf("query service: %w", err)
	}
	return fmt.Errorf("query service: %w: %v", xerr.ErrDatabaseError, err)
}
