package explorer

import (
	"context"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/search"
	"go.uber.org/zap"
)

// 名称索引只是加速搜索，写失败不影响主流程

func indexFolder(ctx context.Context, index search.Index, folder *models.Folder) {
	if index == nil || !index.Enabled() {
		return
	}
	doc := search.Document{ID: folder.ID, UserID: folder.UserID, Kind: search.KindFolder, Name: folder.Name}
	if err := index.Index(ctx, doc); err != nil {
		logger.Warn("indexFolder: Failed to index folder name", zap.String("folderID", folder.ID), zap.Error(err))
	}
}

func indexFile(ctx context.Context, index search.Index, file *models.File) {
	if index == nil || !index.Enabled() {
		return
	}
	doc := search.Document{
		ID:           file.ID,
		UserID:       file.UserID,
		Kind:         search.KindFile,
		Name:         file.Name,
		OriginalName: file.OriginalName,
	}
	if err := index.Index(ctx, doc); err != nil {
		logger.Warn("indexFile: Failed to index file name", zap.String("fileID", file.ID), zap.Error(err))
	}
}

func unindex(ctx context.Context, index search.Index, id string) {
	if index == nil || !index.Enabled() {
		return
	}
	if err := index.Remove(ctx, id); err != nil {
		logger.Warn("unindex: Failed to remove document", zap.String("id", id), zap.Error(err))
	}
}
