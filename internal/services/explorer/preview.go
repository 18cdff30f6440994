package explorer

import (
	"context"
	"io"
	"strings"

	"github.com/3Eeeecho/supfile/internal/models"
)

const (
	PreviewImage = "image"
	PreviewVideo = "video"
	PreviewAudio = "audio"
	PreviewPDF   = "pdf"
	PreviewText  = "text"
	PreviewNone  = "none"
)

var textMimeTypes = map[string]struct{}{
	"application/json":       {},
	"application/javascript": {},
	"application/xml":        {},
}

type PreviewInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mime_type"`
	Size        int64  `json:"size"`
	PreviewType string `json:"preview_type"`
	CanPreview  bool   `json:"can_preview"`
}

// PreviewType 根据 mime 类型决定前端的预览方式
func PreviewType(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return PreviewImage
	case strings.HasPrefix(mimeType, "video/"):
		return PreviewVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return PreviewAudio
	case mimeType == "application/pdf":
		return PreviewPDF
	case strings.HasPrefix(mimeType, "text/"):
		return PreviewText
	}
	if _, ok := textMimeTypes[mimeType]; ok {
		return PreviewText
	}
	return PreviewNone
}

func (s *fileService) PreviewInfo(ctx context.Context, userID, fileID string) (*PreviewInfo, error) {
	file, err := s.fileRepo.FindActiveByID(ctx, userID, fileID)
	if err != nil {
		return nil, wrapServiceError("file service", err)
	}
	previewType := PreviewType(file.MimeType)
	return &PreviewInfo{
		ID:          file.ID,
		Name:        file.DisplayName(),
		MimeType:    file.MimeType,
		Size:        file.Size,
		PreviewType: previewType,
		CanPreview:  previewType != PreviewNone,
	}, nil
}

func (s *fileService) Preview(ctx context.Context, userID, fileID string) (*models.File, io.ReadCloser, error) {
	file, err := s.fileRepo.FindActiveByID(ctx, userID, fileID)
	if err != nil {
		return nil, nil, wrapServiceError("file service", err)
	}
	reader, err := OpenBlob(ctx, s.storage, file)
	if err != nil {
		return nil, nil, err
	}
	return file, reader, nil
}
