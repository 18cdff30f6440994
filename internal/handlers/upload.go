package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/utils"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/services/explorer"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UploadFieldName multipart 表单中文件字段名
const UploadFieldName = "files"

// Upload 批量上传文件
// @Summary 上传文件
// @Description 一次最多上传 upload.max_files 个文件，全部写入成功后才会计入空间配额
// @Tags 文件
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param files formData file true "要上传的文件，可以有多个"
// @Param folder_id formData string false "目标目录ID，为空表示根目录"
// @Success 201 {object} xerr.Response "上传成功"
// @Failure 400 {object} xerr.Response "参数错误"
// @Failure 413 {object} xerr.Response "超出空间配额"
// @Router /api/files/upload [post]
func (h *FileHandler) Upload(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "Invalid multipart form: "+err.Error())
		return
	}
	headers := form.File[UploadFieldName]
	if len(headers) == 0 {
		badRequest(c, "No files provided")
		return
	}
	if h.maxFiles > 0 && len(headers) > h.maxFiles {
		respondError(c, "UploadFile", fmt.Errorf("%w: %d files, limit %d", xerr.ErrTooManyFiles, len(headers), h.maxFiles))
		return
	}

	items := make([]explorer.UploadItem, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			if err := f.Close(); err != nil {
				logger.Warn("UploadFile: Failed to close multipart file", zap.Error(err))
			}
		}
	}()
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			logger.Error("UploadFile: Failed to open multipart file", zap.String("filename", header.Filename), zap.Error(err))
			xerr.Error(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "Failed to read uploaded file")
			return
		}
		opened = append(opened, f)
		items = append(items, explorer.UploadItem{
			OriginalName: header.Filename,
			MimeType:     header.Header.Get("Content-Type"),
			Size:         header.Size,
			Content:      f,
		})
	}

	folderID := optionalID(firstPostForm(c, "folder_id", "folderId"))
	result, err := h.fileService.Upload(c.Request.Context(), userID, folderID, items)
	if err != nil {
		respondError(c, "UploadFile", err)
		return
	}

	logger.Info("UploadFile: Files uploaded",
		zap.String("userID", userID),
		zap.Int("count", len(result.Files)),
		zap.Int64("storageUsed", result.StorageUsed))
	xerr.Success(c, http.StatusCreated, fmt.Sprintf("%d file(s) uploaded successfully", len(result.Files)), result)
}
