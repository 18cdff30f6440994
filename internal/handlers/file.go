package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/pkg/utils"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/services/explorer"
	"github.com/gin-gonic/gin"
)

type FileHandler struct {
	fileService explorer.FileService
	maxFiles    int
}

func NewFileHandler(fileService explorer.FileService, maxFiles int) *FileHandler {
	return &FileHandler{fileService: fileService, maxFiles: maxFiles}
}

// List 列出目录下的文件
// @Summary 列出文件
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param folder_id query string false "目录ID，为空表示根目录"
// @Param include_deleted query bool false "是否包含回收站中的文件"
// @Success 200 {object} xerr.Response
// @Router /api/files [get]
func (h *FileHandler) List(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	folderID := optionalID(firstQuery(c, "folder_id", "folderId"))
	includeDeleted := queryBool(c, "include_deleted", "includeDeleted")

	files, err := h.fileService.List(c.Request.Context(), userID, folderID, includeDeleted)
	if err != nil {
		respondError(c, "ListFiles", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Files retrieved successfully", files)
}

// Download 下载文件
// @Summary 下载文件
// @Tags 文件
// @Produce application/octet-stream
// @Security BearerAuth
// @Param id path string true "文件ID"
// @Success 200 {file} file "文件内容"
// @Failure 404 {object} xerr.Response "文件或物理文件不存在"
// @Router /api/files/{id}/download [get]
func (h *FileHandler) Download(c *gin.Context) {
	h.serve(c, "DownloadFile", "attachment", h.fileService.Download)
}

// Preview 以 inline 方式返回文件内容供浏览器预览
// @Summary 预览文件
// @Tags 文件
// @Produce application/octet-stream
// @Security BearerAuth
// @Param id path string true "文件ID"
// @Success 200 {file} file "文件内容"
// @Router /api/files/{id}/preview [get]
func (h *FileHandler) Preview(c *gin.Context) {
	h.serve(c, "PreviewFile", "inline", h.fileService.Preview)
}

type openFileFunc func(ctx context.Context, userID, fileID string) (*models.File, io.ReadCloser, error)

func (h *FileHandler) serve(c *gin.Context, op, disposition string, open openFileFunc) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	file, reader, err := open(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, op, err)
		return
	}
	defer reader.Close()

	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	extraHeaders := map[string]string{
		"Content-Disposition": utils.ContentDisposition(disposition, file.OriginalName),
	}
	c.DataFromReader(http.StatusOK, file.Size, mimeType, reader, extraHeaders)
}

// @Summary 获取文件预览信息
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param id path string true "文件ID"
// @Success 200 {object} xerr.Response
// @Router /api/files/{id}/preview-info [get]
func (h *FileHandler) PreviewInfo(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	info, err := h.fileService.PreviewInfo(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, "PreviewInfo", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Preview info retrieved successfully", info)
}

// @Summary 重命名文件
// @Tags 文件
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "文件ID"
// @Param request body RenameRequest true "新名称"
// @Success 200 {object} xerr.Response
// @Failure 409 {object} xerr.Response "同名文件已存在"
// @Router /api/files/{id}/rename [patch]
func (h *FileHandler) Rename(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	file, err := h.fileService.Rename(c.Request.Context(), userID, c.Param("id"), req.Name)
	if err != nil {
		respondError(c, "RenameFile", err)
		return
	}
	xerr.Success(c, http.StatusOK, "File renamed successfully", file)
}

// @Summary 移动文件
// @Tags 文件
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "文件ID"
// @Param request body MoveRequest true "目标目录，为空表示根目录"
// @Success 200 {object} xerr.Response
// @Router /api/files/{id}/move [patch]
func (h *FileHandler) Move(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	file, err := h.fileService.Move(c.Request.Context(), userID, c.Param("id"), req.target())
	if err != nil {
		respondError(c, "MoveFile", err)
		return
	}
	xerr.Success(c, http.StatusOK, "File moved successfully", file)
}

// @Summary 收藏/取消收藏文件
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param id path string true "文件ID"
// @Success 200 {object} xerr.Response
// @Router /api/files/{id}/favorite [post]
func (h *FileHandler) ToggleFavorite(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	file, err := h.fileService.ToggleFavorite(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, "ToggleFileFavorite", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Favorite status updated", file)
}

// Delete 把文件移入回收站，不释放空间
// @Summary 删除文件 (移入回收站)
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param id path string true "文件ID"
// @Success 200 {object} xerr.Response
// @Router /api/files/{id} [delete]
func (h *FileHandler) Delete(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	file, err := h.fileService.SoftDelete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, "SoftDeleteFile", err)
		return
	}
	xerr.Success(c, http.StatusOK, "File moved to recycle bin", file)
}

// @Summary 从回收站恢复文件
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param id path string true "文件ID"
// @Success 200 {object} xerr.Response
// @Router /api/files/{id}/restore [patch]
func (h *FileHandler) Restore(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	file, err := h.fileService.Restore(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, "RestoreFile", err)
		return
	}
	xerr.Success(c, http.StatusOK, "File restored successfully", file)
}

// PermanentDelete 彻底删除文件并释放空间
// @Summary 彻底删除文件
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param id path string true "文件ID"
// @Success 200 {object} xerr.Response
// @Router /api/files/{id}/permanent [delete]
func (h *FileHandler) PermanentDelete(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	usage, err := h.fileService.PermanentDelete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, "PermanentDeleteFile", err)
		return
	}
	xerr.Success(c, http.StatusOK, "File permanently deleted", usage)
}

// EmptyTrash 清空回收站中的文件
// @Summary 清空回收站
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Success 200 {object} xerr.Response
// @Router /api/files/trash/empty [delete]
func (h *FileHandler) EmptyTrash(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	result, err := h.fileService.EmptyTrash(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "EmptyTrash", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Recycle bin emptied", result)
}
