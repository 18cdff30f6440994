package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/3Eeeecho/supfile/internal/pkg/utils"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/services/explorer"
	"github.com/gin-gonic/gin"
)

type FolderHandler struct {
	folderService explorer.FolderService
}

func NewFolderHandler(folderService explorer.FolderService) *FolderHandler {
	return &FolderHandler{folderService: folderService}
}

type CreateFolderRequest struct {
	Name     string  `json:"name" binding:"required"`
	ParentID *string `json:"parent_id"`
}

type RenameRequest struct {
	Name string `json:"name" binding:"required"`
}

// MoveRequest 目标为空表示移动到根目录
type MoveRequest struct {
	ParentID *string `json:"parent_id"`
	FolderID *string `json:"folder_id"`
}

// UnmarshalJSON 同时接受 parent_id 和 parentId
func (r *CreateFolderRequest) UnmarshalJSON(data []byte) error {
	type plain CreateFolderRequest
	var camel struct {
		ParentID *string `json:"parentId"`
	}
	if err := json.Unmarshal(data, (*plain)(r)); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &camel); err != nil {
		return err
	}
	if r.ParentID == nil {
		r.ParentID = camel.ParentID
	}
	return nil
}

func (r *MoveRequest) UnmarshalJSON(data []byte) error {
	type plain MoveRequest
	var camel struct {
		ParentID *string `json:"parentId"`
		FolderID *string `json:"folderId"`
	}
	if err := json.Unmarshal(data, (*plain)(r)); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &camel); err != nil {
		return err
	}
	if r.ParentID == nil {
		r.ParentID = camel.ParentID
	}
	if r.FolderID == nil {
		r.FolderID = camel.FolderID
	}
	return nil
}

func (r MoveRequest) target() *string {
	if r.ParentID != nil {
		return optionalID(*r.ParentID)
	}
	if r.FolderID != nil {
		return optionalID(*r.FolderID)
	}
	return nil
}

// Create 创建目录
// @Summary 创建目录
// @Tags 目录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateFolderRequest true "目录名和父目录"
// @Success 201 {object} xerr.Response
// @Failure 400 {object} xerr.Response "名称无效"
// @Failure 404 {object} xerr.Response "父目录不存在"
// @Failure 409 {object} xerr.Response "同名目录已存在"
// @Router /api/folders [post]
func (h *FolderHandler) Create(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	var parentID *string
	if req.ParentID != nil {
		parentID = optionalID(*req.ParentID)
	}

	folder, err := h.folderService.Create(c.Request.Context(), userID, req.Name, parentID)
	if err != nil {
		respondError(c, "CreateFolder", err)
		return
	}
	xerr.Success(c, http.StatusCreated, "Folder created successfully", folder)
}

// List 列出某个目录下的子目录
// @Summary 列出子目录
// @Tags 目录
// @Produce json
// @Security BearerAuth
// @Param parent_id query string false "父目录ID，为空表示根目录"
// @Param include_deleted query bool false "是否包含回收站中的目录"
// @Success 200 {object} xerr.Response
// @Router /api/folders [get]
func (h *FolderHandler) List(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	parentID := optionalID(firstQuery(c, "parent_id", "parentId"))
	includeDeleted := queryBool(c, "include_deleted", "includeDeleted")

	folders, err := h.folderService.List(c.Request.Context(), userID, parentID, includeDeleted)
	if err != nil {
		respondError(c, "ListFolders", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Folders retrieved successfully", folders)
}

// Get 目录详情和直接子项
// @Summary 获取目录内容
// @Tags 目录
// @Produce json
// @Security BearerAuth
// @Param id path string true "目录ID"
// @Success 200 {object} xerr.Response
// @Failure 404 {object} xerr.Response
// @Router /api/folders/{id} [get]
func (h *FolderHandler) Get(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	contents, err := h.folderService.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, "GetFolder", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Folder retrieved successfully", contents)
}

// @Summary 重命名目录
// @Tags 目录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "目录ID"
// @Param request body RenameRequest true "新名称"
// @Success 200 {object} xerr.Response
// @Failure 409 {object} xerr.Response
// @Router /api/folders/{id}/rename [patch]
func (h *FolderHandler) Rename(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	folder, err := h.folderService.Rename(c.Request.Context(), userID, c.Param("id"), req.Name)
	if err != nil {
		respondError(c, "RenameFolder", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Folder renamed successfully", folder)
}

// Move 移动目录，不能移动到自身或子孙目录下
// @Summary 移动目录
// @Tags 目录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "目录ID"
// @Param request body MoveRequest true "新的父目录，为空表示根目录"
// @Success 200 {object} xerr.Response
// @Failure 400 {object} xerr.Response "移动到自身或子目录"
// @Router /api/folders/{id}/move [patch]
func (h *FolderHandler) Move(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	folder, err := h.folderService.Move(c.Request.Context(), userID, c.Param("id"), req.target())
	if err != nil {
		respondError(c, "MoveFolder", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Folder moved successfully", folder)
}

// Delete 把目录及其整棵子树移入回收站
// @Summary 删除目录 (移入回收站)
// @Tags 目录
// @Produce json
// @Security BearerAuth
// @Param id path string true "目录ID"
// @Success 200 {object} xerr.Response
// @Router /api/folders/{id} [delete]
func (h *FolderHandler) Delete(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	result, err := h.folderService.SoftDelete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, "SoftDeleteFolder", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Folder moved to recycle bin", result)
}

// @Summary 从回收站恢复目录
// @Tags 目录
// @Produce json
// @Security BearerAuth
// @Param id path string true "目录ID"
// @Success 200 {object} xerr.Response
// @Failure 400 {object} xerr.Response "目录不在回收站中"
// @Router /api/folders/{id}/restore [patch]
func (h *FolderHandler) Restore(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	result, err := h.folderService.Restore(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, "RestoreFolder", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Folder restored successfully", result)
}

// @Summary 收藏/取消收藏目录
// @Tags 目录
// @Produce json
// @Security BearerAuth
// @Param id path string true "目录ID"
// @Success 200 {object} xerr.Response
// @Router /api/folders/{id}/favorite [post]
func (h *FolderHandler) ToggleFavorite(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	folder, err := h.folderService.ToggleFavorite(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, "ToggleFolderFavorite", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Favorite status updated", folder)
}

// Download 以 zip 流的形式下载目录
// @Summary 下载目录 (zip)
// @Tags 目录
// @Produce application/zip
// @Security BearerAuth
// @Param id path string true "目录ID"
// @Success 200 {file} file "zip 文件流"
// @Failure 404 {object} xerr.Response
// @Router /api/folders/{id}/download [get]
func (h *FolderHandler) Download(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	folder, reader, err := h.folderService.Download(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, "DownloadFolder", err)
		return
	}
	defer reader.Close()

	extraHeaders := map[string]string{
		"Content-Disposition": utils.ContentDisposition("attachment", explorer.ArchiveName(folder)),
	}
	c.DataFromReader(http.StatusOK, -1, "application/zip", reader, extraHeaders)
}
