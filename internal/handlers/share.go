package handlers

import (
	"net/http"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/utils"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/services/share"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ShareHandler struct {
	shareService share.ShareService
}

func NewShareHandler(shareService share.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

// CreateFileShare 为文件创建分享链接
// @Summary 创建文件分享
// @Tags 分享
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "文件ID"
// @Param request body share.CreateShareRequest false "过期时间和访问密码"
// @Success 201 {object} xerr.Response
// @Failure 404 {object} xerr.Response "文件不存在"
// @Router /api/shares/file/{id} [post]
func (h *ShareHandler) CreateFileShare(c *gin.Context) {
	h.create(c, models.FileTarget(c.Param("id")))
}

// CreateFolderShare 为目录创建分享链接
// @Summary 创建目录分享
// @Tags 分享
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "目录ID"
// @Param request body share.CreateShareRequest false "过期时间和访问密码"
// @Success 201 {object} xerr.Response
// @Failure 404 {object} xerr.Response "目录不存在"
// @Router /api/shares/folder/{id} [post]
func (h *ShareHandler) CreateFolderShare(c *gin.Context) {
	h.create(c, models.FolderTarget(c.Param("id")))
}

func (h *ShareHandler) create(c *gin.Context, target models.ShareTarget) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req share.CreateShareRequest
	// 请求体可以为空
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	info, err := h.shareService.Create(c.Request.Context(), userID, target, req)
	if err != nil {
		respondError(c, "CreateShare", err)
		return
	}
	xerr.Success(c, http.StatusCreated, "Share link created", info)
}

// @Summary 列出文件的分享
// @Tags 分享
// @Produce json
// @Security BearerAuth
// @Param id path string true "文件ID"
// @Success 200 {object} xerr.Response
// @Router /api/shares/file/{id} [get]
func (h *ShareHandler) ListFileShares(c *gin.Context) {
	h.list(c, models.FileTarget(c.Param("id")))
}

// @Summary 列出目录的分享
// @Tags 分享
// @Produce json
// @Security BearerAuth
// @Param id path string true "目录ID"
// @Success 200 {object} xerr.Response
// @Router /api/shares/folder/{id} [get]
func (h *ShareHandler) ListFolderShares(c *gin.Context) {
	h.list(c, models.FolderTarget(c.Param("id")))
}

func (h *ShareHandler) list(c *gin.Context, target models.ShareTarget) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	shares, err := h.shareService.ListForTarget(c.Request.Context(), userID, target)
	if err != nil {
		respondError(c, "ListShares", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Shares retrieved successfully", shares)
}

// @Summary 删除分享
// @Tags 分享
// @Produce json
// @Security BearerAuth
// @Param id path string true "分享ID"
// @Success 200 {object} xerr.Response
// @Failure 404 {object} xerr.Response
// @Router /api/shares/{id} [delete]
func (h *ShareHandler) Delete(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.shareService.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, "DeleteShare", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Share deleted successfully", nil)
}

// Access 公开访问分享
// @Summary 访问分享链接
// @Description 无需登录。设置了密码的分享需要通过 password 参数提供密码
// @Tags 公开分享
// @Produce json
// @Param token path string true "分享 token"
// @Param password query string false "访问密码"
// @Success 200 {object} xerr.Response
// @Failure 401 {object} xerr.Response "需要密码或密码错误"
// @Failure 404 {object} xerr.Response "分享不存在"
// @Failure 410 {object} xerr.Response "分享已过期"
// @Router /api/public/share/{token} [get]
func (h *ShareHandler) Access(c *gin.Context) {
	view, err := h.shareService.Resolve(c.Request.Context(), c.Param("token"), c.Query("password"))
	if err != nil {
		respondError(c, "AccessShare", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Share retrieved successfully", view)
}

// Download 公开下载分享内容，目录以 zip 形式下载
// @Summary 下载分享内容
// @Tags 公开分享
// @Produce application/octet-stream
// @Param token path string true "分享 token"
// @Param password query string false "访问密码"
// @Param file_id query string false "目录分享中的单个文件ID"
// @Success 200 {file} file "文件内容"
// @Failure 401 {object} xerr.Response
// @Failure 404 {object} xerr.Response
// @Failure 410 {object} xerr.Response
// @Router /api/public/share/{token}/download [get]
func (h *ShareHandler) Download(c *gin.Context) {
	token := c.Param("token")
	fileID := firstQuery(c, "file_id", "fileId")

	dl, err := h.shareService.Download(c.Request.Context(), token, c.Query("password"), fileID)
	if err != nil {
		respondError(c, "DownloadShare", err)
		return
	}
	defer dl.Reader.Close()

	logger.Info("DownloadShare: Serving shared content",
		zap.String("fileName", dl.FileName),
		zap.Int64("downloadCount", dl.DownloadCount))

	extraHeaders := map[string]string{
		"Content-Disposition": utils.ContentDisposition("attachment", dl.FileName),
	}
	c.DataFromReader(http.StatusOK, dl.Size, dl.MimeType, dl.Reader, extraHeaders)
}
