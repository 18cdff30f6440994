package handlers

import (
	"net/http"

	"github.com/3Eeeecho/supfile/internal/pkg/utils"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/services/query"
	"github.com/gin-gonic/gin"
)

type QueryHandler struct {
	queryService query.QueryService
}

func NewQueryHandler(queryService query.QueryService) *QueryHandler {
	return &QueryHandler{queryService: queryService}
}

// Trash 回收站中的文件和目录，按删除时间倒序
// @Summary 回收站列表
// @Tags 查询
// @Produce json
// @Security BearerAuth
// @Success 200 {object} xerr.Response
// @Router /api/trash [get]
func (h *QueryHandler) Trash(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	listing, err := h.queryService.Trash(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "ListTrash", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Recycle bin retrieved successfully", listing)
}

// @Summary 收藏列表
// @Tags 查询
// @Produce json
// @Security BearerAuth
// @Success 200 {object} xerr.Response
// @Router /api/favorites [get]
func (h *QueryHandler) Favorites(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	listing, err := h.queryService.Favorites(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "ListFavorites", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Favorites retrieved successfully", listing)
}

// @Summary 最近使用
// @Tags 查询
// @Produce json
// @Security BearerAuth
// @Param limit query int false "每类最多返回的条数" default(20)
// @Success 200 {object} xerr.Response
// @Router /api/recent [get]
func (h *QueryHandler) Recents(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit := queryInt(c, query.DefaultLimit, "limit")

	listing, err := h.queryService.Recents(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, "ListRecents", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Recent items retrieved successfully", listing)
}

// Search 按名称搜索
// @Summary 搜索文件和目录
// @Tags 查询
// @Produce json
// @Security BearerAuth
// @Param q query string true "关键字"
// @Param type query string false "all / file / folder" default(all)
// @Param limit query int false "分页大小" default(20)
// @Param offset query int false "偏移量" default(0)
// @Success 200 {object} xerr.Response
// @Failure 400 {object} xerr.Response "关键字为空"
// @Router /api/search [get]
func (h *QueryHandler) Search(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	req := query.SearchRequest{
		Query:  firstQuery(c, "q", "query"),
		Type:   firstQuery(c, "type"),
		Limit:  queryInt(c, query.DefaultLimit, "limit"),
		Offset: queryInt(c, 0, "offset"),
	}

	result, err := h.queryService.Search(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, "Search", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Search completed", result)
}

// AdvancedSearch 支持类型、大小、时间范围和目录范围过滤
// @Summary 高级搜索
// @Tags 查询
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body query.AdvancedSearchRequest true "过滤条件"
// @Success 200 {object} xerr.Response
// @Router /api/search/advanced [post]
func (h *QueryHandler) AdvancedSearch(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req query.AdvancedSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.queryService.AdvancedSearch(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, "AdvancedSearch", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Search completed", result)
}
