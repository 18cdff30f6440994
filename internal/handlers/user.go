package handlers

import (
	"net/http"

	"github.com/3Eeeecho/supfile/internal/pkg/utils"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/services/admin"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService admin.UserService
}

func NewUserHandler(userService admin.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetProfile 当前用户信息
// @Summary 获取当前用户信息和空间使用情况
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} xerr.Response
// @Failure 401 {object} xerr.Response
// @Router /api/users/me [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	profile, err := h.userService.GetUserProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "GetProfile", err)
		return
	}
	xerr.Success(c, http.StatusOK, "User profile retrieved successfully", profile)
}
