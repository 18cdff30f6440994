package handlers

import (
	"net/http"

	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/services/admin"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService admin.AuthService
}

func NewAuthHandler(authService admin.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register 用户注册
// @Summary 用户注册
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body admin.RegisterRequest true "注册信息"
// @Success 201 {object} xerr.Response "注册成功"
// @Failure 400 {object} xerr.Response "参数错误"
// @Failure 409 {object} xerr.Response "邮箱已被注册"
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req admin.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Register", err)
		return
	}
	xerr.Success(c, http.StatusCreated, "User registered successfully", user)
}

// Login 用户登录
// @Summary 用户登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} xerr.Response "登录成功，返回 JWT"
// @Failure 401 {object} xerr.Response "邮箱或密码错误"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, "Login", err)
		return
	}
	xerr.Success(c, http.StatusOK, "Login successful", result)
}
