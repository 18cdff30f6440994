package utils

import (
	"net/http"

	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/gin-gonic/gin"
)

// ContextUserIDKey 认证中间件写入 gin.Context 的键
const ContextUserIDKey = "userID"

// GetUserIDFromContext 从 gin 上下文中取出用户ID, 失败时直接中止请求
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ContextUserIDKey)
	if !exists {
		xerr.AbortWithError(c, http.StatusUnauthorized, xerr.UnauthorizedCode, "User ID not found in context")
		return "", false
	}
	currentUserID, ok := userID.(string)
	if !ok || currentUserID == "" {
		xerr.AbortWithError(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "Invalid user ID type in context")
		return "", false
	}
	return currentUserID, true
}
