package middlewares

import (
	"net/http"
	"strings"

	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/utils"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func AuthMiddleware(secretKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 从请求头获取 Token
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			xerr.AbortWithError(c, http.StatusUnauthorized, xerr.UnauthorizedCode, "Authorization header is required")
			return
		}

		// Token 格式为 "Bearer <token>"
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			xerr.AbortWithError(c, http.StatusUnauthorized, xerr.UnauthorizedCode, "Invalid Authorization header format")
			return
		}

		// 2. 校验签名和有效期
		claims, err := utils.ParseToken(parts[1], secretKey)
		if err != nil {
			logger.Debug("AuthMiddleware: Token rejected", zap.Error(err))
			xerr.AbortWithError(c, http.StatusUnauthorized, xerr.TokenInvalidCode, "Invalid or expired token")
			return
		}

		// 3. 写入上下文，后续 Handler 通过 utils.GetUserIDFromContext 读取
		c.Set(utils.ContextUserIDKey, claims.UserID)
		c.Set("email", claims.Email)

		c.Next()
	}
}
