package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError 把服务层错误映射成 HTTP 状态码和业务码
func respondError(c *gin.Context, op string, err error) {
	kind, status, code := xerr.Classify(err)
	message := xerr.PublicMessage(err)

	if kind == xerr.KindInternal {
		logger.Error(op+": Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		logger.Debug(op+": Request rejected", zap.String("kind", string(kind)), zap.Error(err))
	}

	var quotaErr *xerr.QuotaError
	switch {
	case errors.As(err, &quotaErr):
		xerr.JSONResponse(c, status, code, message, quotaErr)
	case errors.Is(err, xerr.ErrSharePasswordRequired), errors.Is(err, xerr.ErrSharePasswordIncorrect):
		xerr.JSONResponse(c, status, code, message, gin.H{"requires_password": true})
	default:
		xerr.Error(c, status, code, message)
	}
}

func badRequest(c *gin.Context, message string) {
	xerr.Error(c, 400, xerr.InvalidParamsCode, message)
}

// firstQuery 依次读取多个参数名，兼容 snake_case 和 camelCase
func firstQuery(c *gin.Context, keys ...string) string {
	for _, key := range keys {
		if v, ok := c.GetQuery(key); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func firstPostForm(c *gin.Context, keys ...string) string {
	for _, key := range keys {
		if v, ok := c.GetPostForm(key); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// optionalID 空字符串和 "root" 都表示根目录
func optionalID(value string) *string {
	if value == "" || value == "root" || value == "null" {
		return nil
	}
	return &value
}

func queryBool(c *gin.Context, keys ...string) bool {
	b, err := strconv.ParseBool(firstQuery(c, keys...))
	return err == nil && b
}

// queryInt 解析失败时返回 fallback
func queryInt(c *gin.Context, fallback int, keys ...string) int {
	n, err := strconv.Atoi(firstQuery(c, keys...))
	if err != nil {
		return fallback
	}
	return n
}
