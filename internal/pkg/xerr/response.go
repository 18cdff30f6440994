package xerr

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
)

// CodeError 在服务层传递带业务码的错误
type CodeError struct {
	Code int
	Err  error
}

func (e *CodeError) Error() string {
	return e.Err.Error()
}

func (e *CodeError) Unwrap() error {
	return e.Err
}

func NewCodeError(code int, err error) *CodeError {
	return &CodeError{Code: code, Err: err}
}

// QuotaError 上传超出配额时携带的详细信息
type QuotaError struct {
	StorageUsed    int64 `json:"storage_used"`
	Quota          int64 `json:"quota"`
	RequiredSpace  int64 `json:"required_space"`
	AvailableSpace int64 `json:"available_space"`
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: need %d bytes, %d available", ErrQuotaExceeded.Error(), e.RequiredSpace, e.AvailableSpace)
}

func (e *QuotaError) Unwrap() error {
	return ErrQuotaExceeded
}

// NewQuotaError 按当前用量计算剩余空间
func NewQuotaError(used, quota, required int64) *QuotaError {
	available := quota - used
	if available < 0 {
		available = 0
	}
	return &QuotaError{
		StorageUsed:    used,
		Quota:          quota,
		RequiredSpace:  required,
		AvailableSpace: available,
	}
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Response 通用 JSON 响应结构
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func JSONResponse(c *gin.Context, httpStatus int, code int, message string, data any) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func Success(c *gin.Context, httpStatus int, message string, data any) {
	JSONResponse(c, httpStatus, SuccessCode, message, data)
}

func Error(c *gin.Context, httpStatus int, code int, message string) {
	JSONResponse(c, httpStatus, code, message, nil)
}

// AbortWithError 终止请求并发送错误响应
func AbortWithError(c *gin.Context, httpStatus int, code int, message string) {
	Error(c, httpStatus, code, message)
	c.Abort()
}
