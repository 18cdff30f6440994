package xerr

import (
	"errors"
	"net/http"
)

// ErrorKind 是对外暴露的稳定错误分类
type ErrorKind string

const (
	KindNotFound         ErrorKind = "NotFound"
	KindConflict         ErrorKind = "Conflict"
	KindInvalidOperation ErrorKind = "InvalidOperation"
	KindQuotaExceeded    ErrorKind = "QuotaExceeded"
	KindUnauthorized     ErrorKind = "Unauthorized"
	KindGone             ErrorKind = "Gone"
	KindInternal         ErrorKind = "InternalError"
)

type classified struct {
	err    error
	kind   ErrorKind
	status int
	code   int
}

// 顺序有意义：更具体的错误放在前面
var classes = []classified{
	{ErrFolderNotFound, KindNotFound, http.StatusNotFound, FolderNotFoundCode},
	{ErrFileNotFound, KindNotFound, http.StatusNotFound, FileNotFoundCode},
	{ErrShareNotFound, KindNotFound, http.StatusNotFound, ShareNotFoundCode},
	{ErrShareTargetGone, KindNotFound, http.StatusNotFound, ShareTargetGoneCode},
	{ErrShareFileNotFound, KindNotFound, http.StatusNotFound, ShareFileNotFoundCode},
	{ErrBlobNotFound, KindNotFound, http.StatusNotFound, BlobNotFoundCode},
	{ErrNotInRecycleBin, KindNotFound, http.StatusNotFound, NotInRecycleBinCode},
	{ErrUserNotFound, KindNotFound, http.StatusNotFound, UserNotFoundCode},

	{ErrNameConflict, KindConflict, http.StatusConflict, NameConflictCode},
	{ErrEmailAlreadyExists, KindConflict, http.StatusConflict, EmailAlreadyExistsCode},

	{ErrCannotMoveIntoSelf, KindInvalidOperation, http.StatusBadRequest, CannotMoveIntoSelfCode},
	{ErrCannotMoveIntoSubtree, KindInvalidOperation, http.StatusBadRequest, CannotMoveIntoSubtreeCode},
	{ErrFileNameInvalid, KindInvalidOperation, http.StatusBadRequest, FileNameInvalidCode},
	{ErrSearchQueryRequired, KindInvalidOperation, http.StatusBadRequest, SearchQueryRequiredCode},
	{ErrTooManyFiles, KindInvalidOperation, http.StatusBadRequest, TooManyFilesCode},
	{ErrFileTooLarge, KindInvalidOperation, http.StatusRequestEntityTooLarge, FileTooLargeCode},
	{ErrValidationFailed, KindInvalidOperation, http.StatusBadRequest, ValidationFailedCode},
	{ErrInvalidParams, KindInvalidOperation, http.StatusBadRequest, InvalidParamsCode},

	{ErrQuotaExceeded, KindQuotaExceeded, http.StatusRequestEntityTooLarge, QuotaExceededCode},

	{ErrSharePasswordRequired, KindUnauthorized, http.StatusUnauthorized, SharePasswordRequiredCode},
	{ErrSharePasswordIncorrect, KindUnauthorized, http.StatusUnauthorized, SharePasswordIncorrectCode},
	{ErrInvalidCredentials, KindUnauthorized, http.StatusUnauthorized, InvalidCredentialsCode},
	{ErrTokenInvalid, KindUnauthorized, http.StatusUnauthorized, TokenInvalidCode},
	{ErrUnauthorized, KindUnauthorized, http.StatusUnauthorized, UnauthorizedCode},

	{ErrShareExpired, KindGone, http.StatusGone, ShareExpiredCode},

	{ErrInvariantViolation, KindInternal, http.StatusInternalServerError, InvariantViolationCode},
	{ErrStorageError, KindInternal, http.StatusInternalServerError, StorageErrorCode},
	{ErrDatabaseError, KindInternal, http.StatusInternalServerError, DatabaseErrorCode},
}

// Kind 返回错误所属的分类，未识别的错误一律视为内部错误
func Kind(err error) ErrorKind {
	kind, _, _ := Classify(err)
	return kind
}

// Classify 返回错误分类、HTTP 状态码和业务码
func Classify(err error) (ErrorKind, int, int) {
	if err == nil {
		return "", http.StatusOK, SuccessCode
	}
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.kind, c.status, c.code
		}
	}
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return KindInternal, http.StatusInternalServerError, codeErr.Code
	}
	return KindInternal, http.StatusInternalServerError, InternalServerErrorCode
}

// PublicMessage 返回可以暴露给客户端的错误信息
func PublicMessage(err error) string {
	if Kind(err) == KindInternal {
		return ErrInternalServer.Error()
	}
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.err.Error()
		}
	}
	return err.Error()
}
