package xerr

import "errors"

var (
	// 通用
	ErrInternalServer = errors.New("internal server error")

	// 客户端请求错误
	ErrInvalidParams         = errors.New("invalid request parameters")
	ErrValidationFailed      = errors.New("validation failed")
	ErrFileTooLarge          = errors.New("uploaded file exceeds the size limit")
	ErrTooManyFiles          = errors.New("too many files in a single upload")
	ErrFileNameInvalid       = errors.New("name must not be empty")
	ErrCannotMoveIntoSelf    = errors.New("a folder cannot be moved into itself")
	ErrCannotMoveIntoSubtree = errors.New("a folder cannot be moved into one of its descendants")
	ErrSearchQueryRequired   = errors.New("search parameter \"q\" is required")

	// 认证
	ErrUnauthorized           = errors.New("unauthorized")
	ErrTokenInvalid           = errors.New("token is invalid or expired")
	ErrInvalidCredentials     = errors.New("email or password is incorrect")
	ErrSharePasswordRequired  = errors.New("this share requires a password")
	ErrSharePasswordIncorrect = errors.New("share password is missing or incorrect")

	// 资源未找到
	ErrUserNotFound      = errors.New("user not found")
	ErrFileNotFound      = errors.New("file not found")
	ErrFolderNotFound    = errors.New("folder not found")
	ErrShareNotFound     = errors.New("share link not found")
	ErrBlobNotFound      = errors.New("physical file not found")
	ErrNotInRecycleBin   = errors.New("item is not in the recycle bin")
	ErrShareTargetGone   = errors.New("shared content not found")
	ErrShareFileNotFound = errors.New("file does not belong to the shared folder")

	// 冲突
	ErrEmailAlreadyExists = errors.New("email is already registered")
	ErrNameConflict       = errors.New("an item with this name already exists here")

	// 已失效
	ErrShareExpired = errors.New("this share link has expired")

	// 配额
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// 数据库与外部服务
	ErrDatabaseError      = errors.New("database operation failed")
	ErrStorageError       = errors.New("storage operation failed")
	ErrInvariantViolation = errors.New("folder tree invariant violated")
)
