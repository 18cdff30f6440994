package xerr

// 统一的业务错误码
const (
	SuccessCode = 20000

	// --- 客户端请求错误 (400xx) ---
	InvalidParamsCode         = 40000 // 无效的请求参数
	ValidationFailedCode      = 40001 // 参数验证失败
	FileTooLargeCode          = 40003 // 文件过大
	FileNameInvalidCode       = 40004 // 文件名无效
	TooManyFilesCode          = 40005 // 单次上传文件数超限
	CannotMoveIntoSelfCode    = 40007 // 不能把目录移动到自身
	CannotMoveIntoSubtreeCode = 40008 // 不能移动目录到其子目录下
	SearchQueryRequiredCode   = 40013 // 搜索关键字为空

	// --- 认证 (401xx) ---
	UnauthorizedCode           = 40100
	TokenInvalidCode           = 40101
	InvalidCredentialsCode     = 40102
	SharePasswordRequiredCode  = 40103 // 分享需要密码
	SharePasswordIncorrectCode = 40104 // 分享密码不正确

	// --- 权限 (403xx) ---
	ForbiddenCode = 40300

	// --- 资源未找到 (404xx) ---
	NotFoundCode          = 40400
	UserNotFoundCode      = 40401
	FileNotFoundCode      = 40402
	FolderNotFoundCode    = 40403
	ShareNotFoundCode     = 40404
	BlobNotFoundCode      = 40405 // 物理文件不存在
	NotInRecycleBinCode   = 40406
	ShareTargetGoneCode   = 40407 // 分享对象已被删除
	ShareFileNotFoundCode = 40408 // 分享目录下不存在该文件

	// --- 冲突 (409xx) ---
	EmailAlreadyExistsCode = 40901
	NameConflictCode       = 40904 // 同级目录下已存在同名文件或目录

	// --- 已失效 (410xx) ---
	ShareExpiredCode = 41000

	// --- 超出配额 (413xx) ---
	QuotaExceededCode = 41300

	// --- 服务器内部错误 (500xx) ---
	InternalServerErrorCode = 50000
	DatabaseErrorCode       = 50001
	StorageErrorCode        = 50002
	InvariantViolationCode  = 50003 // 目录树不变量被破坏
)
