package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrObjectNotFound 对象在存储中不存在
var ErrObjectNotFound = errors.New("storage: object not found")

// StorageService 定义了通用的对象存储操作
type StorageService interface {
	// 上传对象，reader 读完即结束
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (PutObjectResult, error)
	// 读取对象，调用方负责关闭 Reader
	GetObject(ctx context.Context, bucketName, objectName string) (GetObjectResult, error)
	// 删除对象，对象不存在时返回 ErrObjectNotFound
	RemoveObject(ctx context.Context, bucketName, objectName string) error
	ObjectExists(ctx context.Context, bucketName, objectName string) (bool, error)
	IsBucketExist(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string) error
}

type PutObjectResult struct {
	Bucket string
	Key    string
	Size   int64
	ETag   string
}

type GetObjectResult struct {
	Reader   io.ReadCloser
	Size     int64
	MimeType string
}

// ObjectName 生成用户文件在存储中的对象名: users/<userID>/<fileName>
func ObjectName(userID, fileName string) string {
	return fmt.Sprintf("users/%s/%s", userID, CleanKey(fileName))
}

// CleanKey 去掉 ".." 和开头的 "/"，避免对象名逃出 bucket
func CleanKey(key string) string {
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	return strings.TrimPrefix(cleaned, "/")
}
