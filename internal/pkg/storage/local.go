package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"

	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// LocalStorageService 把对象保存在本地磁盘上, bucket 对应一级子目录
type LocalStorageService struct {
	fs afero.Fs
}

// NewLocalStorageService 以 basePath 为根目录
func NewLocalStorageService(basePath string) *LocalStorageService {
	return NewLocalStorageServiceWithFs(afero.NewBasePathFs(afero.NewOsFs(), basePath))
}

// NewLocalStorageServiceWithFs 测试时可以传入 afero.NewMemMapFs()
func NewLocalStorageServiceWithFs(fsys afero.Fs) *LocalStorageService {
	return &LocalStorageService{fs: fsys}
}

func (s *LocalStorageService) objectPath(bucketName, objectName string) string {
	return path.Join("/", CleanKey(bucketName), CleanKey(objectName))
}

func (s *LocalStorageService) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (PutObjectResult, error) {
	p := s.objectPath(bucketName, objectName)
	if err := s.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return PutObjectResult{}, fmt.Errorf("local storage: create directory: %w", err)
	}

	f, err := s.fs.Create(p)
	if err != nil {
		return PutObjectResult{}, fmt.Errorf("local storage: create object: %w", err)
	}
	written, err := io.Copy(f, reader)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := s.fs.Remove(p); rmErr != nil {
			logger.Warn("PutObject: Failed to clean up partial object", zap.String("path", p), zap.Error(rmErr))
		}
		return PutObjectResult{}, fmt.Errorf("local storage: write object: %w", err)
	}

	return PutObjectResult{
		Bucket: bucketName,
		Key:    objectName,
		Size:   written,
	}, nil
}

func (s *LocalStorageService) GetObject(ctx context.Context, bucketName, objectName string) (GetObjectResult, error) {
	p := s.objectPath(bucketName, objectName)
	f, err := s.fs.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return GetObjectResult{}, ErrObjectNotFound
		}
		return GetObjectResult{}, fmt.Errorf("local storage: open object: %w", err)
	}

	size := int64(-1)
	if info, statErr := f.Stat(); statErr == nil {
		size = info.Size()
	}
	return GetObjectResult{Reader: f, Size: size}, nil
}

func (s *LocalStorageService) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	err := s.fs.Remove(s.objectPath(bucketName, objectName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("local storage: remove object: %w", err)
	}
	return nil
}

func (s *LocalStorageService) ObjectExists(ctx context.Context, bucketName, objectName string) (bool, error) {
	return afero.Exists(s.fs, s.objectPath(bucketName, objectName))
}

func (s *LocalStorageService) IsBucketExist(ctx context.Context, bucketName string) (bool, error) {
	return afero.DirExists(s.fs, path.Join("/", CleanKey(bucketName)))
}

func (s *LocalStorageService) MakeBucket(ctx context.Context, bucketName string) error {
	return s.fs.MkdirAll(path.Join("/", CleanKey(bucketName)), 0o755)
}
