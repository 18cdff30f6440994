package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/3Eeeecho/supfile/internal/config"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/storage"
	"go.uber.org/zap"
)

// InitStorage 按 storage.type 选择存储后端，并返回对象所在的 bucket
func InitStorage(ctx context.Context, cfg *config.Config) (storage.StorageService, string, error) {
	var (
		svc    storage.StorageService
		bucket string
	)

	switch cfg.Storage.Type {
	case "", "local":
		svc = storage.NewLocalStorageService(cfg.Storage.LocalBasePath)
		bucket = cfg.Storage.BucketName
	case "minio":
		minioSvc, err := storage.NewMinIOStorageService(&cfg.MinIO)
		if err != nil {
			return nil, "", fmt.Errorf("failed to initialize MinIO storage: %w", err)
		}
		svc, bucket = minioSvc, cfg.MinIO.BucketName
	case "aliyun_oss":
		ossSvc, err := storage.NewAliyunOSSStorageService(&cfg.AliyunOSS)
		if err != nil {
			return nil, "", fmt.Errorf("failed to initialize Aliyun OSS storage: %w", err)
		}
		svc, bucket = ossSvc, cfg.AliyunOSS.BucketName
	default:
		return nil, "", fmt.Errorf("unsupported storage type %q", cfg.Storage.Type)
	}

	if err := EnsureBucket(ctx, svc, bucket); err != nil {
		return nil, "", err
	}
	logger.Info("InitStorage: Storage backend ready",
		zap.String("type", cfg.Storage.Type),
		zap.String("bucket", bucket))
	return svc, bucket, nil
}

// EnsureBucket 检查存储桶，不存在时创建
func EnsureBucket(ctx context.Context, svc storage.StorageService, bucket string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := svc.IsBucketExist(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %q: %w", bucket, err)
	}
	if exists {
		return nil
	}

	logger.Info("EnsureBucket: Bucket does not exist, creating", zap.String("bucketName", bucket))
	if err := svc.MakeBucket(ctx, bucket); err != nil {
		return fmt.Errorf("failed to create bucket %q: %w", bucket, err)
	}
	return nil
}
