package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/3Eeeecho/supfile/internal/config"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

type MinIOStorageService struct {
	client *minio.Client
	cfg    *config.MinIOConfig
}

func NewMinIOStorageService(cfg *config.MinIOConfig) (*MinIOStorageService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		logger.Error("NewMinIOStorageService: Failed to initialize MinIO client", zap.Error(err))
		return nil, fmt.Errorf("minio: init client: %w", err)
	}

	logger.Info("NewMinIOStorageService: MinIO client initialized", zap.String("endpoint", cfg.Endpoint))
	return &MinIOStorageService{client: client, cfg: cfg}, nil
}

func isMinIONotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}

func (s *MinIOStorageService) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (PutObjectResult, error) {
	info, err := s.client.PutObject(ctx, bucketName, objectName, reader, objectSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return PutObjectResult{}, fmt.Errorf("minio: put object: %w", err)
	}
	return PutObjectResult{
		Bucket: info.Bucket,
		Key:    info.Key,
		Size:   info.Size,
		ETag:   info.ETag,
	}, nil
}

func (s *MinIOStorageService) GetObject(ctx context.Context, bucketName, objectName string) (GetObjectResult, error) {
	obj, err := s.client.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		if isMinIONotFound(err) {
			return GetObjectResult{}, ErrObjectNotFound
		}
		return GetObjectResult{}, fmt.Errorf("minio: get object: %w", err)
	}

	// GetObject 是惰性的，Stat 才会真正访问服务端
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		if isMinIONotFound(err) {
			return GetObjectResult{}, ErrObjectNotFound
		}
		return GetObjectResult{}, fmt.Errorf("minio: stat object: %w", err)
	}

	return GetObjectResult{
		Reader:   obj,
		Size:     stat.Size,
		MimeType: stat.ContentType,
	}, nil
}

func (s *MinIOStorageService) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	exists, err := s.ObjectExists(ctx, bucketName, objectName)
	if err != nil {
		return err
	}
	if !exists {
		return ErrObjectNotFound
	}
	if err := s.client.RemoveObject(ctx, bucketName, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio: remove object: %w", err)
	}
	return nil
}

func (s *MinIOStorageService) ObjectExists(ctx context.Context, bucketName, objectName string) (bool, error) {
	_, err := s.client.StatObject(ctx, bucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		if isMinIONotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("minio: stat object: %w", err)
	}
	return true, nil
}

func (s *MinIOStorageService) IsBucketExist(ctx context.Context, bucketName string) (bool, error) {
	found, err := s.client.BucketExists(ctx, bucketName)
	if err != nil {
		return false, fmt.Errorf("minio: check bucket: %w", err)
	}
	return found, nil
}

func (s *MinIOStorageService) MakeBucket(ctx context.Context, bucketName string) error {
	err := s.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
	if err != nil {
		exists, errBucketExists := s.client.BucketExists(ctx, bucketName)
		if errBucketExists == nil && exists {
			logger.Info("MakeBucket: MinIO bucket already exists", zap.String("bucket", bucketName))
			return nil
		}
		return fmt.Errorf("minio: make bucket: %w", err)
	}
	logger.Info("MakeBucket: MinIO bucket created", zap.String("bucket", bucketName))
	return nil
}
