package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/3Eeeecho/supfile/internal/config"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"go.uber.org/zap"
)

type AliyunOSSStorageService struct {
	client *oss.Client
	cfg    *config.AliyunOSSConfig
}

// NewAliyunOSSStorageService Endpoint 需要带 http:// 或 https:// 前缀
func NewAliyunOSSStorageService(cfg *config.AliyunOSSConfig) (*AliyunOSSStorageService, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		logger.Error("NewAliyunOSSStorageService: Failed to initialize OSS client", zap.Error(err))
		return nil, fmt.Errorf("aliyun oss: init client: %w", err)
	}
	logger.Info("NewAliyunOSSStorageService: OSS client initialized", zap.String("endpoint", cfg.Endpoint))
	return &AliyunOSSStorageService{client: client, cfg: cfg}, nil
}

func isOSSNotFound(err error) bool {
	var svcErr oss.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code == "NoSuchKey" || svcErr.Code == "NoSuchBucket"
	}
	return false
}

func (s *AliyunOSSStorageService) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (PutObjectResult, error) {
	bucket, err := s.client.Bucket(bucketName)
	if err != nil {
		return PutObjectResult{}, fmt.Errorf("aliyun oss: open bucket: %w", err)
	}
	if err := bucket.PutObject(objectName, reader, oss.ContentType(contentType), oss.WithContext(ctx)); err != nil {
		return PutObjectResult{}, fmt.Errorf("aliyun oss: put object: %w", err)
	}
	// PutObject 不返回对象大小，使用调用方传入的值
	return PutObjectResult{
		Bucket: bucketName,
		Key:    objectName,
		Size:   objectSize,
	}, nil
}

func (s *AliyunOSSStorageService) GetObject(ctx context.Context, bucketName, objectName string) (GetObjectResult, error) {
	bucket, err := s.client.Bucket(bucketName)
	if err != nil {
		return GetObjectResult{}, fmt.Errorf("aliyun oss: open bucket: %w", err)
	}

	props, err := bucket.GetObjectDetailedMeta(objectName, oss.WithContext(ctx))
	if err != nil {
		if isOSSNotFound(err) {
			return GetObjectResult{}, ErrObjectNotFound
		}
		return GetObjectResult{}, fmt.Errorf("aliyun oss: object meta: %w", err)
	}

	reader, err := bucket.GetObject(objectName, oss.WithContext(ctx))
	if err != nil {
		if isOSSNotFound(err) {
			return GetObjectResult{}, ErrObjectNotFound
		}
		return GetObjectResult{}, fmt.Errorf("aliyun oss: get object: %w", err)
	}

	size := int64(-1)
	if val := props.Get(oss.HTTPHeaderContentLength); val != "" {
		if parsed, parseErr := strconv.ParseInt(val, 10, 64); parseErr == nil {
			size = parsed
		}
	}
	return GetObjectResult{
		Reader:   reader,
		Size:     size,
		MimeType: props.Get(oss.HTTPHeaderContentType),
	}, nil
}

func (s *AliyunOSSStorageService) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	exists, err := s.ObjectExists(ctx, bucketName, objectName)
	if err != nil {
		return err
	}
	if !exists {
		return ErrObjectNotFound
	}
	bucket, err := s.client.Bucket(bucketName)
	if err != nil {
		return fmt.Errorf("aliyun oss: open bucket: %w", err)
	}
	if err := bucket.DeleteObject(objectName, oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("aliyun oss: delete object: %w", err)
	}
	return nil
}

func (s *AliyunOSSStorageService) ObjectExists(ctx context.Context, bucketName, objectName string) (bool, error) {
	bucket, err := s.client.Bucket(bucketName)
	if err != nil {
		return false, fmt.Errorf("aliyun oss: open bucket: %w", err)
	}
	found, err := bucket.IsObjectExist(objectName, oss.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("aliyun oss: check object: %w", err)
	}
	return found, nil
}

func (s *AliyunOSSStorageService) IsBucketExist(ctx context.Context, bucketName string) (bool, error) {
	found, err := s.client.IsBucketExist(bucketName)
	if err != nil {
		return false, fmt.Errorf("aliyun oss: check bucket: %w", err)
	}
	return found, nil
}

func (s *AliyunOSSStorageService) MakeBucket(ctx context.Context, bucketName string) error {
	err := s.client.CreateBucket(bucketName)
	if err != nil {
		var svcErr oss.ServiceError
		if errors.As(err, &svcErr) && (svcErr.Code == "BucketAlreadyExists" || svcErr.Code == "BucketAlreadyOwnedByYou") {
			logger.Info("MakeBucket: OSS bucket already exists", zap.String("bucket", bucketName))
			return nil
		}
		return fmt.Errorf("aliyun oss: create bucket: %w", err)
	}
	logger.Info("MakeBucket: OSS bucket created", zap.String("bucket", bucketName))
	return nil
}
