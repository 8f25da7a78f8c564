package middleware

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/docchat/backend-go/internal/config"
	apperrors "github.com/docchat/backend-go/internal/errors"
)

// MinIOService MinIO对象存储服务。上传的PDF以文件名为key存放，
// 接入时按文件名取回原始字节。
type MinIOService struct {
	client *minio.Client
	config config.ObjectStorageConfig
}

// NewMinIOService 创建MinIO服务实例
func NewMinIOService(cfg config.ObjectStorageConfig) (*MinIOService, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint not configured")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "documents"
	}

	// minio.New 不需要协议前缀
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIOService{
		client: client,
		config: cfg,
	}, nil
}

// EnsureBucket 确保bucket存在
func (s *MinIOService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.config.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.config.Bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Download 按对象名取回文件内容。对象不存在或不可读时立即报错。
func (s *MinIOService) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.config.Bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	// GetObject是惰性的，Stat确认对象可读
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, apperrors.NewStorageError(err)
	}
	return obj, nil
}

// Upload 上传文件到对象存储
func (s *MinIOService) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.config.Bucket, objectName, reader, size, opts); err != nil {
		return apperrors.NewStorageError(err)
	}
	return nil
}

// Bucket 返回当前使用的bucket名
func (s *MinIOService) Bucket() string {
	return s.config.Bucket
}
