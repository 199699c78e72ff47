package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel/attribute"

	"math-video-api/internal/config"
	"math-video-api/pkg/logger"
	"math-video-api/pkg/tracer"
)

// ObjectStore 上传到 S3 兼容对象存储（默认 Cloudflare R2）
type ObjectStore struct {
	client    *minio.Client
	bucket    string
	keyPrefix string
	publicURL string
}

// endpointFor 未显式配置时由账号 ID 推导 R2 地址
func endpointFor(cfg config.R2Config) (string, error) {
	if cfg.Endpoint != "" {
		return cfg.Endpoint, nil
	}
	if cfg.AccountID == "" {
		return "", fmt.Errorf("storage.r2.endpoint or storage.r2.account_id is required")
	}
	return cfg.AccountID + ".r2.cloudflarestorage.com", nil
}

// NewObjectStore 创建对象存储发布器
func NewObjectStore(cfg config.R2Config) (*ObjectStore, error) {
	endpoint, err := endpointFor(cfg)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = strings.TrimRight(client.EndpointURL().String(), "/") + "/" + cfg.Bucket
	}

	return &ObjectStore{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: strings.Trim(cfg.KeyPrefix, "/"),
		publicURL: publicURL,
	}, nil
}

// Mode 发布模式
func (s *ObjectStore) Mode() string {
	return config.PublishModeObjectStorage
}

// Key 对象键：<prefix>/<id>.mp4
func (s *ObjectStore) Key(id string) string {
	return path.Join(s.keyPrefix, ObjectName(id))
}

// Publish 上传视频，成功后删除本地文件
func (s *ObjectStore) Publish(ctx context.Context, id, videoPath string) (url string, err error) {
	ctx, span := tracer.Start(ctx, "storage.ObjectStore.Publish")
	defer func() { tracer.End(span, err) }()

	key := s.Key(id)
	span.SetAttributes(attribute.String("storage.bucket", s.bucket), attribute.String("storage.key", key))

	info, err := s.client.FPutObject(ctx, s.bucket, key, videoPath, minio.PutObjectOptions{
		ContentType: "video/mp4",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to %s: %w", key, s.bucket, err)
	}

	if err := os.Remove(videoPath); err != nil {
		logger.Warn(ctx, "failed to remove local video after upload", "path", videoPath, "error", err.Error())
	}

	logger.Info(ctx, "video uploaded", "bucket", s.bucket, "key", key, "size", info.Size)
	return s.publicURL + "/" + key, nil
}

// HealthCheck 检查桶是否可访问
func (s *ObjectStore) HealthCheck(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket check failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}
