package report

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type MinioOpts func(c *minioConfig)

type minioConfig struct {
	endpoint        string
	bucket          string
	accessKey       string
	secretAccessKey string
	useSSL          bool
}

func newConfig(opts ...MinioOpts) *minioConfig {
	cfg := &minioConfig{useSSL: true}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// Uploader stores audit reports in an S3 compatible bucket.
type Uploader struct {
	cfg    *minioConfig
	client *minio.Client
}

func NewMinioUploader(opts ...MinioOpts) (*Uploader, error) {
	cfg := newConfig(opts...)
	if cfg.endpoint == "" || cfg.bucket == "" {
		return nil, fmt.Errorf("report upload needs an endpoint and a bucket")
	}

	minioClient, err := minio.New(cfg.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretAccessKey, ""),
		Secure: cfg.useSSL,
	})
	if err != nil {
		return nil, err
	}

	return &Uploader{cfg: cfg, client: minioClient}, nil
}

// Upload puts the file at path under objectName.
func (u *Uploader) Upload(ctx context.Context, objectName, path string) error {
	info, err := u.client.FPutObject(ctx, u.cfg.bucket, objectName, path, minio.PutObjectOptions{ContentType: xlsxContentType})
	if err != nil {
		return fmt.Errorf("uploading %s to bucket %s: %w", path, u.cfg.bucket, err)
	}

	zap.S().Named("report").Infow("audit report uploaded", "bucket", info.Bucket, "object", info.Key, "size", info.Size)
	return nil
}

func WithEndpoint(endpoint string) MinioOpts {
	return func(c *minioConfig) {
		c.endpoint = endpoint
	}
}

func WithBucket(bucket string) MinioOpts {
	return func(c *minioConfig) {
		c.bucket = bucket
	}
}

func WithAccessKey(accessKey string) MinioOpts {
	return func(c *minioConfig) {
		c.accessKey = accessKey
	}
}

func WithSecretKey(secretKey string) MinioOpts {
	return func(c *minioConfig) {
		c.secretAccessKey = secretKey
	}
}

func WithSSL(useSSL bool) MinioOpts {
	return func(c *minioConfig) {
		c.useSSL = useSSL
	}
}
