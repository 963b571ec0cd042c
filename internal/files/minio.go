package files

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"casefile/internal/record/models"
)

// MinioConfig holds object storage connection settings.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// URLExpiry bounds presigned download URLs. Zero means 15 minutes.
	URLExpiry time.Duration
}

// MinioStore serves file blobs from S3-compatible object storage. Objects are
// keyed by file id.
type MinioStore struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object storage: %w", err)
	}
	expiry := cfg.URLExpiry
	if expiry == 0 {
		expiry = 15 * time.Minute
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, expiry: expiry}, nil
}

func (s *MinioStore) DownloadURL(ctx context.Context, ref models.FileRef) (string, error) {
	params := make(url.Values)
	if ref.DisplayName != "" {
		params.Set("response-content-disposition",
			fmt.Sprintf("attachment; filename=%q", ref.DisplayName))
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, ref.ID.String(), s.expiry, params)
	if err != nil {
		return "", fmt.Errorf("presign download url: %w", err)
	}
	return u.String(), nil
}

func (s *MinioStore) Delete(ctx context.Context, refs []models.FileRef) error {
	var firstErr error
	for _, ref := range refs {
		err := s.client.RemoveObject(ctx, s.bucket, ref.ID.String(), minio.RemoveObjectOptions{})
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("remove object %s: %w", ref.ID, err)
		}
	}
	return firstErr
}
