package minioctrl

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"storeclip/src/upload"
)

const uploadPrefix = "uploads"

var ErrForeignURL = errors.New("url does not point into the configured bucket")

type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Bucket          string
	// PublicURL is the base URL objects are served from, e.g.
	// "http://localhost:9000". Object URLs are PublicURL/bucket/key.
	PublicURL string
}

// MinioService stores uploaded media in an S3-compatible bucket.
type MinioService struct {
	client    *minio.Client
	bucket    string
	publicURL string
	now       func() time.Time
}

func NewMinioService(cfg Config) (*MinioService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioService{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		now:       time.Now,
	}, nil
}

func (s *MinioService) EnsureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Upload implements upload.Uploader.
func (s *MinioService) Upload(ctx context.Context, file upload.File) (*upload.Result, error) {
	key := objectKey(s.now(), uuid.NewString(), file.Name)

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	size := file.Size
	if size <= 0 {
		size = -1
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, file.Reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put object %s: %w", key, err)
	}

	return &upload.Result{
		URL:      s.ObjectURL(key),
		FileName: file.Name,
		FileSize: info.Size,
		FileType: contentType,
	}, nil
}

// ObjectURL returns the public URL of key in the configured bucket.
func (s *MinioService) ObjectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, key)
}

func (s *MinioService) DeleteObject(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// KeyFromURL is the inverse of ObjectURL. It returns "" for URLs outside
// the configured bucket.
func (s *MinioService) KeyFromURL(objectURL string) string {
	prefix := fmt.Sprintf("%s/%s/", s.publicURL, s.bucket)
	if !strings.HasPrefix(objectURL, prefix) {
		return ""
	}
	return strings.TrimPrefix(objectURL, prefix)
}

// objectKey builds uploads/<unix-ms>-<id>.<ext>; the original file name only
// contributes its extension.
func objectKey(now time.Time, id, filename string) string {
	name := fmt.Sprintf("%d-%s", now.UnixMilli(), id)
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		name += ext
	}
	return path.Join(uploadPrefix, name)
}

// RemoveObjectByURL deletes the object behind a URL returned by Upload.
func (s *MinioService) RemoveObjectByURL(ctx context.Context, objectURL string) error {
	key := s.KeyFromURL(objectURL)
	if key == "" {
		return fmt.Errorf("%w: %s", ErrForeignURL, objectURL)
	}
	return s.DeleteObject(ctx, key)
}
