// Package objects mirrors registration images into an S3-compatible
// bucket (MinIO in development). The database column stays the source of
// truth; the bucket lets images be served without loading LONGBLOBs
// through the SQL pool.
package objects

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/aanand-mishra/records-api/internal/config"
	"github.com/aanand-mishra/records-api/internal/storage"
)

// MinioStore wraps a MinIO client bound to one bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to cfg.Endpoint and creates the bucket when it
// does not exist yet.
func NewMinioStore(ctx context.Context, cfg config.ObjectStore) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// ImageKey is the object name of a registration's image.
func ImageKey(registrationID int64) string {
	return "registrations/" + strconv.FormatInt(registrationID, 10) + "/image"
}

// PutImage stores the image of a registration.
func (s *MinioStore) PutImage(ctx context.Context, registrationID int64, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, ImageKey(registrationID), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("minio put %s: %w", ImageKey(registrationID), err)
	}
	return nil
}

// GetImage returns the image bytes and their stored content type.
// A missing object is storage.ErrNotFound.
func (s *MinioStore) GetImage(ctx context.Context, registrationID int64) ([]byte, string, error) {
	key := ImageKey(registrationID)

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", translate(key, err)
	}
	defer obj.Close()

	// GetObject is lazy; Stat is the first call that reaches the server.
	info, err := obj.Stat()
	if err != nil {
		return nil, "", translate(key, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", translate(key, err)
	}
	return data, info.ContentType, nil
}

// Ping checks the bucket is reachable.
func (s *MinioStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

func translate(key string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("minio get %s: %w", key, storage.ErrNotFound)
	}
	return fmt.Errorf("minio get %s: %w", key, err)
}

func isNotFound(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
	}
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
