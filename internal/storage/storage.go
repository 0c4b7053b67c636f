// Package storage issues object keys and pre-signed download URLs for the
// media the tracker records: content items, masters, stems, artwork,
// contracts, receipts. Bytes never pass through this service; clients upload
// to the bucket directly and register the resulting key. When no bucket is
// configured the NoopStore keeps the system in metadata-only mode.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotConfigured is returned when object storage is not configured.
var ErrNotConfigured = errors.New("object storage not configured")

// Store generates object keys and pre-signed URLs against the media bucket.
type Store interface {
	// PresignedGetURL returns a pre-signed download URL for a stored object.
	// Returns ErrNotConfigured when no bucket is configured.
	PresignedGetURL(ctx context.Context, key string) (string, time.Time, error)

	// PresignedPutURL returns a pre-signed upload URL for a new object.
	// Returns ErrNotConfigured when no bucket is configured.
	PresignedPutURL(ctx context.Context, key string) (string, time.Time, error)
}

// Config carries the S3-compatible endpoint settings, typically bound from
// RELEASECOMPASS_S3_* environment variables.
type Config struct {
	Endpoint  string        `mapstructure:"endpoint"`
	Region    string        `mapstructure:"region"`
	Bucket    string        `mapstructure:"bucket"`
	AccessKey string        `mapstructure:"access_key"`
	SecretKey string        `mapstructure:"secret_key"`
	UseSSL    *bool         `mapstructure:"use_ssl"`
	URLExpiry time.Duration `mapstructure:"url_expiry"`
}

type s3Client interface {
	PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration, params url.Values) (*url.URL, error)
	PresignedPutObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error)
}

// S3Store signs URLs against an S3-compatible bucket.
type S3Store struct {
	client    s3Client
	bucket    string
	urlExpiry time.Duration
}

func (s *S3Store) PresignedGetURL(ctx context.Context, key string) (string, time.Time, error) {
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.urlExpiry, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign download: %w", err)
	}
	return presigned.String(), time.Now().Add(s.urlExpiry), nil
}

func (s *S3Store) PresignedPutURL(ctx context.Context, key string) (string, time.Time, error) {
	presigned, err := s.client.PresignedPutObject(ctx, s.bucket, key, s.urlExpiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign upload: %w", err)
	}
	return presigned.String(), time.Now().Add(s.urlExpiry), nil
}

// NoopStore is used when object storage is not configured.
type NoopStore struct{}

func (NoopStore) PresignedGetURL(ctx context.Context, key string) (string, time.Time, error) {
	return "", time.Time{}, ErrNotConfigured
}

func (NoopStore) PresignedPutURL(ctx context.Context, key string) (string, time.Time, error) {
	return "", time.Time{}, ErrNotConfigured
}

// New creates the appropriate Store based on configuration. Returns
// NoopStore when the bucket is empty.
func New(cfg Config) (Store, error) {
	if cfg.Bucket == "" {
		return NoopStore{}, nil
	}
	useSSL := true
	if cfg.UseSSL != nil {
		useSSL = *cfg.UseSSL
	}
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}
	return &S3Store{client: client, bucket: cfg.Bucket, urlExpiry: expiry}, nil
}

// FileKey returns the object key for a project file.
// Convention: projects/{project_id}/files/{file_id}
func FileKey(projectID, fileID string) string {
	return fmt.Sprintf("projects/%s/files/%s", projectID, fileID)
}

// ContentKey returns the object key for a content item.
// Convention: projects/{project_id}/content/{item_id}
func ContentKey(projectID, itemID string) string {
	return fmt.Sprintf("projects/%s/content/%s", projectID, itemID)
}
