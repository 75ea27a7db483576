// Package storage keeps report images in MinIO.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"incident-map/domain/services"
	"incident-map/pkg/logger"
)

// MinIOStorage implements services.ObjectStorage
type MinIOStorage struct {
	client     *minio.Client
	bucketName string
	publicURL  string
}

var _ services.ObjectStorage = (*MinIOStorage)(nil)

// NewMinIOStorage connects and makes sure the bucket exists with a public read policy.
func NewMinIOStorage(endpoint, publicURL, accessKey, secretKey, bucketName string, useSSL bool) (*MinIOStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	s := &MinIOStorage{
		client:     client,
		bucketName: bucketName,
		publicURL:  publicBase(endpoint, publicURL, useSSL),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		logger.StorageError("bucket_check_failed", "Failed to check bucket, continuing", err, map[string]interface{}{"bucket": bucketName})
	} else if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			logger.StorageError("bucket_create_failed", "Failed to create bucket", err, map[string]interface{}{"bucket": bucketName})
		} else {
			policy := fmt.Sprintf(`{"Version": "2012-10-17","Statement": [{"Action": ["s3:GetObject"],"Effect": "Allow","Principal": {"AWS": ["*"]},"Resource": ["arn:aws:s3:::%s/*"],"Sid": ""}]}`, bucketName)
			if err := client.SetBucketPolicy(ctx, bucketName, policy); err != nil {
				logger.StorageError("bucket_policy_failed", "Failed to set bucket policy", err, map[string]interface{}{"bucket": bucketName})
			}
			logger.Storage("bucket_created", "Bucket created", map[string]interface{}{"bucket": bucketName})
		}
	}

	logger.Storage("initialized", "MinIO storage initialized", map[string]interface{}{
		"endpoint":   endpoint,
		"public_url": s.publicURL,
		"bucket":     bucketName,
	})
	return s, nil
}

// Upload stores data under a fresh key and returns its public URL.
func (s *MinIOStorage) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	key := objectKey(filename, time.Now())
	if err := s.put(ctx, key, data, contentType); err != nil {
		return "", err
	}

	publicURL := s.URLFor(key)
	logger.Storage("uploaded", "Image uploaded", map[string]interface{}{"key": key, "size": len(data)})
	return publicURL, nil
}

// Replace overwrites the object behind url in place, so the URL stays valid.
func (s *MinIOStorage) Replace(ctx context.Context, imageURL string, data []byte, contentType string) (string, error) {
	key := s.KeyFromURL(imageURL)
	if key == "" {
		return "", fmt.Errorf("could not extract key from URL %q", imageURL)
	}
	if err := s.put(ctx, key, data, contentType); err != nil {
		return "", err
	}

	logger.Storage("replaced", "Image replaced", map[string]interface{}{"key": key, "size": len(data)})
	return s.URLFor(key), nil
}

func (s *MinIOStorage) DeleteByURL(ctx context.Context, imageURL string) error {
	key := s.KeyFromURL(imageURL)
	if key == "" {
		return fmt.Errorf("could not extract key from URL %q", imageURL)
	}

	if err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	logger.Storage("deleted", "Image deleted", map[string]interface{}{"key": key})
	return nil
}

func (s *MinIOStorage) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload image: %w", err)
	}
	return nil
}

// URLFor returns the public URL of an object key.
func (s *MinIOStorage) URLFor(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucketName, key)
}

// KeyFromURL extracts the object key from a URL produced by URLFor.
func (s *MinIOStorage) KeyFromURL(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return ""
	}

	path := strings.TrimPrefix(u.Path, "/")
	prefix := s.bucketName + "/"
	if idx := strings.LastIndex(path, prefix); idx != -1 {
		return path[idx+len(prefix):]
	}
	return ""
}

// HealthCheck verifies the MinIO connection
func (s *MinIOStorage) HealthCheck(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("MinIO health check failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket '%s' does not exist", s.bucketName)
	}
	return nil
}

func objectKey(filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("reports/%s/%s%s", now.Format("2006-01-02"), uuid.New().String(), ext)
}

func publicBase(endpoint, publicURL string, useSSL bool) string {
	base := strings.TrimSuffix(strings.TrimSpace(publicURL), "/")
	if base == "" {
		base = endpoint
	}
	if strings.Contains(base, "://") {
		return base
	}
	if useSSL {
		return "https://" + base
	}
	return "http://" + base
}
