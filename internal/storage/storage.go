package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/caseyshiring/MediaTranscoder/internal/config"
	"github.com/caseyshiring/MediaTranscoder/internal/metrics"
)

// Storage provides object storage operations
type Storage struct {
	client     *minio.Client
	bucketName string
}

// New creates a new storage client
func New(cfg config.StorageConfig) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: cfg.BucketName,
	}, nil
}

// DownloadFile downloads an object to the local filesystem
func (s *Storage) DownloadFile(ctx context.Context, objectName, filePath string) error {
	started := time.Now()
	err := s.client.FGetObject(ctx, s.bucketName, objectName, filePath, minio.GetObjectOptions{})
	s.record("download", started, err)
	if err != nil {
		return fmt.Errorf("failed to download object: %w", err)
	}
	return nil
}

// UploadFile uploads a file from the local filesystem
func (s *Storage) UploadFile(ctx context.Context, objectName, filePath string) error {
	started := time.Now()
	_, err := s.client.FPutObject(ctx, s.bucketName, objectName, filePath, minio.PutObjectOptions{
		ContentType: contentType(filePath),
	})
	s.record("upload", started, err)
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

// StatSize returns an object's size in bytes
func (s *Storage) StatSize(ctx context.Context, objectName string) (int64, error) {
	info, err := s.client.StatObject(ctx, s.bucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to stat object: %w", err)
	}
	return info.Size, nil
}

// ReadRange reads length bytes at offset from an object
func (s *Storage) ReadRange(ctx context.Context, objectName string, offset, length int64) ([]byte, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(offset, offset+length-1); err != nil {
		return nil, fmt.Errorf("invalid range: %w", err)
	}

	started := time.Now()
	object, err := s.client.GetObject(ctx, s.bucketName, objectName, opts)
	if err != nil {
		s.record("read_range", started, err)
		return nil, fmt.Errorf("failed to read object range: %w", err)
	}
	defer object.Close()

	buf := make([]byte, length)
	_, err = io.ReadFull(object, buf)
	s.record("read_range", started, err)
	if err != nil {
		return nil, fmt.Errorf("short object range read: %w", err)
	}
	return buf, nil
}

// Delete deletes an object from storage
func (s *Storage) Delete(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucketName, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// GetURL returns a presigned URL for an object
func (s *Storage) GetURL(ctx context.Context, objectName string) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucketName, objectName, time.Hour, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate URL: %w", err)
	}
	return url.String(), nil
}

func (s *Storage) record(operation string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordStorageOperation(operation, status, time.Since(started).Seconds())
}

// contentType returns the content type based on file extension
func contentType(filePath string) string {
	switch filepath.Ext(filePath) {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	case ".avi":
		return "video/x-msvideo"
	default:
		return "application/octet-stream"
	}
}
