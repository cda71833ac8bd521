// Package storage keeps run archives (repository snapshot, model transcript)
// in an S3 compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/autoarchitect/internal/domain/projects"
)

// maxArchiveRead caps how much of one archived object is read back.
const maxArchiveRead = 32 << 20

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Store implements projects.ArchiveStore and projects.ArchiveReader.
type Store struct {
	client *minio.Client
	bucket string
}

// New buat koneksi MinIO, bucket dibuat kalau belum ada
func New(ctx context.Context, cfg Config) (*Store, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &Store{client: cli, bucket: cfg.Bucket}, nil
}

// PutText stores body under key and returns the object URL, which is only
// reachable directly when the bucket is public.
func (s *Store) PutText(ctx context.Context, key, contentType, body string) (string, error) {
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, strings.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	u := s.client.EndpointURL()
	return objectURL(u.Scheme, u.Host, s.bucket, key), nil
}

// GetText reads an archived object back. A missing key is projects.ErrNotFound.
func (s *Store) GetText(ctx context.Context, key string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()

	// GetObject is lazy; Stat surfaces NoSuchKey
	if _, err := obj.Stat(); err != nil {
		return "", classify(key, err)
	}
	raw, err := io.ReadAll(io.LimitReader(obj, maxArchiveRead))
	if err != nil {
		return "", classify(key, err)
	}
	return string(raw), nil
}

// Ping checks the bucket is reachable, for health probes.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

func classify(key string, err error) error {
	if isNoSuchKey(err) {
		return fmt.Errorf("archive %s: %w", key, projects.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", key, err)
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey"
	}
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func objectURL(scheme, host, bucket, key string) string {
	if scheme == "" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, host, bucket, strings.TrimPrefix(key, "/"))
}
