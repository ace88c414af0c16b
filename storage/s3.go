package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3 stores uploads as "<dir>/<name>" objects in one bucket.
type S3 struct {
	client *minio.Client
	bucket string
	region string
}

func NewS3(opts S3Options) (*S3, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("S3_ENDPOINT must be set for s3 storage")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &S3{client: client, bucket: opts.Bucket, region: opts.Region}, nil
}

func (s *S3) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("make bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Save streams r with unknown length; minio buffers it into multipart parts.
func (s *S3) Save(ctx context.Context, dir, name string, r io.Reader, contentType string) (string, error) {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, objectKey(dir, name), r, -1, opts); err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	return name, nil
}

func (s *S3) Remove(ctx context.Context, dir, name string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey(dir, name), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

func objectKey(dir, name string) string { return dir + "/" + name }
