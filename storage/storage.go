// Package storage persists uploaded media. Objects are addressed by a
// directory (images, videos, others) and a generated filename.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"farmsetu/config"

	"go.mongodb.org/mongo-driver/mongo"
)

// Store saves and removes uploaded objects. Save returns the reference the
// listing keeps for the object: the bare filename for local-style backends,
// an absolute URL for backends that serve media themselves.
type Store interface {
	Save(ctx context.Context, dir, name string, r io.Reader, contentType string) (string, error)
	Remove(ctx context.Context, dir, name string) error
}

// New builds the backend selected by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config, db *mongo.Database, log *slog.Logger) (Store, error) {
	switch cfg.StorageBackend {
	case "", "disk":
		log.Info("storing uploads on disk", "dir", cfg.UploadDir)
		return NewDisk(cfg.UploadDir)
	case "gridfs":
		if db == nil {
			return nil, fmt.Errorf("gridfs storage needs a database")
		}
		log.Info("storing uploads in GridFS", "bucket", GridFSBucketName)
		return NewGridFS(db)
	case "s3":
		log.Info("storing uploads in S3", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		s, err := NewS3(S3Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case "cloudinary":
		log.Info("storing uploads in Cloudinary", "folder", cfg.CloudinaryFolder)
		return NewCloudinary(cfg.CloudinaryURL, cfg.CloudinaryFolder)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
