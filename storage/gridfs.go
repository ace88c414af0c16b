package storage

import (
	"context"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const GridFSBucketName = "uploads"

// GridFS stores uploads in a MongoDB GridFS bucket. Files are named
// "<dir>/<name>".
type GridFS struct {
	bucket *gridfs.Bucket
}

func NewGridFS(db *mongo.Database) (*GridFS, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(GridFSBucketName))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	return &GridFS{bucket: bucket}, nil
}

func (g *GridFS) Save(ctx context.Context, dir, name string, r io.Reader, contentType string) (string, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := g.bucket.SetWriteDeadline(deadline); err != nil {
			return "", err
		}
	}
	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType, "dir": dir})
	if _, err := g.bucket.UploadFromStream(dir+"/"+name, contextReader{ctx: ctx, r: r}, opts); err != nil {
		return "", fmt.Errorf("gridfs upload: %w", err)
	}
	return name, nil
}

func (g *GridFS) Remove(ctx context.Context, dir, name string) error {
	cursor, err := g.bucket.FindContext(ctx, bson.M{"filename": dir + "/" + name})
	if err != nil {
		return fmt.Errorf("gridfs find: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var file struct {
			ID interface{} `bson:"_id"`
		}
		if err := cursor.Decode(&file); err != nil {
			return fmt.Errorf("gridfs decode: %w", err)
		}
		if err := g.bucket.DeleteContext(ctx, file.ID); err != nil {
			return fmt.Errorf("gridfs delete: %w", err)
		}
	}
	return cursor.Err()
}
