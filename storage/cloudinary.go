package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Cloudinary uploads media to a Cloudinary folder and hands back the secure
// delivery URL as the stored reference.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinary(url, folder string) (*Cloudinary, error) {
	if url == "" {
		return nil, fmt.Errorf("CLOUDINARY_URL must be set for cloudinary storage")
	}
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("cloudinary configuration: %w", err)
	}
	return &Cloudinary{cld: cld, folder: folder}, nil
}

func (c *Cloudinary) Save(ctx context.Context, dir, name string, r io.Reader, _ string) (string, error) {
	params := uploader.UploadParams{
		Folder:       path.Join(c.folder, dir),
		PublicID:     publicID(name),
		ResourceType: "auto",
	}
	res, err := c.cld.Upload.Upload(ctx, r, params)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

func (c *Cloudinary) Remove(ctx context.Context, dir, name string) error {
	params := uploader.DestroyParams{
		PublicID:     path.Join(c.folder, dir, publicID(name)),
		ResourceType: resourceType(dir),
	}
	res, err := c.cld.Upload.Destroy(ctx, params)
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", res.Error.Message)
	}
	return nil
}

// publicID drops the extension; Cloudinary appends its own on delivery.
func publicID(name string) string {
	return strings.TrimSuffix(path.Base(name), path.Ext(name))
}

func resourceType(dir string) string {
	switch dir {
	case "images":
		return "image"
	case "videos":
		return "video"
	default:
		return "raw"
	}
}
