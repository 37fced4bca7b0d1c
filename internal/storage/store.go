package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"bortsbooks/internal/config"
)

var ErrEmptyImage = errors.New("image is empty")

// ImageStore persists downloaded product images under store-relative keys
type ImageStore interface {
	// Save writes the image atomically: either the full object exists afterwards or nothing does
	Save(ctx context.Context, key string, r io.Reader) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// ImageKey builds the per-product key, e.g. products/<id>/image_0.jpg
func ImageKey(productID uuid.UUID, index int, ext string) string {
	return path.Join("products", productID.String(), fmt.Sprintf("image_%d%s", index, ext))
}

// New builds the store selected by configuration
func New(ctx context.Context, cfg config.StorageConfig) (ImageStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "local":
		return NewLocalStore(cfg.LocalRoot, cfg.PublicBaseURL), nil
	case "s3":
		return NewS3StoreFromConfig(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
