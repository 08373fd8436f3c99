package storage

import (
	types "PaletteForge/pkg"
	"fmt"
)

// NewStorage builds the configured backend. Type "none" disables publishing
// and yields a nil Storage.
func NewStorage(cfg types.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "s3":
		return NewS3Storage(cfg.S3)
	case "local":
		return NewLocalStorage(cfg.Local)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Type)
	}
}
