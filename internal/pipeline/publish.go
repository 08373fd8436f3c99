package pipeline

import (
	"PaletteForge/internal/pipeline/storage"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher uploads run artifacts to a storage backend
type Publisher struct {
	storage storage.Storage
	bucket  string
	logger  *zap.Logger
}

// NewPublisher returns a publisher; a nil storage disables publishing
func NewPublisher(store storage.Storage, bucket string, logger *zap.Logger) *Publisher {
	return &Publisher{storage: store, bucket: bucket, logger: logger}
}

// Enabled reports whether a backend is configured
func (p *Publisher) Enabled() bool {
	return p != nil && p.storage != nil
}

// StorageKey is the object key of file under outDir for a run:
// <run-id>/<slash separated path relative to outDir>. Files outside outDir
// keep only their base name.
func StorageKey(runID uuid.UUID, outDir, file string) (string, error) {
	rel, err := filepath.Rel(outDir, file)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", file, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		rel = path.Base(rel)
	}
	return runID.String() + "/" + rel, nil
}

// Publish uploads files one by one and returns their keys. It stops at the
// first failed upload.
func (p *Publisher) Publish(ctx context.Context, runID uuid.UUID, outDir string, files []string) ([]string, error) {
	if !p.Enabled() {
		p.logger.Info("Storage disabled, skipping publish")
		return nil, nil
	}

	start := time.Now()
	keys := make([]string, 0, len(files))
	for _, file := range files {
		key, err := StorageKey(runID, outDir, file)
		if err != nil {
			return keys, err
		}
		if err := p.upload(ctx, key, file); err != nil {
			p.logger.Error("Storage upload failed", zap.String("key", key), zap.Error(err))
			return keys, err
		}
		keys = append(keys, key)
	}

	p.logger.Info("Artifacts published",
		zap.String("bucket", p.bucket),
		zap.Int("objects", len(keys)),
		zap.Duration("duration", time.Since(start)))
	return keys, nil
}

func (p *Publisher) upload(ctx context.Context, key, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()
	return p.storage.Upload(ctx, p.bucket, key, f)
}
