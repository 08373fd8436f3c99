package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := NewConfigLoader(zaptest.NewLogger(t)).Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Pipeline.MaxSamples)
	assert.Equal(t, "ffmpeg", cfg.Pipeline.FFMpegPath)
	assert.Equal(t, "frames", cfg.Pipeline.FramesDir)
	assert.Equal(t, 6, cfg.Palette.Clusters)
	assert.Equal(t, 10, cfg.Palette.Attempts)
	assert.Equal(t, 50, cfg.Palette.MaxIterations)
	assert.InDelta(t, 0.2, cfg.Palette.Epsilon, 1e-9)
	assert.Equal(t, 160, cfg.Palette.SampleWidth)
	assert.Equal(t, 90, cfg.Palette.SampleHeight)
	assert.Equal(t, "none", cfg.Storage.Type)
	require.Len(t, cfg.Plugins, 2)
	assert.Equal(t, "site", cfg.Plugins[0].Name)
	assert.True(t, cfg.Plugins[0].Enabled)
	assert.Equal(t, "watermark", cfg.Plugins[1].Name)
	assert.False(t, cfg.Plugins[1].Enabled)
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  max_samples: 4
palette:
  clusters: 3
  seed: 42
storage:
  type: local
  local:
    base_path: /tmp/palettes
logging:
  level: debug
`)
	cfg, err := NewConfigLoader(zaptest.NewLogger(t)).Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Pipeline.MaxSamples)
	assert.Equal(t, 3, cfg.Palette.Clusters)
	assert.Equal(t, uint64(42), cfg.Palette.Seed)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "/tmp/palettes", cfg.Storage.Local.BasePath)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched keys keep their defaults
	assert.Equal(t, 50, cfg.Palette.MaxIterations)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PALETTEFORGE_PALETTE_CLUSTERS", "4")
	cfg, err := NewConfigLoader(zaptest.NewLogger(t)).Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Palette.Clusters)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero samples", "pipeline:\n  max_samples: 0\n"},
		{"zero clusters", "palette:\n  clusters: 0\n"},
		{"too few attempts", "palette:\n  attempts: 3\n"},
		{"unknown storage", "storage:\n  type: ftp\n"},
		{"s3 without bucket", "storage:\n  type: s3\n  s3:\n    region: eu-west-1\n"},
		{"local without base path", "storage:\n  type: local\n"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"file logging without path", "logging:\n  output: file\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfigLoader(zaptest.NewLogger(t)).Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
