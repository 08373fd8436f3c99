package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	types "PaletteForge/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(types.LocalConfig{BasePath: root})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Upload(ctx, "palettes", "run-1/palette.json", strings.NewReader(`{"a":1}`)))

	assert.FileExists(t, filepath.Join(root, "palettes", "run-1", "palette.json"))

	data, err := s.Download(ctx, "palettes", "run-1/palette.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStorage(types.LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	err = s.Upload(context.Background(), "", "../outside.txt", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestLocalStorageRequiresBasePath(t *testing.T) {
	_, err := NewLocalStorage(types.LocalConfig{})
	assert.Error(t, err)
}

func TestNewStorage(t *testing.T) {
	s, err := NewStorage(types.StorageConfig{Type: "none"})
	require.NoError(t, err)
	assert.Nil(t, s)

	root := filepath.Join(t.TempDir(), "mirror")
	s, err = NewStorage(types.StorageConfig{Type: "local", Local: types.LocalConfig{BasePath: root}})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)
	_, err = os.Stat(root)
	assert.NoError(t, err)

	_, err = NewStorage(types.StorageConfig{Type: "ftp"})
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", contentType("run/palette.png"))
	assert.Equal(t, "application/json", contentType("run/palette.json"))
	assert.Equal(t, "application/octet-stream", contentType("run/noext"))
}
