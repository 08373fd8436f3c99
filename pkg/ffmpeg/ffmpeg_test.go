package ffmpeg

import (
	"context"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH")
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"30000/1001", 30000.0 / 1001.0},
		{"25", 25},
		{"0/0", 0},
		{"", 0},
		{"abc", 0},
		{"-5/1", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseFrameRate(tt.in), 1e-9)
		})
	}
}

// makeRedClip renders a 2s, 10fps solid red clip.
func makeRedClip(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "red.mp4")
	cmd := exec.Command("ffmpeg", "-v", "error", "-y",
		"-f", "lavfi", "-i", "color=c=red:s=64x36:r=10:d=2",
		"-pix_fmt", "yuv420p", "-c:v", "mpeg4", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Skipf("could not render test clip: %v: %s", err, out)
	}
	return path
}

func TestOpenAndFrameAt(t *testing.T) {
	skipIfNoFFmpeg(t)
	path := makeRedClip(t)
	ctx := context.Background()

	v, err := NewFFmpeg("", "").Open(ctx, path)
	require.NoError(t, err)
	defer v.Release()

	assert.Equal(t, 64, v.Width())
	assert.Equal(t, 36, v.Height())
	assert.InDelta(t, 10, v.FrameRate(), 0.01)
	assert.InDelta(t, 20, v.FrameCount(), 1)

	img, err := v.FrameAt(ctx, 1.0)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())

	px := color.NRGBAModel.Convert(img.At(32, 18)).(color.NRGBA)
	assert.Greater(t, px.R, uint8(200))
	assert.Less(t, px.G, uint8(50))
}

func TestFrameAtAfterRelease(t *testing.T) {
	skipIfNoFFmpeg(t)
	path := makeRedClip(t)

	v, err := NewFFmpeg("", "").Open(context.Background(), path)
	require.NoError(t, err)

	v.Release()
	v.Release()

	_, err = v.FrameAt(context.Background(), 0.5)
	assert.ErrorIs(t, err, ErrReleased)
}

func TestOpenRejectsNonVideo(t *testing.T) {
	skipIfNoFFmpeg(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not a video"), 0644))

	_, err := NewFFmpeg("", "").Open(context.Background(), path)
	assert.Error(t, err)
}

func TestOpenMissingBinary(t *testing.T) {
	_, err := NewFFmpeg("", filepath.Join(t.TempDir(), "no-ffprobe")).Open(context.Background(), "clip.mp4")
	assert.Error(t, err)
}
