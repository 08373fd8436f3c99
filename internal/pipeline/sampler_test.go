package pipeline

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

var solidRed = color.NRGBA{R: 255, A: 255}

func TestSampleOffsets(t *testing.T) {
	offsets := SampleOffsets(10, 10, 8)
	require.Len(t, offsets, 8)
	for i, o := range offsets {
		assert.InDelta(t, 10*float64(i+1)/9, o, 1e-9)
		assert.Greater(t, o, 0.0)
		assert.Less(t, o, 10.0)
		if i > 0 {
			assert.Greater(t, o, offsets[i-1])
		}
	}
}

func TestSampleOffsetsCappedByFrameCount(t *testing.T) {
	assert.Equal(t, []float64{0.75, 1.5, 2.25}, SampleOffsets(3, 3, 8))
}

func TestSampleOffsetsUnknownFrameCount(t *testing.T) {
	assert.Len(t, SampleOffsets(4, 0, 5), 5)
}

func TestSampleOffsetsZeroDuration(t *testing.T) {
	assert.Empty(t, SampleOffsets(0, 10, 8))
}

func TestFrameFileName(t *testing.T) {
	assert.Equal(t, "frame_001111.png", FrameFileName(10.0/9))
	assert.Equal(t, "frame_000000.png", FrameFileName(0.0001))
	assert.Equal(t, "frame_005556.png", FrameFileName(50.0/9))
	assert.Equal(t, "frame_1234568.png", FrameFileName(1234.5678))
}

func TestSampleLogsVideoGeometry(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	src := newFakeSource(1, 10, solidRed)

	_, err := NewSampler(src, 2, zap.New(core)).Sample(context.Background(), "clip.mp4", t.TempDir())
	require.NoError(t, err)

	entries := logs.FilterMessage("Sampling frames").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(32), fields["width"])
	assert.Equal(t, int64(18), fields["height"])
	assert.Equal(t, int64(2), fields["samples"])
}

func TestSampleWritesFramesInOrder(t *testing.T) {
	src := newFakeSource(1, 10, solidRed)
	dir := t.TempDir()

	frames, err := NewSampler(src, 8, zaptest.NewLogger(t)).Sample(context.Background(), "clip.mp4", dir)
	require.NoError(t, err)

	want := []string{
		"frame_001111.png", "frame_002222.png", "frame_003333.png", "frame_004444.png",
		"frame_005556.png", "frame_006667.png", "frame_007778.png", "frame_008889.png",
	}
	require.Len(t, frames, len(want))
	for i, f := range frames {
		assert.Equal(t, filepath.Join(dir, want[i]), f.Path)
		assert.FileExists(t, f.Path)
		if i > 0 {
			assert.Greater(t, f.Offset, frames[i-1].Offset)
		}
	}
	assert.Equal(t, int64(1111), frames[0].Millis)
	assert.True(t, src.allReleased())
}

func TestSampleSkipsUndecodableFrames(t *testing.T) {
	src := newFakeSource(1, 10, solidRed)
	src.failAt[3333] = true
	src.failAt[8889] = true

	frames, err := NewSampler(src, 8, zaptest.NewLogger(t)).Sample(context.Background(), "clip.mp4", t.TempDir())
	require.NoError(t, err)

	assert.Len(t, frames, 6)
	for _, f := range frames {
		assert.NotEqual(t, int64(3333), f.Millis)
		assert.NotEqual(t, int64(8889), f.Millis)
	}
	// each offset is requested exactly once
	assert.Len(t, src.handles[0].requested, 8)
	assert.True(t, src.allReleased())
}

func TestSampleAllFramesFail(t *testing.T) {
	src := newFakeSource(1, 3, solidRed)
	for _, ms := range []int64{750, 1500, 2250} {
		src.failAt[ms] = true
	}

	frames, err := NewSampler(src, 8, zaptest.NewLogger(t)).Sample(context.Background(), "clip.mp4", t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, frames)
	assert.True(t, src.allReleased())
}

func TestSampleOpenFailure(t *testing.T) {
	src := newFakeSource(1, 10, solidRed)
	src.openErr = errors.New("no such file")

	_, err := NewSampler(src, 8, zaptest.NewLogger(t)).Sample(context.Background(), "missing.mp4", t.TempDir())
	assert.ErrorIs(t, err, ErrOpen)
	assert.ErrorContains(t, err, "no such file")
}

func TestSampleZeroDuration(t *testing.T) {
	for name, src := range map[string]*fakeSource{
		"unknown rate": newFakeSource(0, 100, solidRed),
		"no frames":    newFakeSource(25, 0, solidRed),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewSampler(src, 8, zaptest.NewLogger(t)).Sample(context.Background(), "clip.mp4", t.TempDir())
			assert.ErrorIs(t, err, ErrZeroDuration)
			assert.True(t, src.allReleased())
		})
	}
}

func TestSampleWriteFailureReleasesHandle(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "frames")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	src := newFakeSource(1, 10, solidRed)
	_, err := NewSampler(src, 8, zaptest.NewLogger(t)).Sample(context.Background(), "clip.mp4", blocker)
	assert.Error(t, err)
	assert.True(t, src.allReleased())
}

func TestSampleCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := newFakeSource(1, 10, solidRed)
	_, err := NewSampler(src, 8, zaptest.NewLogger(t)).Sample(ctx, "clip.mp4", t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, src.allReleased())
}
