package pipeline

import (
	"PaletteForge/pkg/ffmpeg"
	"context"
	"image"
)

// FrameSource opens videos for frame extraction.
type FrameSource interface {
	Open(ctx context.Context, path string) (VideoHandle, error)
}

// VideoHandle is an opened video. FrameRate and FrameCount may be 0 when the
// container does not report them.
type VideoHandle interface {
	Width() int
	Height() int
	FrameRate() float64
	FrameCount() int
	FrameAt(ctx context.Context, offset float64) (image.Image, error)
	Release()
}

// DurationOf derives a handle's duration from its frame count and rate.
func DurationOf(h VideoHandle) float64 {
	if h.FrameRate() <= 0 {
		return 0
	}
	return float64(h.FrameCount()) / h.FrameRate()
}

type ffmpegSource struct {
	ff *ffmpeg.FFmpeg
}

// NewFFmpegSource returns a FrameSource backed by the ffmpeg binaries.
func NewFFmpegSource(ff *ffmpeg.FFmpeg) FrameSource {
	return &ffmpegSource{ff: ff}
}

func (s *ffmpegSource) Open(ctx context.Context, path string) (VideoHandle, error) {
	v, err := s.ff.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return v, nil
}
