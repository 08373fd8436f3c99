package pipeline

import (
	"PaletteForge/internal/fsutil"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// FrameImage is a sampled frame persisted on disk.
type FrameImage struct {
	Path   string  `json:"path"`
	Offset float64 `json:"offset"`
	Millis int64   `json:"millis"`
}

// SampleOffsets spreads n offsets evenly inside (0, duration), excluding
// both ends. n is maxSamples capped by frameCount when the count is known.
func SampleOffsets(duration float64, frameCount, maxSamples int) []float64 {
	if duration <= 0 || maxSamples <= 0 {
		return nil
	}
	n := maxSamples
	if frameCount > 0 && frameCount < n {
		n = frameCount
	}

	offsets := make([]float64, n)
	for i := 1; i <= n; i++ {
		offsets[i-1] = duration * float64(i) / float64(n+1)
	}
	return offsets
}

func offsetMillis(offset float64) int64 {
	return int64(math.Round(offset * 1000))
}

// FrameFileName names a frame by its offset in milliseconds, zero padded to
// at least six digits.
func FrameFileName(offset float64) string {
	return fmt.Sprintf("frame_%06d.png", offsetMillis(offset))
}

type Sampler struct {
	source     FrameSource
	maxSamples int
	logger     *zap.Logger
}

func NewSampler(source FrameSource, maxSamples int, logger *zap.Logger) *Sampler {
	return &Sampler{
		source:     source,
		maxSamples: maxSamples,
		logger:     logger,
	}
}

// Sample extracts up to maxSamples frames from videoPath into outDir and
// returns them in ascending offset order. Frames that fail to decode are
// skipped. Failing to open the video, a zero duration, a write failure and
// cancellation abort the call. The video handle is released on every path.
func (s *Sampler) Sample(ctx context.Context, videoPath, outDir string) ([]FrameImage, error) {
	start := time.Now()

	handle, err := s.source.Open(ctx, videoPath)
	if err != nil {
		s.logger.Error("Failed to open video", zap.String("video", videoPath), zap.Error(err))
		return nil, fmt.Errorf("%w %s: %w", ErrOpen, videoPath, err)
	}
	defer handle.Release()

	duration := DurationOf(handle)
	if duration <= 0 {
		s.logger.Error("Video duration is zero",
			zap.String("video", videoPath),
			zap.Float64("fps", handle.FrameRate()),
			zap.Int("frame_count", handle.FrameCount()))
		return nil, fmt.Errorf("%w: %s", ErrZeroDuration, videoPath)
	}

	offsets := SampleOffsets(duration, handle.FrameCount(), s.maxSamples)
	s.logger.Info("Sampling frames",
		zap.String("video", videoPath),
		zap.Int("width", handle.Width()),
		zap.Int("height", handle.Height()),
		zap.Float64("duration_sec", duration),
		zap.Int("frame_count", handle.FrameCount()),
		zap.Int("samples", len(offsets)))

	frames := make([]FrameImage, 0, len(offsets))
	for _, offset := range offsets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := handle.FrameAt(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("Skipping frame",
				zap.Float64("offset", offset),
				zap.Error(fmt.Errorf("%w: %w", ErrDecode, err)))
			continue
		}

		frame := FrameImage{
			Path:   filepath.Join(outDir, FrameFileName(offset)),
			Offset: offset,
			Millis: offsetMillis(offset),
		}
		if err := writeFrame(frame.Path, img); err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}

	s.logger.Info("Sampling completed",
		zap.Int("frames", len(frames)),
		zap.Int("skipped", len(offsets)-len(frames)),
		zap.Duration("duration", time.Since(start)))
	return frames, nil
}

func writeFrame(path string, img image.Image) error {
	return fsutil.WriteAtomic(path, func(w io.Writer) error {
		return png.Encode(w, img)
	})
}
