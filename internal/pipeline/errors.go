package pipeline

import "errors"

var (
	// ErrOpen marks a video that could not be opened. It aborts a run.
	ErrOpen = errors.New("failed to open video")
	// ErrDecode marks a single frame that could not be decoded. The sampler
	// skips such offsets.
	ErrDecode = errors.New("failed to decode frame")
	// ErrZeroDuration marks a video whose derived duration is zero.
	ErrZeroDuration = errors.New("video has zero duration")
)
