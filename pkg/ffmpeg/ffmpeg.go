package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"
)

// ErrReleased is returned by FrameAt after Release.
var ErrReleased = errors.New("video handle released")

type FFmpeg struct {
	pathToBinary string
	pathToProbe  string
}

func NewFFmpeg(pathToBinary, pathToProbe string) *FFmpeg {
	if pathToBinary == "" {
		pathToBinary = "ffmpeg"
	}
	if pathToProbe == "" {
		pathToProbe = "ffprobe"
	}
	return &FFmpeg{pathToBinary: pathToBinary, pathToProbe: pathToProbe}
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	NbFrames     string `json:"nb_frames"`
	Duration     string `json:"duration"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

// Video is an opened video file. FrameAt may be called any number of times
// until Release.
type Video struct {
	ff       *FFmpeg
	path     string
	width    int
	height   int
	fps      float64
	frames   int
	duration float64
	released atomic.Bool
}

// Open probes path and returns a handle for frame extraction.
func (f *FFmpeg) Open(ctx context.Context, path string) (*Video, error) {
	out, err := f.probe(ctx, path)
	if err != nil {
		return nil, err
	}

	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	var stream *probeStream
	for i := range probe.Streams {
		if probe.Streams[i].CodecType == "video" {
			stream = &probe.Streams[i]
			break
		}
	}
	if stream == nil {
		return nil, fmt.Errorf("no video stream in %s", path)
	}

	v := &Video{
		ff:     f,
		path:   path,
		width:  stream.Width,
		height: stream.Height,
		fps:    ParseFrameRate(stream.RFrameRate),
	}
	if v.fps == 0 {
		v.fps = ParseFrameRate(stream.AvgFrameRate)
	}

	v.duration = parseFloat(probe.Format.Duration)
	if v.duration == 0 {
		v.duration = parseFloat(stream.Duration)
	}

	if n, err := strconv.Atoi(stream.NbFrames); err == nil && n > 0 {
		v.frames = n
	} else if v.duration > 0 && v.fps > 0 {
		v.frames = int(math.Round(v.duration * v.fps))
	}

	return v, nil
}

func (f *FFmpeg) probe(ctx context.Context, path string) ([]byte, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	cmd := exec.CommandContext(ctx, f.pathToProbe, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe command failed: %v, output: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Exec runs ffmpeg with args and returns its stdout.
func (f *FFmpeg) Exec(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, f.pathToBinary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg command failed: %v, output: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func (v *Video) Width() int         { return v.width }
func (v *Video) Height() int        { return v.height }
func (v *Video) FrameRate() float64 { return v.fps }
func (v *Video) FrameCount() int    { return v.frames }

// FrameAt decodes the frame at offset seconds into the video.
func (v *Video) FrameAt(ctx context.Context, offset float64) (image.Image, error) {
	if v.released.Load() {
		return nil, ErrReleased
	}

	args := []string{
		"-v", "error",
		"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
		"-i", v.path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-c:v", "png",
		"pipe:1",
	}
	out, err := v.ff.Exec(ctx, args)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no frame at %.3fs", offset)
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame at %.3fs: %w", offset, err)
	}
	return img, nil
}

// Release invalidates the handle. Calling it more than once is harmless.
func (v *Video) Release() {
	v.released.Store(true)
}

// ParseFrameRate parses an ffprobe rate such as "30000/1001" or "25".
// Unknown or malformed rates yield 0.
func ParseFrameRate(rate string) float64 {
	num, den, found := strings.Cut(rate, "/")
	if !found {
		return parseFloat(rate)
	}
	n, d := parseFloat(num), parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}
