package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"
)

// fakeSource serves solid-color frames from an imaginary video.
type fakeSource struct {
	fps     float64
	frames  int
	color   color.NRGBA
	openErr error
	// failAt lists offsets (in ms) whose decode fails.
	failAt map[int64]bool

	mu      sync.Mutex
	opens   int
	handles []*fakeHandle
}

func newFakeSource(fps float64, frames int, c color.NRGBA) *fakeSource {
	return &fakeSource{fps: fps, frames: frames, color: c, failAt: map[int64]bool{}}
}

func (s *fakeSource) Open(_ context.Context, _ string) (VideoHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	if s.openErr != nil {
		return nil, s.openErr
	}
	h := &fakeHandle{src: s}
	s.handles = append(s.handles, h)
	return h, nil
}

func (s *fakeSource) allReleased() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.handles {
		if !h.released {
			return false
		}
	}
	return true
}

type fakeHandle struct {
	src       *fakeSource
	requested []float64
	released  bool
}

func (h *fakeHandle) Width() int         { return 32 }
func (h *fakeHandle) Height() int        { return 18 }
func (h *fakeHandle) FrameRate() float64 { return h.src.fps }
func (h *fakeHandle) FrameCount() int    { return h.src.frames }

func (h *fakeHandle) FrameAt(_ context.Context, offset float64) (image.Image, error) {
	if h.released {
		return nil, errors.New("released")
	}
	h.requested = append(h.requested, offset)
	if h.src.failAt[offsetMillis(offset)] {
		return nil, errors.New("corrupt packet")
	}
	img := image.NewNRGBA(image.Rect(0, 0, 32, 18))
	draw.Draw(img, img.Bounds(), image.NewUniform(h.src.color), image.Point{}, draw.Src)
	return img, nil
}

func (h *fakeHandle) Release() { h.released = true }
