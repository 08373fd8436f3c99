package palette

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"

	"PaletteForge/internal/fsutil"
)

// BlockSize is the edge length in pixels of each square block in a strip.
const BlockSize = 60

var (
	// ErrEmptyPalette is returned by Render when there is nothing to draw.
	ErrEmptyPalette = errors.New("palette is empty")
	// ErrNotAStrip is returned by Rederive for images narrower than one block.
	ErrNotAStrip = errors.New("image is not a palette strip")
)

// Render draws colors left to right as BlockSize squares on a white canvas
// and returns the strip together with its record. For an empty input it
// returns a nil image, an empty record and ErrEmptyPalette.
func Render(colors []Color) (*image.NRGBA, Record, error) {
	rec := NewRecord(colors)
	if len(colors) == 0 {
		return nil, rec, ErrEmptyPalette
	}

	img := image.NewNRGBA(image.Rect(0, 0, BlockSize*len(colors), BlockSize))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	for i, c := range colors {
		block := image.Rect(i*BlockSize, 0, (i+1)*BlockSize, BlockSize)
		draw.Draw(img, block, image.NewUniform(c), image.Point{}, draw.Src)
	}
	return img, rec, nil
}

// Rederive reads the palette back out of a strip by sampling the center pixel
// of each block. Block count is width / BlockSize; trailing columns that do
// not make up a full block are ignored.
func Rederive(img image.Image) (Record, error) {
	b := img.Bounds()
	n := b.Dx() / BlockSize
	if n < 1 || b.Dy() < 1 {
		return NewRecord(nil), fmt.Errorf("%w: %dx%d", ErrNotAStrip, b.Dx(), b.Dy())
	}

	y := b.Min.Y + b.Dy()/2
	colors := make([]Color, n)
	for i := range n {
		x := b.Min.X + i*BlockSize + BlockSize/2
		px := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
		colors[i] = Color{R: px.R, G: px.G, B: px.B}
	}
	return NewRecord(colors), nil
}

// SaveStrip atomically encodes img as PNG at path.
func SaveStrip(path string, img image.Image) error {
	return fsutil.WriteAtomic(path, func(w io.Writer) error {
		return png.Encode(w, img)
	})
}

// LoadStrip decodes the PNG at path.
func LoadStrip(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open strip: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode strip %s: %w", path, err)
	}
	return img, nil
}

// RederiveFile loads a strip from disk and rederives its record.
func RederiveFile(path string) (Record, error) {
	img, err := LoadStrip(path)
	if err != nil {
		return Record{}, err
	}
	return Rederive(img)
}
