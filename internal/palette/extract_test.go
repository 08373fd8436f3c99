package palette

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	types "PaletteForge/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestExtractor(t *testing.T, clusters int, seed uint64) *Extractor {
	t.Helper()
	return NewExtractor(types.PaletteConfig{Clusters: clusters, Seed: seed}, zaptest.NewLogger(t))
}

func repeat(c Color, n int) []Color {
	out := make([]Color, n)
	for i := range out {
		out[i] = c
	}
	return out
}

// blob returns n pixels jittered by at most ±3 around c.
func blob(c Color, n int) []Color {
	out := make([]Color, n)
	for i := range out {
		d := i%7 - 3
		out[i] = Color{
			R: uint8(int(c.R) + d),
			G: uint8(int(c.G) - d),
			B: uint8(int(c.B) + (i%5 - 2)),
		}
	}
	return out
}

func TestExtractEmptyPool(t *testing.T) {
	p := newTestExtractor(t, 6, 1).Extract(nil)
	assert.Empty(t, p)
}

func TestExtractSingleColor(t *testing.T) {
	p := newTestExtractor(t, 6, 1).Extract(repeat(red, 160*90*8))

	require.Len(t, p, 1)
	assert.Equal(t, red, p[0].Color)
	assert.Equal(t, 160*90*8, p[0].Population)
	assert.Equal(t, []string{"#ff0000"}, p.Hex())
}

func TestExtractFewDistinctColors(t *testing.T) {
	var pixels []Color
	pixels = append(pixels, repeat(blue, 10)...)
	pixels = append(pixels, repeat(red, 30)...)
	pixels = append(pixels, repeat(green, 10)...)

	p := newTestExtractor(t, 6, 1).Extract(pixels)

	require.Len(t, p, 3)
	// equal populations keep first-seen order
	assert.Equal(t, []Color{red, blue, green}, p.Colors())
	assert.Equal(t, []int{30, 10, 10}, []int{p[0].Population, p[1].Population, p[2].Population})
}

func TestExtractSeparatesClusters(t *testing.T) {
	gray := Color{R: 128, G: 128, B: 128}
	var pixels []Color
	pixels = append(pixels, blob(gray, 100)...)
	pixels = append(pixels, blob(Color{R: 200, G: 30, B: 30}, 400)...)
	pixels = append(pixels, blob(Color{R: 30, G: 200, B: 30}, 300)...)
	pixels = append(pixels, blob(Color{R: 30, G: 30, B: 200}, 200)...)

	p := newTestExtractor(t, 4, 42).Extract(pixels)

	require.Len(t, p, 4)
	assert.Equal(t, []int{400, 300, 200, 100},
		[]int{p[0].Population, p[1].Population, p[2].Population, p[3].Population})

	want := []Color{{R: 200, G: 30, B: 30}, {R: 30, G: 200, B: 30}, {R: 30, G: 30, B: 200}, gray}
	for i, w := range want {
		assert.InDelta(t, w.R, p[i].Color.R, 3, "entry %d", i)
		assert.InDelta(t, w.G, p[i].Color.G, 3, "entry %d", i)
		assert.InDelta(t, w.B, p[i].Color.B, 3, "entry %d", i)
	}
}

func TestExtractNeverExceedsClusters(t *testing.T) {
	var pixels []Color
	for r := 0; r < 256; r += 5 {
		for g := 0; g < 256; g += 17 {
			pixels = append(pixels, Color{R: uint8(r), G: uint8(g), B: uint8(255 - r)})
		}
	}

	for _, k := range []int{1, 2, 6, 9} {
		p := newTestExtractor(t, k, 7).Extract(pixels)
		require.Len(t, p, k)

		total := 0
		for i, e := range p {
			total += e.Population
			if i > 0 {
				assert.GreaterOrEqual(t, p[i-1].Population, e.Population)
			}
		}
		assert.Equal(t, len(pixels), total)
	}
}

func TestExtractSeedIsDeterministic(t *testing.T) {
	var pixels []Color
	for i := range 2000 {
		pixels = append(pixels, Color{R: uint8(i * 7), G: uint8(i * 13), B: uint8(i * 29)})
	}

	a := newTestExtractor(t, 5, 99).Extract(pixels)
	b := newTestExtractor(t, 5, 99).Extract(pixels)
	assert.Equal(t, a, b)
}

func writeSolidPNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestPoolPixelsDownsamples(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writeSolidPNG(t, a, 320, 180, color.NRGBA{R: 200, G: 10, B: 60, A: 255})
	writeSolidPNG(t, b, 64, 36, color.NRGBA{R: 5, G: 5, B: 5, A: 255})

	pool, err := PoolPixels([]string{a, b}, 160, 90)
	require.NoError(t, err)
	require.Len(t, pool, 2*160*90)

	assert.InDelta(t, 200, pool[0].R, 1)
	assert.InDelta(t, 10, pool[0].G, 1)
	assert.InDelta(t, 60, pool[0].B, 1)
	assert.InDelta(t, 5, pool[len(pool)-1].R, 1)
}

func TestPoolPixelsMissingFrame(t *testing.T) {
	_, err := PoolPixels([]string{filepath.Join(t.TempDir(), "nope.png")}, 160, 90)
	assert.Error(t, err)
}

func TestExtractFiles(t *testing.T) {
	dir := t.TempDir()
	frame := filepath.Join(dir, "frame_000500.png")
	writeSolidPNG(t, frame, 160, 90, color.NRGBA{R: 255, A: 255})

	p, err := newTestExtractor(t, 6, 1).ExtractFiles(context.Background(), []string{frame})
	require.NoError(t, err)
	require.Len(t, p, 1)
	assert.Equal(t, "#ff0000", p[0].Color.Hex())
}

func TestExtractFilesCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestExtractor(t, 6, 1).ExtractFiles(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
