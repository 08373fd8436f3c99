// Package palette reduces sampled frames to an ordered set of representative
// colors and persists them as a strip image that can be read back without
// repeating the clustering.
package palette

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an 8-bit RGB triple.
type Color struct {
	R, G, B uint8
}

// Hex returns the lowercase "#rrggbb" form of c.
func (c Color) Hex() string {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}.Hex()
}

// RGBA implements color.Color so a Color can be drawn directly.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}.RGBA()
}

func (c Color) triple() [3]int {
	return [3]int{int(c.R), int(c.G), int(c.B)}
}

// Entry is one representative color and the number of pooled pixels assigned
// to its cluster. The population only drives ordering and is not persisted.
type Entry struct {
	Color      Color `json:"color"`
	Population int   `json:"population"`
}

// Palette is ordered by descending population, dominant color first.
type Palette []Entry

// Colors returns the palette colors in order.
func (p Palette) Colors() []Color {
	out := make([]Color, len(p))
	for i, e := range p {
		out[i] = e.Color
	}
	return out
}

// Hex returns the palette as "#rrggbb" strings in order.
func (p Palette) Hex() []string {
	out := make([]string, len(p))
	for i, e := range p {
		out[i] = e.Color.Hex()
	}
	return out
}
