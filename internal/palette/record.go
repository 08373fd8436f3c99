package palette

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"PaletteForge/internal/fsutil"
)

// Record is the structured form of a palette as written to palette.json.
// Both slices are positionally aligned with the strip blocks.
type Record struct {
	RGB [][3]int `json:"palette_rgb"`
	Hex []string `json:"palette_hex"`
}

// NewRecord builds the record for colors, in order. An empty input yields
// empty (non-nil) slices so the JSON form is [] rather than null.
func NewRecord(colors []Color) Record {
	rec := Record{
		RGB: make([][3]int, 0, len(colors)),
		Hex: make([]string, 0, len(colors)),
	}
	for _, c := range colors {
		rec.RGB = append(rec.RGB, c.triple())
		rec.Hex = append(rec.Hex, c.Hex())
	}
	return rec
}

// Len is the number of colors in the record.
func (r Record) Len() int {
	return len(r.RGB)
}

// Colors converts the RGB triples back to colors.
func (r Record) Colors() []Color {
	out := make([]Color, len(r.RGB))
	for i, t := range r.RGB {
		out[i] = Color{R: uint8(t[0]), G: uint8(t[1]), B: uint8(t[2])}
	}
	return out
}

// Validate checks channel ranges, hex alignment and hex spelling.
func (r Record) Validate() error {
	if len(r.RGB) != len(r.Hex) {
		return fmt.Errorf("palette record misaligned: %d rgb entries, %d hex entries", len(r.RGB), len(r.Hex))
	}
	for i, t := range r.RGB {
		for _, ch := range t {
			if ch < 0 || ch > 255 {
				return fmt.Errorf("palette entry %d: channel %d out of range", i, ch)
			}
		}
		want := Color{R: uint8(t[0]), G: uint8(t[1]), B: uint8(t[2])}.Hex()
		if r.Hex[i] != want {
			return fmt.Errorf("palette entry %d: hex %q does not match rgb %v", i, r.Hex[i], t)
		}
	}
	return nil
}

// MarshalIndent renders the record the way palette.json is written.
func (r Record) MarshalIndent() ([]byte, error) {
	if r.RGB == nil {
		r.RGB = [][3]int{}
	}
	if r.Hex == nil {
		r.Hex = []string{}
	}
	return json.MarshalIndent(r, "", "  ")
}

// SaveRecord atomically writes rec as indented JSON to path.
func SaveRecord(path string, rec Record) error {
	data, err := rec.MarshalIndent()
	if err != nil {
		return fmt.Errorf("failed to marshal palette record: %w", err)
	}
	return fsutil.WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(append(data, '\n'))
		return err
	})
}

// LoadRecord reads and validates a palette.json file.
func LoadRecord(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("failed to read palette record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to parse palette record: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}
