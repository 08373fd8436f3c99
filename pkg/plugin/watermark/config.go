package watermark

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
)

// WatermarkConfig holds the configuration for the watermark plugin
type WatermarkConfig struct {
	Position   string  `json:"position" mapstructure:"position"`
	SwatchSize int     `json:"swatch_size" mapstructure:"swatch_size"`
	Alpha      float64 `json:"alpha" mapstructure:"alpha"`
	Padding    int     `json:"padding" mapstructure:"padding"`
	OutputDir  string  `json:"output_dir" mapstructure:"output_dir"`
}

// SetDefaults sets default values for missing configuration
func (c *WatermarkConfig) SetDefaults() {
	if c.Position == "" {
		c.Position = "bottom-right"
	}
	if c.SwatchSize == 0 {
		c.SwatchSize = 24
	}
	if c.Alpha == 0 {
		c.Alpha = 0.8
	}
	if c.Padding == 0 {
		c.Padding = 10
	}
	if c.OutputDir == "" {
		c.OutputDir = "watermarked"
	}
}

// Validate checks if the configuration is valid
func (c *WatermarkConfig) Validate() error {
	validPositions := map[string]bool{
		"top-left":     true,
		"top-right":    true,
		"bottom-left":  true,
		"bottom-right": true,
	}
	if !validPositions[c.Position] {
		return fmt.Errorf("invalid position: %s (must be one of: top-left, top-right, bottom-left, bottom-right)", c.Position)
	}

	if c.SwatchSize <= 0 {
		return fmt.Errorf("swatch_size must be greater than 0, got: %d", c.SwatchSize)
	}

	if c.Alpha < 0.0 || c.Alpha > 1.0 {
		return fmt.Errorf("alpha must be between 0.0 and 1.0, got: %.2f", c.Alpha)
	}

	if c.Padding < 0 {
		return fmt.Errorf("padding must be greater than or equal to 0, got: %d", c.Padding)
	}

	dir := filepath.Clean(c.OutputDir)
	if filepath.IsAbs(dir) || dir == "." || dir == ".." || strings.HasPrefix(dir, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output_dir must be a sub-directory of the output directory, got: %s", c.OutputDir)
	}
	return nil
}

// Origin returns the top-left corner of a w×h band placed inside bounds
// according to the configured position and padding
func (c *WatermarkConfig) Origin(bounds image.Rectangle, w, h int) image.Point {
	x := bounds.Min.X + c.Padding
	y := bounds.Min.Y + c.Padding
	switch c.Position {
	case "top-right":
		x = bounds.Max.X - w - c.Padding
	case "bottom-left":
		y = bounds.Max.Y - h - c.Padding
	case "bottom-right":
		x = bounds.Max.X - w - c.Padding
		y = bounds.Max.Y - h - c.Padding
	}
	return image.Pt(x, y)
}
