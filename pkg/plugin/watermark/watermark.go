package watermark

import (
	"PaletteForge/internal/fsutil"
	"PaletteForge/pkg/plugin"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// WatermarkPlugin stamps the palette as a row of swatches onto every
// sampled frame
type WatermarkPlugin struct {
	logger *zap.Logger
}

// NewWatermarkPlugin creates a new watermark plugin instance
func NewWatermarkPlugin(logger *zap.Logger) *WatermarkPlugin {
	return &WatermarkPlugin{logger: logger}
}

// Name returns the unique identifier for this plugin
func (p *WatermarkPlugin) Name() string {
	return "watermark"
}

func decodeConfig(raw map[string]interface{}) (WatermarkConfig, error) {
	var cfg WatermarkConfig
	if err := mapstructure.Decode(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode watermark config: %w", err)
	}
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}

// Validate checks if the plugin configuration is valid
func (p *WatermarkPlugin) Validate(config map[string]interface{}) error {
	_, err := decodeConfig(config)
	return err
}

// Execute writes a stamped copy of each frame to <output>/<output_dir>
func (p *WatermarkPlugin) Execute(ctx context.Context, input plugin.PluginInput) (plugin.PluginOutput, error) {
	config, err := decodeConfig(input.Config)
	if err != nil {
		return plugin.PluginOutput{}, fmt.Errorf("invalid watermark config: %w", err)
	}

	swatches, err := parseSwatches(input.PaletteHex)
	if err != nil {
		return plugin.PluginOutput{}, err
	}
	if len(swatches) == 0 || len(input.Frames) == 0 {
		p.logger.Info("Nothing to watermark",
			zap.Int("colors", len(swatches)),
			zap.Int("frames", len(input.Frames)))
		return plugin.PluginOutput{}, nil
	}

	outDir := filepath.Join(input.OutputDir, config.OutputDir)
	p.logger.Info("Applying palette watermark",
		zap.String("position", config.Position),
		zap.Int("swatch_size", config.SwatchSize),
		zap.Float64("alpha", config.Alpha),
		zap.Int("frames", len(input.Frames)))

	files := make([]string, 0, len(input.Frames))
	for _, frame := range input.Frames {
		if err := ctx.Err(); err != nil {
			return plugin.PluginOutput{}, err
		}

		dest := filepath.Join(outDir, filepath.Base(frame))
		if err := stampFile(frame, dest, swatches, config); err != nil {
			return plugin.PluginOutput{Error: err}, fmt.Errorf("failed to watermark %s: %w", frame, err)
		}
		files = append(files, dest)
	}

	p.logger.Info("Watermark applied successfully", zap.String("output_dir", outDir), zap.Int("files", len(files)))
	return plugin.PluginOutput{Files: files}, nil
}

func parseSwatches(hex []string) ([]color.Color, error) {
	out := make([]color.Color, 0, len(hex))
	for _, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("invalid palette color %q: %w", h, err)
		}
		r, g, b := c.RGB255()
		out = append(out, color.NRGBA{R: r, G: g, B: b, A: 0xff})
	}
	return out, nil
}

func stampFile(src, dest string, swatches []color.Color, config WatermarkConfig) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("failed to decode frame: %w", err)
	}

	stamped := Stamp(img, swatches, config)
	return fsutil.WriteAtomic(dest, func(w io.Writer) error {
		return png.Encode(w, stamped)
	})
}

// Stamp returns a copy of img with one square per swatch drawn in a row at
// the configured corner, blended with the configured alpha. Swatches that
// fall outside the frame are clipped.
func Stamp(img image.Image, swatches []color.Color, config WatermarkConfig) *image.NRGBA {
	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	size := config.SwatchSize
	origin := config.Origin(bounds, size*len(swatches), size)
	mask := image.NewUniform(color.Alpha{A: uint8(config.Alpha*255 + 0.5)})

	for i, c := range swatches {
		r := image.Rect(0, 0, size, size).Add(origin).Add(image.Pt(i*size, 0))
		draw.DrawMask(out, r.Intersect(bounds), image.NewUniform(c), image.Point{}, mask, image.Point{}, draw.Over)
	}
	return out
}
