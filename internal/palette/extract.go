package palette

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/rand/v2"
	"os"
	"sort"

	types "PaletteForge/pkg"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

const (
	defaultClusters      = 6
	minAttempts          = 10
	defaultMaxIterations = 50
	defaultEpsilon       = 0.2
	defaultSampleWidth   = 160
	defaultSampleHeight  = 90
)

// PoolPixels decodes every frame, downsamples it to width×height and appends
// its RGB values to one shared pool.
func PoolPixels(frames []string, width, height int) ([]Color, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid sample size %dx%d", width, height)
	}

	pool := make([]Color, 0, len(frames)*width*height)
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	for _, path := range frames {
		src, err := decodeFrame(path)
		if err != nil {
			return nil, err
		}
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		for i := 0; i < len(dst.Pix); i += 4 {
			pool = append(pool, Color{R: dst.Pix[i], G: dst.Pix[i+1], B: dst.Pix[i+2]})
		}
	}
	return pool, nil
}

func decodeFrame(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame %s: %w", path, err)
	}
	return img, nil
}

// Extractor clusters pooled pixels into a palette. It holds a random source
// and must not be shared between goroutines.
type Extractor struct {
	config types.PaletteConfig
	logger *zap.Logger
	rng    *rand.Rand
}

// NewExtractor fills unset fields of cfg with defaults. A non-zero Seed pins
// the random source so repeated runs produce the same palette.
func NewExtractor(cfg types.PaletteConfig, logger *zap.Logger) *Extractor {
	if cfg.Clusters <= 0 {
		cfg.Clusters = defaultClusters
	}
	if cfg.Attempts < minAttempts {
		cfg.Attempts = minAttempts
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = defaultEpsilon
	}
	if cfg.SampleWidth <= 0 {
		cfg.SampleWidth = defaultSampleWidth
	}
	if cfg.SampleHeight <= 0 {
		cfg.SampleHeight = defaultSampleHeight
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	return &Extractor{
		config: cfg,
		logger: logger,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Extract returns at most Clusters colors ordered by descending population.
// With no more distinct colors than Clusters the distinct colors themselves
// are returned without clustering.
func (e *Extractor) Extract(pixels []Color) Palette {
	if len(pixels) == 0 {
		return Palette{}
	}

	distinct, counts := dedupe(pixels)
	k := e.config.Clusters

	var out Palette
	if len(distinct) <= k {
		e.logger.Debug("Fewer distinct colors than clusters, skipping k-means",
			zap.Int("distinct", len(distinct)),
			zap.Int("clusters", k))

		out = make(Palette, len(distinct))
		for i, c := range distinct {
			out[i] = Entry{Color: c, Population: counts[i]}
		}
	} else {
		pts := make([]weighted, len(distinct))
		for i, c := range distinct {
			pts[i] = weighted{
				p: [3]float64{float64(c.R), float64(c.G), float64(c.B)},
				w: float64(counts[i]),
			}
		}

		res := kmeans(e.rng, pts, k, e.config.Attempts, e.config.MaxIterations, e.config.Epsilon)
		e.logger.Debug("K-means finished",
			zap.Int("pixels", len(pixels)),
			zap.Int("distinct", len(distinct)),
			zap.Int("clusters", k),
			zap.Int("iterations", res.iterations),
			zap.Float64("compactness", res.compactness))

		out = make(Palette, k)
		for j, c := range res.centers {
			out[j].Color = Color{R: toChannel(c[0]), G: toChannel(c[1]), B: toChannel(c[2])}
		}
		for i, l := range res.labels {
			out[l].Population += counts[i]
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Population > out[j].Population
	})
	return out
}

// ExtractFiles pools the given frame files and extracts their palette.
func (e *Extractor) ExtractFiles(ctx context.Context, frames []string) (Palette, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pixels, err := PoolPixels(frames, e.config.SampleWidth, e.config.SampleHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to pool frame pixels: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := e.Extract(pixels)
	e.logger.Info("Palette extracted",
		zap.Int("frames", len(frames)),
		zap.Int("colors", len(p)),
		zap.Strings("hex", p.Hex()))
	return p, nil
}
