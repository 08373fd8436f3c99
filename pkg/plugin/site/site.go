package site

import (
	"PaletteForge/internal/fsutil"
	"PaletteForge/pkg/plugin"
	"archive/zip"
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"image"
	"image/color"
	_ "image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

//go:embed templates
var templateFS embed.FS

const (
	fallbackPrimary    = "#222222"
	fallbackAccent     = "#555555"
	fallbackBackground = "#ffffff"
	lightText          = "#ffffff"
	darkText           = "#111111"
	heroFile           = "hero.png"
)

// Theme is the set of CSS variables a generated page is styled with
type Theme struct {
	Primary    string
	Accent     string
	Background string
	Text       string
}

type pageData struct {
	Theme
	Title    string
	Subtitle string
	Lang     string
	Hero     string
	Palette  []string
}

// SitePlugin renders a static landing page themed with the run's palette
type SitePlugin struct {
	logger *zap.Logger
	index  *htmltemplate.Template
	styles *template.Template
}

// NewSitePlugin creates a new site plugin instance
func NewSitePlugin(logger *zap.Logger) (*SitePlugin, error) {
	index, err := htmltemplate.ParseFS(templateFS, "templates/index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}
	styles, err := template.ParseFS(templateFS, "templates/styles.css.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse stylesheet template: %w", err)
	}
	return &SitePlugin{logger: logger, index: index, styles: styles}, nil
}

// Name returns the unique identifier for this plugin
func (p *SitePlugin) Name() string {
	return "site"
}

func decodeConfig(raw map[string]interface{}) (SiteConfig, error) {
	var cfg SiteConfig
	if err := mapstructure.Decode(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode site config: %w", err)
	}
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}

// Validate checks if the plugin configuration is valid
func (p *SitePlugin) Validate(config map[string]interface{}) error {
	_, err := decodeConfig(config)
	return err
}

// BuildTheme picks page colors from the palette, falling back to neutral
// colors when it has fewer than three entries. The text color contrasts
// with the mean luma of the first frame.
func BuildTheme(paletteHex []string, frames []string) (Theme, error) {
	theme := Theme{
		Primary:    fallbackPrimary,
		Accent:     fallbackAccent,
		Background: fallbackBackground,
		Text:       darkText,
	}
	if len(paletteHex) > 0 {
		theme.Primary = paletteHex[0]
	}
	if len(paletteHex) > 1 {
		theme.Accent = paletteHex[1]
	}
	if len(paletteHex) > 2 {
		theme.Background = paletteHex[2]
	}

	if len(frames) > 0 {
		luma, err := meanLuma(frames[0])
		if err != nil {
			return theme, err
		}
		if luma < 128 {
			theme.Text = lightText
		}
	}
	return theme, nil
}

// meanLuma averages ITU-R 601 luma over every pixel of the image at path.
func meanLuma(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("failed to decode frame %s: %w", path, err)
	}

	b := img.Bounds()
	if b.Empty() {
		return 0, nil
	}
	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			sum += 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
		}
	}
	return sum / float64(b.Dx()*b.Dy()), nil
}

// Execute writes the page bundle into <output>/<project_dir> and, when
// enabled, zips it into <output>/<archive_name>
func (p *SitePlugin) Execute(ctx context.Context, input plugin.PluginInput) (plugin.PluginOutput, error) {
	cfg, err := decodeConfig(input.Config)
	if err != nil {
		return plugin.PluginOutput{}, fmt.Errorf("invalid site config: %w", err)
	}

	theme, err := BuildTheme(input.PaletteHex, input.Frames)
	if err != nil {
		return plugin.PluginOutput{}, err
	}

	projectDir := filepath.Join(input.OutputDir, cfg.ProjectDir)
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		return plugin.PluginOutput{}, fmt.Errorf("failed to create project directory: %w", err)
	}

	data := pageData{
		Theme:    theme,
		Title:    cfg.Title,
		Subtitle: cfg.Subtitle,
		Lang:     cfg.Lang,
		Palette:  input.PaletteHex,
	}

	var files []string
	if len(input.Frames) > 0 {
		hero := filepath.Join(projectDir, heroFile)
		if err := fsutil.CopyFile(input.Frames[0], hero); err != nil {
			return plugin.PluginOutput{}, fmt.Errorf("failed to copy hero image: %w", err)
		}
		data.Hero = heroFile
		files = append(files, hero)
	} else {
		p.logger.Warn("No frames available, page has no hero image", zap.String("run_id", input.RunID.String()))
	}

	index := filepath.Join(projectDir, "index.html")
	if err := fsutil.WriteAtomic(index, func(w io.Writer) error {
		return p.index.Execute(w, data)
	}); err != nil {
		return plugin.PluginOutput{}, err
	}

	styles := filepath.Join(projectDir, "styles.css")
	if err := fsutil.WriteAtomic(styles, func(w io.Writer) error {
		return p.styles.Execute(w, data)
	}); err != nil {
		return plugin.PluginOutput{}, err
	}

	script := filepath.Join(projectDir, "script.js")
	js, err := templateFS.ReadFile("templates/script.js")
	if err != nil {
		return plugin.PluginOutput{}, err
	}
	if err := fsutil.WriteAtomic(script, func(w io.Writer) error {
		_, err := w.Write(js)
		return err
	}); err != nil {
		return plugin.PluginOutput{}, err
	}
	files = append(files, index, styles, script)

	if err := ctx.Err(); err != nil {
		return plugin.PluginOutput{}, err
	}

	if *cfg.Archive {
		archive := filepath.Join(input.OutputDir, cfg.ArchiveName)
		if err := zipDir(projectDir, archive); err != nil {
			return plugin.PluginOutput{}, fmt.Errorf("failed to archive site: %w", err)
		}
		files = append(files, archive)
	}

	p.logger.Info("Site generated",
		zap.String("run_id", input.RunID.String()),
		zap.String("project_dir", projectDir),
		zap.String("primary", theme.Primary),
		zap.String("text", theme.Text),
		zap.Int("files", len(files)))

	return plugin.PluginOutput{Files: files}, nil
}

// zipDir deflates every regular file under dir into dest, named by its
// slash-separated path relative to dir.
func zipDir(dir, dest string) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: filepath.ToSlash(rel), Method: zip.Deflate})
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	return fsutil.WriteAtomic(dest, func(w io.Writer) error {
		_, err := buf.WriteTo(w)
		return err
	})
}
