package site

import (
	"archive/zip"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"PaletteForge/pkg/plugin"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeFrame(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 9))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func newPlugin(t *testing.T) *SitePlugin {
	t.Helper()
	p, err := NewSitePlugin(zaptest.NewLogger(t))
	require.NoError(t, err)
	return p
}

func zipNames(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		assert.Equal(t, zip.Deflate, f.Method)
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func TestBuildTheme(t *testing.T) {
	dir := t.TempDir()
	dark := filepath.Join(dir, "dark.png")
	light := filepath.Join(dir, "light.png")
	writeFrame(t, dark, color.NRGBA{R: 20, G: 20, B: 40, A: 255})
	writeFrame(t, light, color.NRGBA{R: 240, G: 240, B: 230, A: 255})

	theme, err := BuildTheme([]string{"#102030", "#405060", "#708090", "#a0b0c0"}, []string{dark, light})
	require.NoError(t, err)
	assert.Equal(t, Theme{Primary: "#102030", Accent: "#405060", Background: "#708090", Text: "#ffffff"}, theme)

	theme, err = BuildTheme([]string{"#102030"}, []string{light})
	require.NoError(t, err)
	assert.Equal(t, Theme{Primary: "#102030", Accent: "#555555", Background: "#ffffff", Text: "#111111"}, theme)

	theme, err = BuildTheme(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Theme{Primary: "#222222", Accent: "#555555", Background: "#ffffff", Text: "#111111"}, theme)
}

func TestExecuteWritesBundleAndArchive(t *testing.T) {
	out := t.TempDir()
	frame := filepath.Join(out, "frame_001111.png")
	writeFrame(t, frame, color.NRGBA{R: 10, G: 10, B: 10, A: 255})

	res, err := newPlugin(t).Execute(context.Background(), plugin.PluginInput{
		RunID:      uuid.New(),
		OutputDir:  out,
		Frames:     []string{frame},
		PaletteHex: []string{"#ff0000", "#00ff00", "#0000ff"},
		Config:     map[string]interface{}{"title": "Night <Market>"},
	})
	require.NoError(t, err)

	project := filepath.Join(out, "site")
	archive := filepath.Join(out, "site.zip")
	assert.ElementsMatch(t, []string{
		filepath.Join(project, "hero.png"),
		filepath.Join(project, "index.html"),
		filepath.Join(project, "styles.css"),
		filepath.Join(project, "script.js"),
		archive,
	}, res.Files)

	css, err := os.ReadFile(filepath.Join(project, "styles.css"))
	require.NoError(t, err)
	assert.Contains(t, string(css), "--color-primary: #ff0000;")
	assert.Contains(t, string(css), "--color-accent:  #00ff00;")
	assert.Contains(t, string(css), "--color-bg:      #0000ff;")
	assert.Contains(t, string(css), "--color-text:    #ffffff;")
	assert.Contains(t, string(css), "url('hero.png')")

	page, err := os.ReadFile(filepath.Join(project, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), `<html lang="en">`)
	assert.Contains(t, string(page), "Night &lt;Market&gt;")
	assert.Contains(t, string(page), "#00ff00")

	assert.Equal(t, []string{"hero.png", "index.html", "script.js", "styles.css"}, zipNames(t, archive))
}

func TestExecuteWithoutFrames(t *testing.T) {
	out := t.TempDir()

	res, err := newPlugin(t).Execute(context.Background(), plugin.PluginInput{
		RunID:     uuid.New(),
		OutputDir: out,
		Config: map[string]interface{}{
			"project_dir":  "landing",
			"archive_name": "landing.zip",
			"lang":         "pt-br",
		},
	})
	require.NoError(t, err)
	assert.Len(t, res.Files, 4)
	assert.NoFileExists(t, filepath.Join(out, "landing", "hero.png"))

	css, err := os.ReadFile(filepath.Join(out, "landing", "styles.css"))
	require.NoError(t, err)
	assert.Contains(t, string(css), "--color-primary: #222222;")
	assert.Contains(t, string(css), "--color-text:    #111111;")
	assert.NotContains(t, string(css), "background-image")

	page, err := os.ReadFile(filepath.Join(out, "landing", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), `<html lang="pt-br">`)

	assert.Equal(t, []string{"index.html", "script.js", "styles.css"}, zipNames(t, filepath.Join(out, "landing.zip")))
}

func TestExecuteArchiveDisabled(t *testing.T) {
	out := t.TempDir()

	res, err := newPlugin(t).Execute(context.Background(), plugin.PluginInput{
		OutputDir:  out,
		PaletteHex: []string{"#123456"},
		Config:     map[string]interface{}{"archive": false},
	})
	require.NoError(t, err)
	assert.Len(t, res.Files, 3)
	assert.NoFileExists(t, filepath.Join(out, "site.zip"))
}

func TestValidate(t *testing.T) {
	p := newPlugin(t)
	assert.NoError(t, p.Validate(nil))
	assert.NoError(t, p.Validate(map[string]interface{}{"title": "ok", "archive": true}))

	for name, cfg := range map[string]map[string]interface{}{
		"escaping project dir": {"project_dir": "../elsewhere"},
		"absolute project dir": {"project_dir": "/tmp/site"},
		"output root":          {"project_dir": "."},
		"nested archive":       {"archive_name": "nested/site.zip"},
		"not a zip":            {"archive_name": "site.tar"},
		"wrong type":           {"title": []int{1}},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, p.Validate(cfg))
		})
	}
}
