package pipeline

import (
	"PaletteForge/internal/config"
	"PaletteForge/internal/job"
	"PaletteForge/internal/palette"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tracker receives the lifecycle of a run. *job.Manager implements it.
type Tracker interface {
	Start(ctx context.Context, runID uuid.UUID, videoPath, outputDir, workflowID string) error
	EmitProgress(ctx context.Context, runID uuid.UUID, stage job.JobStage, progress int, message string, details map[string]interface{}) error
	EmitError(ctx context.Context, runID uuid.UUID, message string) error
	Complete(ctx context.Context, runID uuid.UUID, paletteHex []string, result interface{}) error
}

const (
	stripFile  = "palette.png"
	recordFile = "palette.json"
)

// RunRequest names the video to process. An empty OutputDir resolves to
// <pipeline.output_dir>/<video name without extension>.
type RunRequest struct {
	RunID     uuid.UUID `json:"run_id"`
	VideoPath string    `json:"video_path"`
	OutputDir string    `json:"output_dir"`
}

// RunResult summarizes a completed run
type RunResult struct {
	RunID       uuid.UUID       `json:"run_id"`
	Frames      []FrameImage    `json:"frames"`
	Palette     palette.Palette `json:"palette"`
	Record      palette.Record  `json:"record"`
	StripPath   string          `json:"strip_path,omitempty"`
	RecordPath  string          `json:"record_path"`
	PluginFiles []string        `json:"plugin_files,omitempty"`
	Published   []string        `json:"published,omitempty"`
	Duration    time.Duration   `json:"duration"`
}

// Persisted is the outcome of writing the palette artifacts. StripPath is
// empty when the palette was empty and no strip was rendered.
type Persisted struct {
	Record     palette.Record `json:"record"`
	StripPath  string         `json:"strip_path,omitempty"`
	RecordPath string         `json:"record_path"`
}

// Workflow runs one video through sampling, clustering, persistence,
// plugins and publishing, strictly in that order.
type Workflow struct {
	sampler   *Sampler
	plugins   *PluginProcessor
	publisher *Publisher
	tracker   Tracker
	logger    *zap.Logger
	config    *config.Config
}

func NewWorkflow(sampler *Sampler, plugins *PluginProcessor, publisher *Publisher, tracker Tracker, logger *zap.Logger, cfg *config.Config) *Workflow {
	return &Workflow{
		sampler:   sampler,
		plugins:   plugins,
		publisher: publisher,
		tracker:   tracker,
		logger:    logger,
		config:    cfg,
	}
}

// ResolveOutputDir applies the default output directory to req.
func (w *Workflow) ResolveOutputDir(req RunRequest) string {
	if req.OutputDir != "" {
		return req.OutputDir
	}
	base := filepath.Base(req.VideoPath)
	return filepath.Join(w.config.Pipeline.OutputDir, strings.TrimSuffix(base, filepath.Ext(base)))
}

// SampleFrames writes the sampled frames under <outDir>/<frames_dir>.
func (w *Workflow) SampleFrames(ctx context.Context, videoPath, outDir string) ([]FrameImage, error) {
	return w.sampler.Sample(ctx, videoPath, filepath.Join(outDir, w.config.Pipeline.FramesDir))
}

// ExtractPalette clusters the given frame files. Each call gets its own
// extractor, so calls may run concurrently.
func (w *Workflow) ExtractPalette(ctx context.Context, frames []string) (palette.Palette, error) {
	return palette.NewExtractor(w.config.Palette, w.logger).ExtractFiles(ctx, frames)
}

// PersistPalette writes palette.png and palette.json into outDir. An empty
// palette produces an empty record and no strip.
func (w *Workflow) PersistPalette(outDir string, p palette.Palette) (Persisted, error) {
	out := Persisted{RecordPath: filepath.Join(outDir, recordFile)}

	img, rec, err := palette.Render(p.Colors())
	switch {
	case errors.Is(err, palette.ErrEmptyPalette):
		w.logger.Warn("Palette is empty, skipping strip", zap.String("output_dir", outDir))
	case err != nil:
		return out, err
	default:
		out.StripPath = filepath.Join(outDir, stripFile)
		if err := palette.SaveStrip(out.StripPath, img); err != nil {
			return out, fmt.Errorf("failed to write palette strip: %w", err)
		}
	}
	out.Record = rec

	if err := palette.SaveRecord(out.RecordPath, rec); err != nil {
		return out, fmt.Errorf("failed to write palette record: %w", err)
	}
	return out, nil
}

// RunPlugins executes the enabled plugins for a run.
func (w *Workflow) RunPlugins(ctx context.Context, req PluginRequest) ([]string, error) {
	if w.plugins == nil {
		return nil, nil
	}
	return w.plugins.ProcessPlugins(ctx, req)
}

// PublishArtifacts uploads files under <run-id>/ when storage is enabled.
func (w *Workflow) PublishArtifacts(ctx context.Context, runID uuid.UUID, outDir string, files []string) ([]string, error) {
	if !w.publisher.Enabled() {
		return nil, nil
	}
	return w.publisher.Publish(ctx, runID, outDir, files)
}

// Artifacts lists every file a run produced, in publish order.
func Artifacts(frames []FrameImage, persisted Persisted, pluginFiles []string) []string {
	files := make([]string, 0, len(frames)+len(pluginFiles)+2)
	if persisted.StripPath != "" {
		files = append(files, persisted.StripPath)
	}
	files = append(files, persisted.RecordPath)
	for _, f := range frames {
		files = append(files, f.Path)
	}
	return append(files, pluginFiles...)
}

// FramePaths returns the paths of frames in order.
func FramePaths(frames []FrameImage) []string {
	paths := make([]string, len(frames))
	for i, f := range frames {
		paths[i] = f.Path
	}
	return paths
}

// Run processes one video synchronously. Any step failure aborts the run,
// is reported to the tracker and returned with its cause.
func (w *Workflow) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	start := time.Now()
	if req.RunID == uuid.Nil {
		req.RunID = uuid.New()
	}
	outDir := w.ResolveOutputDir(req)
	result := &RunResult{RunID: req.RunID}
	logger := w.logger.With(zap.String("run_id", req.RunID.String()))

	w.track(func(t Tracker) error { return t.Start(ctx, req.RunID, req.VideoPath, outDir, "") })
	fail := func(err error) (*RunResult, error) {
		logger.Error("Run failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		w.track(func(t Tracker) error { return t.EmitError(ctx, req.RunID, err.Error()) })
		return result, err
	}

	// Step 1: Sample frames
	w.progress(ctx, req.RunID, job.StageSampling, 10, "Sampling frames", nil)
	frames, err := w.SampleFrames(ctx, req.VideoPath, outDir)
	if err != nil {
		return fail(fmt.Errorf("sampling failed: %w", err))
	}
	result.Frames = frames

	// Step 2: Cluster
	w.progress(ctx, req.RunID, job.StageClustering, 40, "Extracting palette",
		map[string]interface{}{"frames": len(frames)})
	pal, err := w.ExtractPalette(ctx, FramePaths(frames))
	if err != nil {
		return fail(fmt.Errorf("palette extraction failed: %w", err))
	}
	result.Palette = pal

	// Step 3: Strip and record
	w.progress(ctx, req.RunID, job.StageRendering, 60, "Writing palette artifacts",
		map[string]interface{}{"colors": len(pal)})
	persisted, err := w.PersistPalette(outDir, pal)
	if err != nil {
		return fail(fmt.Errorf("persisting palette failed: %w", err))
	}
	result.Record = persisted.Record
	result.StripPath = persisted.StripPath
	result.RecordPath = persisted.RecordPath

	// Step 4: Plugins
	w.progress(ctx, req.RunID, job.StagePlugins, 75, "Running plugins", nil)
	pluginFiles, err := w.RunPlugins(ctx, PluginRequest{
		RunID:      req.RunID,
		OutputDir:  outDir,
		Frames:     FramePaths(frames),
		PaletteHex: persisted.Record.Hex,
	})
	if err != nil {
		return fail(fmt.Errorf("plugins failed: %w", err))
	}
	result.PluginFiles = pluginFiles

	// Step 5: Publish
	if w.publisher.Enabled() {
		w.progress(ctx, req.RunID, job.StagePublishing, 90, "Publishing artifacts", nil)
	}
	published, err := w.PublishArtifacts(ctx, req.RunID, outDir, Artifacts(frames, persisted, pluginFiles))
	if err != nil {
		return fail(fmt.Errorf("publishing failed: %w", err))
	}
	result.Published = published
	result.Duration = time.Since(start)

	w.track(func(t Tracker) error { return t.Complete(ctx, req.RunID, persisted.Record.Hex, result) })
	logger.Info("Run completed",
		zap.String("output_dir", outDir),
		zap.Int("frames", len(frames)),
		zap.Strings("palette", persisted.Record.Hex),
		zap.Int("published", len(published)),
		zap.Duration("duration", result.Duration))

	return result, nil
}

func (w *Workflow) progress(ctx context.Context, runID uuid.UUID, stage job.JobStage, percent int, message string, details map[string]interface{}) {
	w.track(func(t Tracker) error { return t.EmitProgress(ctx, runID, stage, percent, message, details) })
}

// track reports to the tracker when one is set. Tracking failures are
// logged and never fail the run.
func (w *Workflow) track(fn func(Tracker) error) {
	if w.tracker == nil {
		return
	}
	if err := fn(w.tracker); err != nil {
		w.logger.Warn("Failed to record run progress", zap.Error(err))
	}
}
