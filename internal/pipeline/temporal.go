package pipeline

import (
	"PaletteForge/internal/job"
	"PaletteForge/internal/palette"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"
)

// TemporalWorkflow runs palette extraction as a durable Temporal workflow
type TemporalWorkflow struct {
	client    client.Client
	worker    worker.Worker
	taskQueue string
	steps     *Workflow
	tracker   Tracker
	logger    *zap.Logger
}

// WorkflowInput is the input of PaletteWorkflow
type WorkflowInput struct {
	RunID     string `json:"run_id"`
	VideoPath string `json:"video_path"`
	OutputDir string `json:"output_dir"`
}

// SampleInput is the input of SampleActivity
type SampleInput struct {
	RunID     string `json:"run_id"`
	VideoPath string `json:"video_path"`
	OutputDir string `json:"output_dir"`
}

// ExtractInput is the input of ExtractActivity
type ExtractInput struct {
	RunID  string   `json:"run_id"`
	Frames []string `json:"frames"`
}

// PersistInput is the input of PersistActivity
type PersistInput struct {
	RunID     string          `json:"run_id"`
	OutputDir string          `json:"output_dir"`
	Palette   palette.Palette `json:"palette"`
}

// PublishInput is the input of PublishActivity
type PublishInput struct {
	RunID     string   `json:"run_id"`
	OutputDir string   `json:"output_dir"`
	Files     []string `json:"files"`
}

// NewTemporalWorkflow creates a new Temporal workflow manager around the
// same steps a synchronous Run uses
func NewTemporalWorkflow(c client.Client, taskQueue string, steps *Workflow, tracker Tracker, logger *zap.Logger) *TemporalWorkflow {
	return &TemporalWorkflow{
		client:    c,
		taskQueue: taskQueue,
		steps:     steps,
		tracker:   tracker,
		logger:    logger,
	}
}

// Register adds PaletteWorkflow and its activities to r
func Register(r worker.Registry, activities *Activities) {
	r.RegisterWorkflow(PaletteWorkflow)
	r.RegisterActivity(activities.SampleActivity)
	r.RegisterActivity(activities.ExtractActivity)
	r.RegisterActivity(activities.PersistActivity)
	r.RegisterActivity(activities.PluginsActivity)
	r.RegisterActivity(activities.PublishActivity)
}

// StartWorker starts the Temporal worker
func (tw *TemporalWorkflow) StartWorker() error {
	tw.worker = worker.New(tw.client, tw.taskQueue, worker.Options{})
	Register(tw.worker, NewActivities(tw.steps, tw.tracker, tw.logger))

	tw.logger.Info("Starting Temporal worker", zap.String("task_queue", tw.taskQueue))
	return tw.worker.Start()
}

// StopWorker stops the Temporal worker
func (tw *TemporalWorkflow) StopWorker() {
	if tw.worker != nil {
		tw.worker.Stop()
	}
}

// ExecuteWorkflow starts PaletteWorkflow for input and waits for its result
func (tw *TemporalWorkflow) ExecuteWorkflow(ctx context.Context, input WorkflowInput) (*RunResult, error) {
	runID := uuid.New()
	if input.RunID != "" {
		parsed, err := uuid.Parse(input.RunID)
		if err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", input.RunID, err)
		}
		runID = parsed
	}
	input.RunID = runID.String()
	input.OutputDir = tw.steps.ResolveOutputDir(RunRequest{VideoPath: input.VideoPath, OutputDir: input.OutputDir})

	workflowOptions := client.StartWorkflowOptions{
		ID:                       "palette-" + input.RunID,
		TaskQueue:                tw.taskQueue,
		WorkflowExecutionTimeout: 30 * time.Minute,
		WorkflowRunTimeout:       30 * time.Minute,
	}

	tw.track(func(t Tracker) error {
		return t.Start(ctx, runID, input.VideoPath, input.OutputDir, workflowOptions.ID)
	})

	we, err := tw.client.ExecuteWorkflow(ctx, workflowOptions, PaletteWorkflow, input)
	if err != nil {
		tw.track(func(t Tracker) error { return t.EmitError(ctx, runID, err.Error()) })
		return nil, fmt.Errorf("failed to start workflow: %w", err)
	}
	tw.logger.Info("Workflow started",
		zap.String("workflow_id", we.GetID()),
		zap.String("run_id", we.GetRunID()))

	var result RunResult
	if err := we.Get(ctx, &result); err != nil {
		tw.track(func(t Tracker) error { return t.EmitError(ctx, runID, err.Error()) })
		return nil, fmt.Errorf("workflow execution failed: %w", err)
	}

	tw.track(func(t Tracker) error { return t.Complete(ctx, runID, result.Record.Hex, result) })
	return &result, nil
}

func (tw *TemporalWorkflow) track(fn func(Tracker) error) {
	if tw.tracker == nil {
		return
	}
	if err := fn(tw.tracker); err != nil {
		tw.logger.Warn("Failed to record run progress", zap.Error(err))
	}
}

// PaletteWorkflow runs the extraction steps as activities, one after the
// other. Activities are never retried.
func PaletteWorkflow(ctx workflow.Context, input WorkflowInput) (RunResult, error) {
	logger := workflow.GetLogger(ctx)
	startTime := workflow.Now(ctx)

	logger.Info("Starting palette workflow",
		"run_id", input.RunID,
		"video", input.VideoPath,
		"output_dir", input.OutputDir)

	var result RunResult
	runID, err := uuid.Parse(input.RunID)
	if err != nil {
		return result, temporal.NewNonRetryableApplicationError("invalid run id", "InvalidInput", err)
	}
	result.RunID = runID

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	// Step 1: Sample frames
	var frames []FrameImage
	err = workflow.ExecuteActivity(ctx, "SampleActivity", SampleInput{
		RunID:     input.RunID,
		VideoPath: input.VideoPath,
		OutputDir: input.OutputDir,
	}).Get(ctx, &frames)
	if err != nil {
		return result, fmt.Errorf("sampling failed: %w", err)
	}
	result.Frames = frames
	logger.Info("Sampling completed", "frames", len(frames))

	// Step 2: Extract palette
	var pal palette.Palette
	err = workflow.ExecuteActivity(ctx, "ExtractActivity", ExtractInput{
		RunID:  input.RunID,
		Frames: FramePaths(frames),
	}).Get(ctx, &pal)
	if err != nil {
		return result, fmt.Errorf("palette extraction failed: %w", err)
	}
	result.Palette = pal

	// Step 3: Persist strip and record
	var persisted Persisted
	err = workflow.ExecuteActivity(ctx, "PersistActivity", PersistInput{
		RunID:     input.RunID,
		OutputDir: input.OutputDir,
		Palette:   pal,
	}).Get(ctx, &persisted)
	if err != nil {
		return result, fmt.Errorf("persisting palette failed: %w", err)
	}
	result.Record = persisted.Record
	result.StripPath = persisted.StripPath
	result.RecordPath = persisted.RecordPath

	// Step 4: Plugins
	var pluginFiles []string
	err = workflow.ExecuteActivity(ctx, "PluginsActivity", PluginRequest{
		RunID:      runID,
		OutputDir:  input.OutputDir,
		Frames:     FramePaths(frames),
		PaletteHex: persisted.Record.Hex,
	}).Get(ctx, &pluginFiles)
	if err != nil {
		return result, fmt.Errorf("plugins failed: %w", err)
	}
	result.PluginFiles = pluginFiles

	// Step 5: Publish
	var published []string
	err = workflow.ExecuteActivity(ctx, "PublishActivity", PublishInput{
		RunID:     input.RunID,
		OutputDir: input.OutputDir,
		Files:     Artifacts(frames, persisted, pluginFiles),
	}).Get(ctx, &published)
	if err != nil {
		return result, fmt.Errorf("publishing failed: %w", err)
	}
	result.Published = published
	result.Duration = workflow.Now(ctx).Sub(startTime)

	logger.Info("Palette workflow completed",
		"duration", result.Duration,
		"frames", len(result.Frames),
		"colors", len(result.Record.Hex),
		"published", len(result.Published))

	return result, nil
}

// Activities holds dependencies for Temporal activities
type Activities struct {
	steps   *Workflow
	tracker Tracker
	logger  *zap.Logger
}

// NewActivities creates a new Activities instance
func NewActivities(steps *Workflow, tracker Tracker, logger *zap.Logger) *Activities {
	return &Activities{
		steps:   steps,
		tracker: tracker,
		logger:  logger,
	}
}

func (a *Activities) progress(ctx context.Context, runID string, stage job.JobStage, percent int, message string) {
	if a.tracker == nil {
		return
	}
	id, err := uuid.Parse(runID)
	if err != nil {
		return
	}
	if err := a.tracker.EmitProgress(ctx, id, stage, percent, message, nil); err != nil {
		a.logger.Warn("Failed to record run progress", zap.Error(err))
	}
}

// SampleActivity samples frames into the run's output directory
func (a *Activities) SampleActivity(ctx context.Context, input SampleInput) ([]FrameImage, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Starting sample activity", "video", input.VideoPath)

	a.progress(ctx, input.RunID, job.StageSampling, 10, "Sampling frames")
	frames, err := a.steps.SampleFrames(ctx, input.VideoPath, input.OutputDir)
	if err != nil {
		logger.Error("Sampling failed", "error", err)
		return nil, err
	}
	return frames, nil
}

// ExtractActivity clusters the sampled frames
func (a *Activities) ExtractActivity(ctx context.Context, input ExtractInput) (palette.Palette, error) {
	a.progress(ctx, input.RunID, job.StageClustering, 40, "Extracting palette")
	return a.steps.ExtractPalette(ctx, input.Frames)
}

// PersistActivity writes palette.png and palette.json
func (a *Activities) PersistActivity(ctx context.Context, input PersistInput) (Persisted, error) {
	a.progress(ctx, input.RunID, job.StageRendering, 60, "Writing palette artifacts")
	return a.steps.PersistPalette(input.OutputDir, input.Palette)
}

// PluginsActivity runs the enabled plugins
func (a *Activities) PluginsActivity(ctx context.Context, input PluginRequest) ([]string, error) {
	a.progress(ctx, input.RunID.String(), job.StagePlugins, 75, "Running plugins")
	return a.steps.RunPlugins(ctx, input)
}

// PublishActivity uploads the run artifacts
func (a *Activities) PublishActivity(ctx context.Context, input PublishInput) ([]string, error) {
	runID, err := uuid.Parse(input.RunID)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError("invalid run id", "InvalidInput", err)
	}
	if a.steps.publisher.Enabled() {
		a.progress(ctx, input.RunID, job.StagePublishing, 90, "Publishing artifacts")
	}
	return a.steps.PublishArtifacts(ctx, runID, input.OutputDir, input.Files)
}
