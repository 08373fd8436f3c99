package main

import (
	"PaletteForge/internal/config"
	"PaletteForge/internal/job"
	"PaletteForge/internal/logging"
	"PaletteForge/internal/pipeline"
	"PaletteForge/internal/pipeline/storage"
	types "PaletteForge/pkg"
	"PaletteForge/pkg/ffmpeg"
	"PaletteForge/pkg/plugin"
	"PaletteForge/pkg/plugin/site"
	"PaletteForge/pkg/plugin/watermark"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	cfgFile string
	verbose bool
}

var errNoDatabase = errors.New("database.dsn is not set, run history needs a database")

// app carries what every subcommand needs once the config is loaded
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	closers []func()
}

// execute runs the CLI with args. Everything opened along the way is closed
// before it returns, whether the command succeeded or not.
func execute(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) error {
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "paletteforge",
		Short:         "Extract a color palette from a video",
		Long:          "Samples frames from a video, clusters their pixels into a palette and renders a palette strip, record and static site.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "config.yaml", "config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newRederiveCmd(a))
	root.AddCommand(newWorkerCmd(a))
	root.AddCommand(newSubmitCmd(a))
	root.AddCommand(newStatusCmd(a))
	root.AddCommand(newCleanupCmd(a))
	return root
}

func (a *app) init(opts *options) error {
	bootstrap, err := logging.New(types.LoggingConfig{Level: "warn"}, opts.verbose)
	if err != nil {
		return err
	}
	cfg, err := config.NewConfigLoader(bootstrap).Load(opts.cfgFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging, opts.verbose)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// store connects to the job database and makes sure its tables exist
func (a *app) store(ctx context.Context) (*job.Store, error) {
	if a.cfg.Database.DSN == "" {
		return nil, errNoDatabase
	}

	pool, err := job.Connect(ctx, a.cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	a.onClose(pool.Close)

	store := job.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// tracker returns the job manager, backed by Postgres when database.dsn is set
func (a *app) tracker(ctx context.Context) (*job.Manager, error) {
	logger := logging.WithComponent(a.logger, "jobs")
	if a.cfg.Database.DSN == "" {
		return job.NewManager(nil, logger), nil
	}

	store, err := a.store(ctx)
	if err != nil {
		return nil, err
	}
	return job.NewManager(store, logger), nil
}

// workflow wires the synchronous pipeline from the loaded config
func (a *app) workflow(tracker pipeline.Tracker) (*pipeline.Workflow, error) {
	cfg := a.cfg
	ff := ffmpeg.NewFFmpeg(cfg.Pipeline.FFMpegPath, cfg.Pipeline.FFProbePath)

	registry := plugin.NewRegistry()
	sitePlugin, err := site.NewSitePlugin(logging.WithComponent(a.logger, "site"))
	if err != nil {
		return nil, err
	}
	if err := registry.Register(sitePlugin); err != nil {
		return nil, err
	}
	if err := registry.Register(watermark.NewWatermarkPlugin(logging.WithComponent(a.logger, "watermark"))); err != nil {
		return nil, err
	}

	store, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	return pipeline.NewWorkflow(
		pipeline.NewSampler(pipeline.NewFFmpegSource(ff), cfg.Pipeline.MaxSamples, logging.WithComponent(a.logger, "sampler")),
		pipeline.NewPluginProcessor(registry, cfg.Plugins, logging.WithComponent(a.logger, "plugins")),
		pipeline.NewPublisher(store, cfg.Storage.Bucket, logging.WithComponent(a.logger, "publisher")),
		tracker,
		a.logger,
		cfg,
	), nil
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
