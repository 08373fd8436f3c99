package main

import (
	"PaletteForge/internal/job"
	"PaletteForge/internal/pipeline"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		outDir   string
		samples  int
		clusters int
		seed     uint64
		follow   bool
	)

	cmd := &cobra.Command{
		Use:   "run <video>",
		Short: "Extract the palette of a video and build its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("samples") {
				if samples < 1 {
					return fmt.Errorf("--samples must be at least 1")
				}
				a.cfg.Pipeline.MaxSamples = samples
			}
			if flags.Changed("clusters") {
				if clusters < 1 {
					return fmt.Errorf("--clusters must be at least 1")
				}
				a.cfg.Palette.Clusters = clusters
			}
			if flags.Changed("seed") {
				a.cfg.Palette.Seed = seed
			}

			ctx := cmd.Context()
			tracker, err := a.tracker(ctx)
			if err != nil {
				return err
			}
			wf, err := a.workflow(tracker)
			if err != nil {
				return err
			}

			runID := uuid.New()
			stop := func() {}
			if follow {
				stop = followProgress(cmd.ErrOrStderr(), tracker, runID)
			}
			result, err := wf.Run(ctx, pipeline.RunRequest{RunID: runID, VideoPath: args[0], OutputDir: outDir})
			stop()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default <pipeline.output_dir>/<video name>)")
	cmd.Flags().IntVar(&samples, "samples", 0, "number of frames to sample")
	cmd.Flags().IntVarP(&clusters, "clusters", "k", 0, "number of palette colors")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "clustering seed, 0 for random")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "print progress updates to stderr")
	return cmd
}

// followProgress prints every update of runID to w until the returned stop
// func is called. stop returns once everything received has been printed.
func followProgress(w io.Writer, m *job.Manager, runID uuid.UUID) (stop func()) {
	updates := m.Subscribe(runID)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range updates {
			fmt.Fprintf(w, "[%3d%%] %-10s %s\n", u.Progress, u.Stage, u.Message)
		}
	}()
	return func() {
		m.Unsubscribe(runID, updates)
		<-done
	}
}
