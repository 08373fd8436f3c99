package main

import (
	"PaletteForge/internal/pipeline"
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

func (a *app) temporal(ctx context.Context) (*pipeline.TemporalWorkflow, error) {
	c, err := client.Dial(client.Options{
		HostPort:  a.cfg.Temporal.HostPort,
		Namespace: a.cfg.Temporal.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Temporal client: %w", err)
	}
	a.onClose(c.Close)

	tracker, err := a.tracker(ctx)
	if err != nil {
		return nil, err
	}
	steps, err := a.workflow(tracker)
	if err != nil {
		return nil, err
	}
	return pipeline.NewTemporalWorkflow(c, a.cfg.Temporal.TaskQueue, steps, tracker, a.logger), nil
}

func newWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run a Temporal worker for palette workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tw, err := a.temporal(ctx)
			if err != nil {
				return err
			}

			if err := tw.StartWorker(); err != nil {
				return fmt.Errorf("failed to start Temporal worker: %w", err)
			}
			defer tw.StopWorker()

			a.logger.Info("Temporal worker started",
				zap.String("host_port", a.cfg.Temporal.HostPort),
				zap.String("task_queue", a.cfg.Temporal.TaskQueue))

			<-ctx.Done()
			a.logger.Info("Shutting down...")
			return nil
		},
	}
}

func newSubmitCmd(a *app) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "submit <video>",
		Short: "Start a palette workflow on Temporal and wait for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tw, err := a.temporal(cmd.Context())
			if err != nil {
				return err
			}

			result, err := tw.ExecuteWorkflow(cmd.Context(), pipeline.WorkflowInput{
				VideoPath: args[0],
				OutputDir: outDir,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default <pipeline.output_dir>/<video name>)")
	return cmd
}
