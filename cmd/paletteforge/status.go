package main

import (
	"PaletteForge/internal/job"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type jobReader interface {
	GetJobWithProgress(ctx context.Context, jobID uuid.UUID, limit int) (*job.JobWithProgress, error)
}

type jobPruner interface {
	CleanupOldJobs(ctx context.Context, olderThan time.Duration) (int64, error)
}

func newStatusCmd(a *app) *cobra.Command {
	var events int

	cmd := &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show a recorded run and its latest progress events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}
			store, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			return printStatus(cmd.Context(), cmd.OutOrStdout(), store, runID, events)
		},
	}

	cmd.Flags().IntVarP(&events, "events", "n", 10, "number of progress events to show")
	return cmd
}

func printStatus(ctx context.Context, w io.Writer, r jobReader, runID uuid.UUID, events int) error {
	j, err := r.GetJobWithProgress(ctx, runID, events)
	if errors.Is(err, job.ErrJobNotFound) {
		return fmt.Errorf("no run recorded with id %s: %w", runID, job.ErrJobNotFound)
	}
	if err != nil {
		return err
	}
	return printJSON(w, j)
}

func newCleanupCmd(a *app) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete recorded runs older than a given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive, got %s", olderThan)
			}
			store, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := pruneJobs(cmd.Context(), cmd.OutOrStdout(), store, olderThan)
			if err != nil {
				return err
			}
			a.logger.Info("Old runs removed", zap.Int64("removed", removed), zap.Duration("older_than", olderThan))
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "minimum age of the runs to delete")
	return cmd
}

func pruneJobs(ctx context.Context, w io.Writer, p jobPruner, olderThan time.Duration) (int64, error) {
	removed, err := p.CleanupOldJobs(ctx, olderThan)
	if err != nil {
		return 0, err
	}
	_, err = fmt.Fprintf(w, "removed %d runs older than %s\n", removed, olderThan)
	return removed, err
}
