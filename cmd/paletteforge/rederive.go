package main

import (
	"PaletteForge/internal/palette"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRederiveCmd(a *app) *cobra.Command {
	var writePath string

	cmd := &cobra.Command{
		Use:   "rederive <palette.png>",
		Short: "Rebuild a palette record from its strip image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := palette.RederiveFile(args[0])
			if err != nil {
				return err
			}
			if writePath != "" {
				if err := palette.SaveRecord(writePath, rec); err != nil {
					return err
				}
				a.logger.Info("Record written", zap.String("path", writePath), zap.Int("colors", rec.Len()))
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}

	cmd.Flags().StringVarP(&writePath, "write", "w", "", "also write the record to this path")
	return cmd
}
