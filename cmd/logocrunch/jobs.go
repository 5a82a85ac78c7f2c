package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dunamismax/logocrunch/internal/joblist"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var lowResDir string

	cmd := &cobra.Command{
		Use:   "jobs <output.json>",
		Short: "Write a job list for the logos found in the low-res directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if lowResDir == "" {
				lowResDir = cfg.Paths.LowResDir
			}

			batch, err := joblist.ScanDir(lowResDir)
			if err != nil {
				return err
			}
			if err := joblist.Save(args[0], batch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d jobs to %s\n", len(batch), args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&lowResDir, "low", "", "Directory of low-resolution rasters")
	return cmd
}
