package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dunamismax/logocrunch/internal/id"
	"github.com/dunamismax/logocrunch/internal/queue"
	"github.com/dunamismax/logocrunch/internal/storage"
)

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue every logo of a batch for the worker fleet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			flags.apply(&cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			var storageClient *storage.Client
			if cfg.Paths.JobFile == "" {
				storageClient, err = openStorage(cmd.Context(), cfg)
				if err != nil {
					return err
				}
			}
			batch, err := loadBatch(cmd.Context(), cfg, storageClient)
			if err != nil {
				return err
			}

			batchID := flags.batchID
			if batchID == "" {
				batchID = id.New()
			}

			client := queue.NewClient(cfg.Queue.RedisClientOpt(), cfg.Queue.Name, cfg.Queue.MaxRetry)
			defer client.Close()

			queued, err := client.EnqueueBatch(cmd.Context(), batchID, cfg.Pipeline.SourceType, cfg.Webhook.URL, batch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "batch %s: queued %d of %d logos on %s\n", batchID, queued, len(batch), cfg.Queue.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.jobFile, "jobs", "", "JSON job list (array of {id, url})")
	cmd.Flags().StringVar(&flags.lowResDir, "low", "", "Directory scanned for logo ids when --jobs is not set")
	cmd.Flags().StringVar(&flags.sourceType, "source", "", "Source type the workers read from: local_file or object_store")
	cmd.Flags().StringVar(&flags.batchID, "batch-id", "", "Batch id (default: generated)")
	cmd.Flags().StringVar(&flags.webhookURL, "webhook", "", "Webhook each worker notifies per logo")
	return cmd
}
