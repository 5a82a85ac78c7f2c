package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dunamismax/logocrunch/internal/compose"
	"github.com/dunamismax/logocrunch/internal/config"
	"github.com/dunamismax/logocrunch/internal/domain"
	"github.com/dunamismax/logocrunch/internal/id"
	"github.com/dunamismax/logocrunch/internal/joblist"
	"github.com/dunamismax/logocrunch/internal/pipeline"
	"github.com/dunamismax/logocrunch/internal/progress"
	"github.com/dunamismax/logocrunch/internal/storage"
	"github.com/dunamismax/logocrunch/internal/telemetry"
	"github.com/dunamismax/logocrunch/internal/webhook"
)

type runFlags struct {
	jobFile       string
	lowResDir     string
	highResDir    string
	resultDir     string
	sourceType    string
	concurrency   int
	batchID       string
	webhookURL    string
	redisProgress bool
	metricsFile   string
	noReport      bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Finish every logo of a batch locally",
		Long: `Finish every logo of a batch in this process.

The batch comes from --jobs (a JSON job list), or else from the logo ids found
in the low-res directory (or low-res bucket prefix for object_store sources).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			flags.apply(&cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBatch(runCtx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, flags)
		},
	}

	cmd.Flags().StringVar(&flags.jobFile, "jobs", "", "JSON job list (array of {id, url})")
	cmd.Flags().StringVar(&flags.lowResDir, "low", "", "Directory of low-resolution rasters")
	cmd.Flags().StringVar(&flags.highResDir, "high", "", "Directory of upscaled rasters")
	cmd.Flags().StringVar(&flags.resultDir, "out", "", "Directory for finished documents")
	cmd.Flags().StringVar(&flags.sourceType, "source", "", "Source type: local_file or object_store")
	cmd.Flags().IntVarP(&flags.concurrency, "concurrency", "j", 0, "Logos processed at once")
	cmd.Flags().StringVar(&flags.batchID, "batch-id", "", "Batch id for progress keys and webhooks (default: generated)")
	cmd.Flags().StringVar(&flags.webhookURL, "webhook", "", "POST a signed batch.completed summary here when done")
	cmd.Flags().BoolVar(&flags.redisProgress, "redis-progress", false, "Mirror progress into Redis for other processes")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile when done")
	cmd.Flags().BoolVar(&flags.noReport, "no-report", false, "Skip the per-logo report table")
	return cmd
}

func (f runFlags) apply(cfg *config.Config) {
	if f.jobFile != "" {
		cfg.Paths.JobFile = f.jobFile
	}
	if f.lowResDir != "" {
		cfg.Paths.LowResDir = f.lowResDir
	}
	if f.highResDir != "" {
		cfg.Paths.HighResDir = f.highResDir
	}
	if f.resultDir != "" {
		cfg.Paths.ResultDir = f.resultDir
	}
	if f.sourceType != "" {
		cfg.Pipeline.SourceType = strings.ToLower(strings.TrimSpace(f.sourceType))
	}
	if f.concurrency > 0 {
		cfg.Pipeline.Concurrency = f.concurrency
	}
	if f.webhookURL != "" {
		cfg.Webhook.URL = f.webhookURL
	}
}

func runBatch(ctx context.Context, stdout, stderr io.Writer, cfg config.Config, flags runFlags) error {
	logger := newLogger(stderr)

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:  "logocrunch",
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	if err := compose.Startup(); err != nil {
		return fmt.Errorf("start image encoder: %w", err)
	}
	defer compose.Shutdown()

	storageClient, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	batch, err := loadBatch(ctx, cfg, storageClient)
	if err != nil {
		return err
	}
	processor, err := newProcessor(cfg, storageClient, logger)
	if err != nil {
		return err
	}

	batchID := flags.batchID
	if batchID == "" {
		batchID = id.New()
	}

	registry := prometheus.NewRegistry()
	observers := []pipeline.Observer{
		progress.NewLogObserver(logger, cfg.Progress.LogEvery),
		pipeline.NewMetricsObserver(registry),
	}
	if bar := progress.NewBarObserver(stderr, len(batch)); bar != nil {
		observers = append(observers, bar)
	}
	if flags.redisProgress {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Queue.RedisAddr,
			Password: cfg.Queue.RedisPassword,
			DB:       cfg.Queue.RedisDB,
		})
		defer client.Close()
		obs, err := progress.NewRedisObserver(client, cfg.Progress.RedisKeyPrefix, batchID, cfg.Progress.TTL(), logger)
		if err != nil {
			return err
		}
		observers = append(observers, obs)
	}

	logger.Printf("batch started batch_id=%s logos=%d concurrency=%d source_type=%s", batchID, len(batch), cfg.Pipeline.Concurrency, cfg.Pipeline.SourceType)
	runner := pipeline.NewRunner(processor, cfg.Pipeline.Concurrency, logger, observers...)
	report, runErr := runner.RunBatch(ctx, batch)

	if !flags.noReport {
		fmt.Fprintln(stdout, renderReport(report))
	}
	if flags.metricsFile != "" {
		if err := prometheus.WriteToTextfile(flags.metricsFile, registry); err != nil {
			logger.Printf("metrics textfile write failed path=%s err=%v", flags.metricsFile, err)
		}
	}
	if cfg.Webhook.URL != "" {
		client := webhook.NewClient(webhook.Config{
			SigningSecret: cfg.Webhook.Secret,
			Timeout:       cfg.Webhook.Timeout(),
			MaxAttempts:   3,
		})
		if err := client.SendBatchCompleted(ctx, cfg.Webhook.URL, summarize(batchID, report, runErr)); err != nil {
			logger.Printf("webhook delivery failed batch_id=%s err=%v", batchID, err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("%d of %d logos failed, first: %w", report.Failed, len(batch), runErr)
	}
	return nil
}

func openStorage(ctx context.Context, cfg config.Config) (*storage.Client, error) {
	if cfg.Pipeline.SourceType != domain.SourceTypeObjectStore {
		return nil, nil
	}
	client, err := storage.NewClient(storage.Config{
		Endpoint: cfg.Storage.Endpoint,
		Access:   cfg.Storage.AccessKey,
		Secret:   cfg.Storage.SecretKey,
		Bucket:   cfg.Storage.Bucket,
		UseSSL:   cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// loadBatch prefers an explicit job list and otherwise discovers logo ids
// from the low-res source.
func loadBatch(ctx context.Context, cfg config.Config, storageClient *storage.Client) (domain.JobBatch, error) {
	if cfg.Paths.JobFile != "" {
		return joblist.Load(cfg.Paths.JobFile)
	}
	if storageClient != nil {
		batch, err := storageClient.ListJobs(ctx, cfg.Storage.LowResPrefix)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			return nil, fmt.Errorf("%w under %s/%s", joblist.ErrNoJobs, storageClient.Bucket(), cfg.Storage.LowResPrefix)
		}
		return batch, nil
	}
	return joblist.ScanDir(cfg.Paths.LowResDir)
}

func newProcessor(cfg config.Config, storageClient *storage.Client, logger *log.Logger) (*pipeline.Processor, error) {
	opts := cfg.PipelineOptions()
	if storageClient == nil {
		return pipeline.NewLocalProcessor(cfg.Paths.LowResDir, cfg.Paths.HighResDir, cfg.Paths.ResultDir, opts, logger)
	}
	return pipeline.NewObjectStoreProcessor(
		pipeline.ObjectStoreFetcher{
			Storage:       storageClient,
			LowResPrefix:  cfg.Storage.LowResPrefix,
			HighResPrefix: cfg.Storage.HighResPrefix,
		},
		pipeline.ObjectStoreEmitter{Storage: storageClient, OutputPrefix: cfg.Storage.ResultPrefix},
		opts,
		logger,
	)
}
