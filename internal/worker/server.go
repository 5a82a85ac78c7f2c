// Package worker runs the logo pipeline for tasks pulled from the queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dunamismax/logocrunch/internal/config"
	"github.com/dunamismax/logocrunch/internal/domain"
	"github.com/dunamismax/logocrunch/internal/palette"
	"github.com/dunamismax/logocrunch/internal/pipeline"
	"github.com/dunamismax/logocrunch/internal/progress"
	"github.com/dunamismax/logocrunch/internal/queue"
	"github.com/dunamismax/logocrunch/internal/raster"
	"github.com/dunamismax/logocrunch/internal/storage"
	"github.com/dunamismax/logocrunch/internal/store"
	"github.com/dunamismax/logocrunch/internal/webhook"
)

type Server struct {
	logger         *log.Logger
	server         *asynq.Server
	sem            chan struct{}
	processors     map[string]pipeline.JobProcessor
	webhookClient  webhookSender
	webhookURL     string
	results        store.ResultStore
	progressClient redis.UniversalClient
	progressPrefix string
	progressTTL    time.Duration
	metrics        *metrics
	tracer         trace.Tracer
}

type webhookSender interface {
	SendLogoResult(ctx context.Context, endpoint string, result domain.LogoResult) error
	SendBatchCompleted(ctx context.Context, endpoint string, summary webhook.BatchSummary) error
}

// NewServer wires the local-file processor and, when storageClient is set,
// the object-store processor. progressClient may be nil to skip batch
// progress and batch.completed delivery.
func NewServer(
	logger *log.Logger,
	cfg config.Config,
	storageClient *storage.Client,
	webhookClient *webhook.Client,
	results store.ResultStore,
	progressClient redis.UniversalClient,
) (*Server, error) {
	if results == nil {
		return nil, fmt.Errorf("result store is required")
	}
	opts := cfg.PipelineOptions()

	localProcessor, err := pipeline.NewLocalProcessor(cfg.Paths.LowResDir, cfg.Paths.HighResDir, cfg.Paths.ResultDir, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize local processor: %w", err)
	}
	processors := map[string]pipeline.JobProcessor{
		domain.SourceTypeLocalFile: localProcessor,
	}

	if storageClient != nil {
		objectProcessor, err := pipeline.NewObjectStoreProcessor(
			pipeline.ObjectStoreFetcher{
				Storage:       storageClient,
				LowResPrefix:  cfg.Storage.LowResPrefix,
				HighResPrefix: cfg.Storage.HighResPrefix,
			},
			pipeline.ObjectStoreEmitter{Storage: storageClient, OutputPrefix: cfg.Storage.ResultPrefix},
			opts,
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("initialize object-store processor: %w", err)
		}
		processors[domain.SourceTypeObjectStore] = objectProcessor
	}

	s := &Server{
		logger: logger,
		server: asynq.NewServer(
			cfg.Queue.RedisClientOpt(),
			asynq.Config{
				Concurrency: cfg.Worker.Concurrency,
				Queues: map[string]int{
					cfg.Queue.Name: 1,
				},
				LogLevel: asynq.InfoLevel,
				ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
					retried, _ := asynq.GetRetryCount(ctx)
					maxRetry, _ := asynq.GetMaxRetry(ctx)
					logger.Printf("task failed type=%s retry=%d/%d err=%v", task.Type(), retried, maxRetry, err)
				}),
			},
		),
		sem:            make(chan struct{}, max(1, cfg.Worker.MaxActiveJobs)),
		processors:     processors,
		webhookURL:     cfg.Webhook.URL,
		results:        results,
		progressClient: progressClient,
		progressPrefix: cfg.Progress.RedisKeyPrefix,
		progressTTL:    cfg.Progress.TTL(),
		metrics:        newMetrics(),
		tracer:         otel.Tracer("logocrunch/worker"),
	}
	if webhookClient != nil {
		s.webhookClient = webhookClient
	}
	return s, nil
}

func (s *Server) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeFinishLogo, s.handleFinishLogo)
	return s.server.Run(mux)
}

func (s *Server) Shutdown() {
	s.server.Shutdown()
}

func (s *Server) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}

func (s *Server) handleFinishLogo(ctx context.Context, task *asynq.Task) error {
	startedAt := time.Now()
	status := domain.JobStatusFailed

	payload, err := queue.ParseFinishLogoPayload(task)
	if err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}

	ctx, span := s.tracer.Start(ctx, "worker.finish_logo", trace.WithSpanKind(trace.SpanKindConsumer))
	span.SetAttributes(
		attribute.String("batch.id", payload.BatchID),
		attribute.Int64("logo.id", int64(payload.Job.ID)),
		attribute.String("logo.source_type", payload.SourceType),
	)
	defer span.End()
	defer func() {
		s.metrics.jobDuration.WithLabelValues(status).Observe(time.Since(startedAt).Seconds())
	}()

	processor, ok := s.processors[payload.SourceType]
	if !ok {
		return fmt.Errorf("%w: %s: %w", pipeline.ErrUnsupportedSourceType, payload.SourceType, asynq.SkipRetry)
	}

	s.sem <- struct{}{}
	s.metrics.activeJobs.Inc()
	defer func() {
		<-s.sem
		s.metrics.activeJobs.Dec()
	}()

	s.logger.Printf("Working... batch_id=%s job_id=%d source_type=%s", payload.BatchID, payload.Job.ID, payload.SourceType)
	s.upsert(ctx, domain.LogoResult{JobID: payload.Job.ID, BatchID: payload.BatchID, Status: domain.JobStatusProcessing})

	out, err := processor.Process(ctx, payload.Job)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline failed")
		if !permanent(err) && !finalAttempt(ctx) {
			s.upsert(ctx, domain.LogoResult{JobID: payload.Job.ID, BatchID: payload.BatchID, Status: domain.JobStatusQueued, Error: err.Error()})
			return fmt.Errorf("run pipeline: %w", err)
		}
		s.finish(ctx, payload, out, err)
		return fmt.Errorf("run pipeline: %w: %w", err, asynq.SkipRetry)
	}

	status = domain.JobStatusSucceeded
	s.finish(ctx, payload, out, nil)
	span.SetAttributes(attribute.String("logo.representation", out.Representation))
	span.SetStatus(codes.Ok, "finished")
	return nil
}

// finish records the final outcome of a logo exactly once: result store,
// metrics, logo webhook, batch progress and, for the batch's last logo,
// batch.completed.
func (s *Server) finish(ctx context.Context, payload queue.FinishLogoPayload, out pipeline.Outcome, err error) {
	result := out.Result(payload.BatchID, err)
	result.JobID = payload.Job.ID
	s.upsert(ctx, result)

	representation := result.Representation
	if representation == "" {
		representation = "none"
	}
	s.metrics.jobsTotal.WithLabelValues(representation, result.Status).Inc()
	if err == nil {
		s.metrics.dominantScore.Observe(result.Score)
		s.metrics.outputBytesTotal.WithLabelValues(representation).Add(float64(result.Bytes))
		s.logger.Printf("Finished batch_id=%s job_id=%d representation=%s output=%s", payload.BatchID, payload.Job.ID, representation, result.OutputPath)
	} else {
		s.logger.Printf("Failed batch_id=%s job_id=%d err=%v", payload.BatchID, payload.Job.ID, err)
	}

	endpoint := s.endpoint(payload)
	if endpoint != "" && s.webhookClient != nil {
		if sendErr := s.webhookClient.SendLogoResult(ctx, endpoint, result); sendErr != nil {
			s.metrics.webhookFailures.WithLabelValues(eventFor(result)).Inc()
			s.logger.Printf("webhook delivery failed job_id=%d err=%v", payload.Job.ID, sendErr)
		}
	}

	s.trackBatch(ctx, payload, err != nil, endpoint)
}

func (s *Server) trackBatch(ctx context.Context, payload queue.FinishLogoPayload, failed bool, endpoint string) {
	if s.progressClient == nil || payload.BatchSize < 1 {
		return
	}
	tracker, err := progress.NewRedisObserver(s.progressClient, s.progressPrefix, payload.BatchID, s.progressTTL, s.logger)
	if err != nil {
		s.logger.Printf("progress tracker unavailable batch_id=%s err=%v", payload.BatchID, err)
		return
	}
	counts, err := tracker.Record(ctx, failed, payload.BatchSize)
	if err != nil {
		s.logger.Printf("progress update failed batch_id=%s err=%v", payload.BatchID, err)
		return
	}
	if counts.Completed < counts.Total {
		return
	}
	claimed, err := tracker.ClaimFinish(ctx)
	if err != nil || !claimed {
		return
	}

	s.metrics.batchesCompleted.Inc()
	summary, err := s.summarize(ctx, payload, counts)
	if err != nil {
		s.logger.Printf("batch summary failed batch_id=%s err=%v", payload.BatchID, err)
		return
	}
	s.logger.Printf(
		"Batch completed batch_id=%s total=%d succeeded=%d failed=%d vector=%d raster=%d",
		summary.BatchID, summary.Total, summary.Succeeded, summary.Failed, summary.Vector, summary.Raster,
	)
	if endpoint == "" || s.webhookClient == nil {
		return
	}
	if err := s.webhookClient.SendBatchCompleted(ctx, endpoint, summary); err != nil {
		s.metrics.webhookFailures.WithLabelValues(webhook.EventBatchCompleted).Inc()
		s.logger.Printf("webhook delivery failed batch_id=%s event=%s err=%v", payload.BatchID, webhook.EventBatchCompleted, err)
	}
}

func (s *Server) summarize(ctx context.Context, payload queue.FinishLogoPayload, counts progress.Counts) (webhook.BatchSummary, error) {
	summary := webhook.BatchSummary{
		BatchID:        payload.BatchID,
		Total:          int(counts.Total),
		Failed:         int(counts.Failed),
		Succeeded:      int(counts.Completed - counts.Failed),
		ElapsedSeconds: time.Since(payload.RequestedAt).Seconds(),
	}
	results, err := s.results.ListBatch(ctx, payload.BatchID)
	if err != nil {
		return summary, err
	}
	for _, r := range results {
		switch {
		case r.Status == domain.JobStatusFailed && summary.FirstError == "":
			summary.FirstError = r.Error
		case r.Representation == domain.RepresentationVector:
			summary.Vector++
		case r.Representation == domain.RepresentationRaster:
			summary.Raster++
		}
	}
	return summary, nil
}

func (s *Server) upsert(ctx context.Context, result domain.LogoResult) {
	if err := s.results.Upsert(ctx, result); err != nil {
		s.logger.Printf("result store update failed job_id=%d status=%s err=%v", result.JobID, result.Status, err)
	}
}

func (s *Server) endpoint(payload queue.FinishLogoPayload) string {
	if payload.WebhookURL != "" {
		return payload.WebhookURL
	}
	return s.webhookURL
}

func eventFor(result domain.LogoResult) string {
	if result.Status == domain.JobStatusFailed {
		return webhook.EventLogoFailed
	}
	return webhook.EventLogoFinished
}

// permanent reports failures that a retry cannot fix: the inputs are
// missing, unreadable or empty.
func permanent(err error) bool {
	return errors.Is(err, raster.ErrNotFound) ||
		errors.Is(err, raster.ErrDecode) ||
		errors.Is(err, palette.ErrEmptyImage) ||
		errors.Is(err, palette.ErrNoClusters)
}

// finalAttempt is true outside asynq (no retry metadata) or when the retry
// budget is spent.
func finalAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	return !ok || retried >= maxRetry
}
