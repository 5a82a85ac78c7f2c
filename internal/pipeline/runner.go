package pipeline

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dunamismax/logocrunch/internal/domain"
)

const DefaultConcurrency = 16

// JobProcessor is satisfied by *Processor.
type JobProcessor interface {
	Process(ctx context.Context, job domain.LogoJob) (Outcome, error)
}

// Observer is notified from worker goroutines and must be safe for
// concurrent use.
type Observer interface {
	JobFinished(outcome Outcome, err error, completed int64, total int)
	BatchFinished(report Report)
}

type Entry struct {
	Outcome
	Err error
}

// Report lists every job of a batch in submission order.
type Report struct {
	Entries   []Entry
	Succeeded int
	Failed    int
	Elapsed   time.Duration
}

type Runner struct {
	processor   JobProcessor
	concurrency int
	logger      *log.Logger
	observers   []Observer
	tracer      trace.Tracer
	completed   atomic.Int64
}

func NewRunner(processor JobProcessor, concurrency int, logger *log.Logger, observers ...Observer) *Runner {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Runner{
		processor:   processor,
		concurrency: concurrency,
		logger:      logger,
		observers:   observers,
		tracer:      otel.Tracer("logocrunch/pipeline"),
	}
}

// Completed is the number of jobs finished by this runner, successful or
// not, across all batches.
func (r *Runner) Completed() int64 {
	return r.completed.Load()
}

// RunBatch processes every job with at most the configured number running
// at once. A failing job never cancels its siblings; the first error to
// occur is returned once the whole batch is done.
func (r *Runner) RunBatch(ctx context.Context, batch domain.JobBatch) (Report, error) {
	if err := batch.Validate(); err != nil {
		return Report{}, err
	}

	ctx, span := r.tracer.Start(ctx, "pipeline.run_batch")
	span.SetAttributes(
		attribute.Int("batch.size", len(batch)),
		attribute.Int("batch.concurrency", r.concurrency),
	)
	defer span.End()

	startedAt := time.Now()
	entries := make([]Entry, len(batch))
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, job := range batch {
		g.Go(func() error {
			out, err := r.processor.Process(ctx, job)
			if err != nil {
				out.JobID = job.ID
			}
			entries[i] = Entry{Outcome: out, Err: err}

			r.completed.Add(1)
			n := done.Add(1)
			if err != nil {
				r.logger.Printf("failed job_id=%d completed=%d/%d err=%v", job.ID, n, len(batch), err)
			}
			for _, o := range r.observers {
				o.JobFinished(out, err, n, len(batch))
			}
			return err
		})
	}
	firstErr := g.Wait()

	report := Report{Entries: entries, Elapsed: time.Since(startedAt)}
	for _, e := range entries {
		if e.Err != nil {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}
	for _, o := range r.observers {
		o.BatchFinished(report)
	}

	r.logger.Printf(
		"batch finished jobs=%d succeeded=%d failed=%d elapsed=%s",
		len(batch), report.Succeeded, report.Failed, report.Elapsed.Round(time.Millisecond),
	)
	span.SetAttributes(attribute.Int("batch.failed", report.Failed))
	if firstErr != nil {
		span.RecordError(firstErr)
		span.SetStatus(codes.Error, "batch had failures")
		return report, firstErr
	}
	span.SetStatus(codes.Ok, "batch finished")
	return report, nil
}

// FirstJobError extracts the *JobError from an error returned by RunBatch.
func FirstJobError(err error) (*JobError, bool) {
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr, true
	}
	return nil, false
}
