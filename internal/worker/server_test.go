package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/dunamismax/logocrunch/internal/domain"
	"github.com/dunamismax/logocrunch/internal/palette"
	"github.com/dunamismax/logocrunch/internal/pipeline"
	"github.com/dunamismax/logocrunch/internal/progress"
	"github.com/dunamismax/logocrunch/internal/queue"
	"github.com/dunamismax/logocrunch/internal/raster"
	"github.com/dunamismax/logocrunch/internal/store"
	"github.com/dunamismax/logocrunch/internal/webhook"
)

type scriptedProcessor struct {
	failures map[uint32]error
}

func (p scriptedProcessor) Process(_ context.Context, job domain.LogoJob) (pipeline.Outcome, error) {
	out := pipeline.Outcome{JobID: job.ID}
	if err := p.failures[job.ID]; err != nil {
		return out, &pipeline.JobError{ID: job.ID, Stage: pipeline.StageLoadLowRes, Err: err}
	}
	out.Representation = domain.RepresentationVector
	if job.ID%2 == 0 {
		out.Representation = domain.RepresentationRaster
	}
	out.Dominant = palette.Result{Color: palette.Color{R: 220}, Score: 0.8, Clusters: 4}
	out.Background = palette.Color{R: 220}
	out.Output = pipeline.Output{Location: fmt.Sprintf("result/%d.svg", job.ID), Bytes: 6}
	return out, nil
}

type recordingSender struct {
	mu      sync.Mutex
	logos   []domain.LogoResult
	batches []webhook.BatchSummary
}

func (r *recordingSender) SendLogoResult(_ context.Context, _ string, result domain.LogoResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logos = append(r.logos, result)
	return nil
}

func (r *recordingSender) SendBatchCompleted(_ context.Context, _ string, summary webhook.BatchSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, summary)
	return nil
}

func newTestServer(t *testing.T, processor pipeline.JobProcessor) (*Server, *store.MemoryResultStore, *recordingSender, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	results := store.NewMemoryResultStore()
	sender := &recordingSender{}
	s := &Server{
		logger:         log.New(io.Discard, "", 0),
		sem:            make(chan struct{}, 2),
		processors:     map[string]pipeline.JobProcessor{domain.SourceTypeLocalFile: processor},
		webhookClient:  sender,
		webhookURL:     "http://hooks.invalid/logos",
		results:        results,
		progressClient: client,
		progressPrefix: "test:progress",
		progressTTL:    time.Hour,
		metrics:        newMetrics(),
		tracer:         otel.Tracer("test"),
	}
	return s, results, sender, client
}

func finishTask(t *testing.T, batchID string, id uint32, size int) *asynq.Task {
	t.Helper()
	task, err := queue.NewFinishLogoTask(queue.FinishLogoPayload{
		BatchID:     batchID,
		Job:         domain.LogoJob{ID: id, URL: "none"},
		SourceType:  domain.SourceTypeLocalFile,
		BatchSize:   size,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	return task
}

func TestHandleFinishLogoCompletesBatch(t *testing.T) {
	processor := scriptedProcessor{failures: map[uint32]error{3: raster.ErrNotFound}}
	s, results, sender, client := newTestServer(t, processor)
	ctx := context.Background()

	for _, id := range []uint32{1, 2, 3} {
		err := s.handleFinishLogo(ctx, finishTask(t, "batch-1", id, 3))
		if id == 3 {
			if !errors.Is(err, asynq.SkipRetry) || !errors.Is(err, raster.ErrNotFound) {
				t.Fatalf("expected permanent failure for logo 3, got %v", err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("logo %d: %v", id, err)
		}
	}

	stored, ok, err := results.Get(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("result for logo 1 missing: ok=%t err=%v", ok, err)
	}
	if stored.Status != domain.JobStatusSucceeded || stored.Representation != domain.RepresentationVector {
		t.Fatalf("unexpected result: %+v", stored)
	}
	if stored.Dominant != "#dc0000" || stored.Background != "rgb(220,0,0)" || stored.Bytes != 6 {
		t.Fatalf("unexpected result details: %+v", stored)
	}

	failed, _, _ := results.Get(ctx, 3)
	if failed.Status != domain.JobStatusFailed || failed.Error == "" {
		t.Fatalf("expected failed record for logo 3, got %+v", failed)
	}

	if len(sender.logos) != 3 {
		t.Fatalf("expected 3 logo webhooks, got %d", len(sender.logos))
	}
	if len(sender.batches) != 1 {
		t.Fatalf("expected exactly one batch.completed, got %d", len(sender.batches))
	}
	summary := sender.batches[0]
	if summary.Total != 3 || summary.Succeeded != 2 || summary.Failed != 1 || summary.Vector != 1 || summary.Raster != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.FirstError == "" {
		t.Fatal("expected first error in summary")
	}

	counts, err := progress.ReadCounts(ctx, client, progress.Key("test:progress", "batch-1"))
	if err != nil {
		t.Fatalf("read progress: %v", err)
	}
	if counts.Completed != 3 || counts.Failed != 1 || !counts.Done() {
		t.Fatalf("unexpected progress: %+v", counts)
	}
}

func TestHandleFinishLogoRejectsUnknownSource(t *testing.T) {
	s, _, _, _ := newTestServer(t, scriptedProcessor{})
	task, err := queue.NewFinishLogoTask(queue.FinishLogoPayload{
		BatchID:    "batch-2",
		Job:        domain.LogoJob{ID: 1},
		SourceType: domain.SourceTypeObjectStore,
	})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}

	err = s.handleFinishLogo(context.Background(), task)
	if !errors.Is(err, pipeline.ErrUnsupportedSourceType) || !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected unsupported source error, got %v", err)
	}
}

func TestHandleFinishLogoRejectsMalformedPayload(t *testing.T) {
	s, _, _, _ := newTestServer(t, scriptedProcessor{})
	err := s.handleFinishLogo(context.Background(), asynq.NewTask(queue.TypeFinishLogo, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestPermanentErrors(t *testing.T) {
	wrapped := &pipeline.JobError{ID: 1, Stage: pipeline.StageLoadHighRes, Err: fmt.Errorf("decode: %w", raster.ErrDecode)}
	if !permanent(wrapped) {
		t.Fatal("decode failure should be permanent")
	}
	if permanent(&pipeline.JobError{ID: 1, Stage: pipeline.StageWrite, Err: pipeline.ErrWrite}) {
		t.Fatal("write failure should be retried")
	}
	if !finalAttempt(context.Background()) {
		t.Fatal("plain context should count as the final attempt")
	}
}
