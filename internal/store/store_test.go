package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/dunamismax/logocrunch/internal/domain"
)

func exerciseResultStore(t *testing.T, s ResultStore) {
	t.Helper()
	ctx := context.Background()

	first := domain.LogoResult{
		JobID:          7,
		BatchID:        "batch-a",
		Status:         domain.JobStatusSucceeded,
		Representation: domain.RepresentationVector,
		Dominant:       "#dc0000",
		Background:     "rgb(220,0,0)",
		Score:          0.84,
		Clusters:       4,
		OutputPath:     "result/7.svg",
		Bytes:          512,
		UpdatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := s.Upsert(ctx, first); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, domain.LogoResult{JobID: 3, BatchID: "batch-a", Status: domain.JobStatusFailed, Error: "logo 3: load_low_res stage: not found"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, domain.LogoResult{JobID: 9, BatchID: "batch-b", Status: domain.JobStatusSucceeded}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, ok, err := s.Get(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("get: ok=%t err=%v", ok, err)
	}
	if got.Dominant != first.Dominant || got.Score != first.Score || !got.UpdatedAt.Equal(first.UpdatedAt) {
		t.Fatalf("get returned %+v, want %+v", got, first)
	}

	if _, ok, err := s.Get(ctx, 1000); err != nil || ok {
		t.Fatalf("get missing: ok=%t err=%v", ok, err)
	}

	batch, err := s.ListBatch(ctx, "batch-a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(batch) != 2 || batch[0].JobID != 3 || batch[1].JobID != 7 {
		t.Fatalf("unexpected batch listing: %+v", batch)
	}
	if batch[0].UpdatedAt.IsZero() {
		t.Fatal("expected updated_at to be stamped")
	}

	first.BatchID = "batch-b"
	first.Representation = domain.RepresentationRaster
	if err := s.Upsert(ctx, first); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	got, _, _ = s.Get(ctx, 7)
	if got.Representation != domain.RepresentationRaster || got.BatchID != "batch-b" {
		t.Fatalf("upsert did not replace record: %+v", got)
	}

	err = s.Upsert(ctx, domain.LogoResult{JobID: 1, Status: "done"})
	if !errors.Is(err, ErrInvalidResult) {
		t.Fatalf("expected ErrInvalidResult, got %v", err)
	}
}

func TestMemoryResultStore(t *testing.T) {
	exerciseResultStore(t, NewMemoryResultStore())
}

func TestPostgresResultStore(t *testing.T) {
	dsn := os.Getenv("LOGOCRUNCH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LOGOCRUNCH_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := NewPostgresResultStore(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM logo_results WHERE batch_id IN ('batch-a', 'batch-b')`); err != nil {
		t.Fatalf("reset: %v", err)
	}
	exerciseResultStore(t, s)
}

func TestOpenWithoutDSNUsesMemory(t *testing.T) {
	s, closeFn, err := Open(context.Background(), " ")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closeFn()
	if _, ok := s.(*MemoryResultStore); !ok {
		t.Fatalf("expected memory store, got %T", s)
	}
}
