package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dunamismax/logocrunch/internal/domain"
)

func testClient(attempts int) *Client {
	return NewClient(Config{
		SigningSecret:  "test-secret",
		Timeout:        2 * time.Second,
		MaxAttempts:    attempts,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
	})
}

func TestSendLogoResultSignsPayload(t *testing.T) {
	var (
		gotSig  string
		gotTS   string
		gotEvt  string
		gotBody []byte
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(HeaderSignature)
		gotTS = r.Header.Get(HeaderTimestamp)
		gotEvt = r.Header.Get(HeaderEvent)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := domain.LogoResult{
		JobID:          42,
		BatchID:        "batch-1",
		Status:         domain.JobStatusSucceeded,
		Representation: domain.RepresentationVector,
	}
	if err := testClient(1).SendLogoResult(context.Background(), srv.URL, result); err != nil {
		t.Fatalf("send returned error: %v", err)
	}

	if gotEvt != EventLogoFinished {
		t.Fatalf("expected event header %s, got %q", EventLogoFinished, gotEvt)
	}
	if gotTS == "" {
		t.Fatal("expected timestamp header")
	}
	if !Verify("test-secret", gotTS, gotBody, gotSig) {
		t.Fatalf("signature %q does not verify", gotSig)
	}
	if Verify("other-secret", gotTS, gotBody, gotSig) {
		t.Fatal("signature verified with the wrong secret")
	}

	var decoded domain.LogoResult
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.JobID != 42 || decoded.Representation != domain.RepresentationVector {
		t.Fatalf("unexpected body: %+v", decoded)
	}
}

func TestSendLogoResultFailedEvent(t *testing.T) {
	var gotEvt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEvt = r.Header.Get(HeaderEvent)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	err := testClient(1).SendLogoResult(context.Background(), srv.URL, domain.LogoResult{JobID: 1, Status: domain.JobStatusFailed})
	if err != nil {
		t.Fatalf("send returned error: %v", err)
	}
	if gotEvt != EventLogoFailed {
		t.Fatalf("expected %s, got %q", EventLogoFailed, gotEvt)
	}
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := testClient(3).SendBatchCompleted(context.Background(), srv.URL, BatchSummary{BatchID: "b", Total: 2, Succeeded: 2})
	if err != nil {
		t.Fatalf("send returned error: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := testClient(4).Send(context.Background(), srv.URL, EventBatchCompleted, BatchSummary{})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestSendEmptyEndpointIsNoop(t *testing.T) {
	if err := testClient(1).Send(context.Background(), "  ", EventLogoFinished, nil); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}
