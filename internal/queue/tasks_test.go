package queue

import (
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dunamismax/logocrunch/internal/domain"
)

func TestFinishLogoTaskRoundTrip(t *testing.T) {
	payload := FinishLogoPayload{
		BatchID:     "0192d3a4-batch",
		Job:         domain.LogoJob{ID: 42, URL: "https://example.com/42.png"},
		SourceType:  domain.SourceTypeObjectStore,
		BatchSize:   3,
		RequestedAt: time.Now().UTC(),
	}

	task, err := NewFinishLogoTask(payload)
	if err != nil {
		t.Fatalf("NewFinishLogoTask returned error: %v", err)
	}
	if task.Type() != TypeFinishLogo {
		t.Fatalf("expected task type %q, got %q", TypeFinishLogo, task.Type())
	}

	parsed, err := ParseFinishLogoPayload(task)
	if err != nil {
		t.Fatalf("ParseFinishLogoPayload returned error: %v", err)
	}
	if parsed.Job != payload.Job {
		t.Fatalf("expected job %+v, got %+v", payload.Job, parsed.Job)
	}
	if parsed.TaskID() != "0192d3a4-batch:42" {
		t.Fatalf("unexpected task id %q", parsed.TaskID())
	}
}

func TestFinishLogoPayloadValidation(t *testing.T) {
	if _, err := NewFinishLogoTask(FinishLogoPayload{SourceType: domain.SourceTypeLocalFile}); err == nil {
		t.Fatal("expected missing batch id error")
	}
	if _, err := NewFinishLogoTask(FinishLogoPayload{BatchID: "b", SourceType: "http"}); err == nil {
		t.Fatal("expected source type error")
	}

	task := asynq.NewTask(TypeFinishLogo, []byte(`{"batch_id":"b","job":{"id":1},"source_type":"ftp"}`))
	if _, err := ParseFinishLogoPayload(task); err == nil {
		t.Fatal("expected parse to reject unknown source type")
	}
	if _, err := ParseFinishLogoPayload(asynq.NewTask(TypeFinishLogo, []byte("{"))); err == nil {
		t.Fatal("expected malformed payload error")
	}
}
