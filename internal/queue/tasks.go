package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dunamismax/logocrunch/internal/domain"
)

const TypeFinishLogo = "logo:finish"

// FinishLogoPayload carries one logo of a batch to a worker.
type FinishLogoPayload struct {
	BatchID     string         `json:"batch_id"`
	Job         domain.LogoJob `json:"job"`
	SourceType  string         `json:"source_type"`
	WebhookURL  string         `json:"webhook_url,omitempty"`
	BatchSize   int            `json:"batch_size"`
	RequestedAt time.Time      `json:"requested_at"`
}

func (p FinishLogoPayload) Validate() error {
	if p.BatchID == "" {
		return errors.New("batch_id is required")
	}
	switch p.SourceType {
	case domain.SourceTypeLocalFile, domain.SourceTypeObjectStore:
	default:
		return fmt.Errorf("unsupported source_type: %q", p.SourceType)
	}
	return nil
}

// TaskID is unique per batch and logo so a resubmitted batch does not queue
// the same logo twice.
func (p FinishLogoPayload) TaskID() string {
	return fmt.Sprintf("%s:%d", p.BatchID, p.Job.ID)
}

func NewFinishLogoTask(payload FinishLogoPayload) (*asynq.Task, error) {
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("invalid finish payload: %w", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal finish payload: %w", err)
	}
	return asynq.NewTask(TypeFinishLogo, body), nil
}

func ParseFinishLogoPayload(task *asynq.Task) (FinishLogoPayload, error) {
	var payload FinishLogoPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FinishLogoPayload{}, fmt.Errorf("unmarshal finish payload: %w", err)
	}
	if err := payload.Validate(); err != nil {
		return FinishLogoPayload{}, fmt.Errorf("invalid finish payload: %w", err)
	}
	return payload, nil
}
