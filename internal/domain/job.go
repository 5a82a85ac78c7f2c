package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusSucceeded  = "succeeded"
	JobStatusFailed     = "failed"

	SourceTypeLocalFile   = "local_file"
	SourceTypeObjectStore = "object_store"

	RepresentationVector = "vector"
	RepresentationRaster = "raster"
)

// LogoJob is one unit of work. The id doubles as the filename stem of every
// intermediate and final artifact.
type LogoJob struct {
	ID  uint32 `json:"id"`
	URL string `json:"url"`
}

func (j LogoJob) Stem() string {
	return strconv.FormatUint(uint64(j.ID), 10)
}

// JobBatch keeps insertion order for progress indexing only.
type JobBatch []LogoJob

func (b JobBatch) Validate() error {
	if len(b) == 0 {
		return errors.New("batch must contain at least one logo")
	}
	seen := make(map[uint32]int, len(b))
	for i, job := range b {
		if prev, ok := seen[job.ID]; ok {
			return fmt.Errorf("logos[%d].id %d duplicates logos[%d]", i, job.ID, prev)
		}
		seen[job.ID] = i
	}
	return nil
}

type CreateBatchRequest struct {
	Logos      []LogoJob `json:"logos"`
	WebhookURL string    `json:"webhook_url,omitempty"`
}

func (r CreateBatchRequest) Validate() error {
	if err := JobBatch(r.Logos).Validate(); err != nil {
		return err
	}
	if hook := strings.TrimSpace(r.WebhookURL); hook != "" &&
		!strings.HasPrefix(hook, "http://") && !strings.HasPrefix(hook, "https://") {
		return fmt.Errorf("webhook_url must be an http(s) URL: %s", r.WebhookURL)
	}
	return nil
}

// LogoResult is the persisted outcome of one logo job.
type LogoResult struct {
	JobID          uint32    `json:"job_id"`
	BatchID        string    `json:"batch_id,omitempty"`
	Status         string    `json:"status"`
	Representation string    `json:"representation,omitempty"`
	Dominant       string    `json:"dominant_color,omitempty"`
	Background     string    `json:"background_color,omitempty"`
	Score          float64   `json:"score"`
	Clusters       int       `json:"clusters"`
	OutputPath     string    `json:"output_path,omitempty"`
	Bytes          int       `json:"bytes"`
	Error          string    `json:"error,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}
