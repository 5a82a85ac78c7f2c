package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dunamismax/logocrunch/internal/domain"
)

const (
	defaultMaxRetry = 3
	taskTimeout     = 2 * time.Minute
)

type Client struct {
	client   *asynq.Client
	queue    string
	maxRetry int
}

func NewClient(redisOpt asynq.RedisClientOpt, queueName string, maxRetry int) *Client {
	if maxRetry < 0 {
		maxRetry = defaultMaxRetry
	}
	return &Client{
		client:   asynq.NewClient(redisOpt),
		queue:    queueName,
		maxRetry: maxRetry,
	}
}

func (c *Client) EnqueueFinishLogo(ctx context.Context, payload FinishLogoPayload) (*asynq.TaskInfo, error) {
	task, err := NewFinishLogoTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(
		ctx,
		task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(c.maxRetry),
		asynq.Timeout(taskTimeout),
		asynq.TaskID(payload.TaskID()),
	)
}

// EnqueueBatch queues one task per logo and returns how many were accepted.
// Logos already queued under the same batch id are skipped.
func (c *Client) EnqueueBatch(ctx context.Context, batchID, sourceType, webhookURL string, batch domain.JobBatch) (int, error) {
	if err := batch.Validate(); err != nil {
		return 0, err
	}
	requestedAt := time.Now().UTC()
	enqueued := 0
	for _, job := range batch {
		_, err := c.EnqueueFinishLogo(ctx, FinishLogoPayload{
			BatchID:     batchID,
			Job:         job,
			SourceType:  sourceType,
			WebhookURL:  webhookURL,
			BatchSize:   len(batch),
			RequestedAt: requestedAt,
		})
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			continue
		}
		if err != nil {
			return enqueued, fmt.Errorf("enqueue logo %d: %w", job.ID, err)
		}
		enqueued++
	}
	return enqueued, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
