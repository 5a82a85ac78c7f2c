package progress

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dunamismax/logocrunch/internal/pipeline"
)

const (
	fieldTotal      = "total"
	fieldCompleted  = "completed"
	fieldFailed     = "failed"
	fieldFinishedAt = "finished_at"
)

// RedisObserver mirrors batch progress into a Redis hash so other processes
// can watch a run.
type RedisObserver struct {
	client  redis.UniversalClient
	key     string
	ttl     time.Duration
	timeout time.Duration
	logger  *log.Logger
	now     func() time.Time
}

func NewRedisObserver(client redis.UniversalClient, keyPrefix, batchID string, ttl time.Duration, logger *log.Logger) (*RedisObserver, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if strings.TrimSpace(batchID) == "" {
		return nil, fmt.Errorf("batch id is required")
	}
	if strings.TrimSpace(keyPrefix) == "" {
		keyPrefix = "logocrunch:progress"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisObserver{
		client:  client,
		key:     Key(keyPrefix, batchID),
		ttl:     ttl,
		timeout: 2 * time.Second,
		logger:  logger,
		now:     time.Now,
	}, nil
}

func Key(prefix, batchID string) string {
	return prefix + ":" + batchID
}

func (o *RedisObserver) JobFinished(_ pipeline.Outcome, err error, _ int64, total int) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	if _, recordErr := o.Record(ctx, err != nil, total); recordErr != nil && o.logger != nil {
		o.logger.Printf("progress update failed key=%s err=%v", o.key, recordErr)
	}
}

// Record counts one finished logo atomically and returns the totals after
// the increment, so exactly one caller observes Completed == Total.
func (o *RedisObserver) Record(ctx context.Context, failed bool, total int) (Counts, error) {
	failedBy := int64(0)
	if failed {
		failedBy = 1
	}

	var completedCmd, failedCmd *redis.IntCmd
	_, err := o.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, o.key, fieldTotal, total)
		completedCmd = p.HIncrBy(ctx, o.key, fieldCompleted, 1)
		failedCmd = p.HIncrBy(ctx, o.key, fieldFailed, failedBy)
		p.Expire(ctx, o.key, o.ttl)
		return nil
	})
	if err != nil {
		return Counts{}, fmt.Errorf("record progress %s: %w", o.key, err)
	}
	return Counts{
		Total:     int64(total),
		Completed: completedCmd.Val(),
		Failed:    failedCmd.Val(),
	}, nil
}

// ClaimFinish stamps finished_at unless another process already did and
// reports whether this call won.
func (o *RedisObserver) ClaimFinish(ctx context.Context) (bool, error) {
	claimed, err := o.client.HSetNX(ctx, o.key, fieldFinishedAt, o.now().UTC().Format(time.RFC3339)).Result()
	if err != nil {
		return false, fmt.Errorf("claim finish %s: %w", o.key, err)
	}
	return claimed, nil
}

func (o *RedisObserver) Key() string {
	return o.key
}

func (o *RedisObserver) BatchFinished(pipeline.Report) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	if err := o.client.HSet(ctx, o.key, fieldFinishedAt, o.now().UTC().Format(time.RFC3339)).Err(); err != nil && o.logger != nil {
		o.logger.Printf("progress finish failed key=%s err=%v", o.key, err)
	}
}

type Counts struct {
	Total      int64
	Completed  int64
	Failed     int64
	FinishedAt time.Time
}

func (c Counts) Done() bool {
	return !c.FinishedAt.IsZero()
}

// ReadCounts loads the progress hash for key; a missing key reads as zero.
func ReadCounts(ctx context.Context, client redis.UniversalClient, key string) (Counts, error) {
	values, err := client.HGetAll(ctx, key).Result()
	if err != nil {
		return Counts{}, fmt.Errorf("read progress %s: %w", key, err)
	}

	var c Counts
	for field, dst := range map[string]*int64{fieldTotal: &c.Total, fieldCompleted: &c.Completed, fieldFailed: &c.Failed} {
		raw, ok := values[field]
		if !ok {
			continue
		}
		if *dst, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return Counts{}, fmt.Errorf("parse progress field %s: %w", field, err)
		}
	}
	if raw, ok := values[fieldFinishedAt]; ok {
		if c.FinishedAt, err = time.Parse(time.RFC3339, raw); err != nil {
			return Counts{}, fmt.Errorf("parse progress field %s: %w", fieldFinishedAt, err)
		}
	}
	return c, nil
}
