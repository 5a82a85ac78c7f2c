// Package store persists the outcome of each finished logo.
package store

import (
	"context"
	"errors"

	"github.com/dunamismax/logocrunch/internal/domain"
)

var ErrInvalidResult = errors.New("invalid logo result")

// ResultStore keeps the latest result per logo id. A logo finished again
// by a later batch replaces the earlier record.
type ResultStore interface {
	Upsert(ctx context.Context, result domain.LogoResult) error
	Get(ctx context.Context, jobID uint32) (domain.LogoResult, bool, error)
	ListBatch(ctx context.Context, batchID string) ([]domain.LogoResult, error)
}

func validate(result domain.LogoResult) error {
	switch result.Status {
	case domain.JobStatusQueued, domain.JobStatusProcessing, domain.JobStatusSucceeded, domain.JobStatusFailed:
	default:
		return errors.Join(ErrInvalidResult, errors.New("unknown status "+result.Status))
	}
	return nil
}
