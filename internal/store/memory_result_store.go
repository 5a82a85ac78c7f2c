package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dunamismax/logocrunch/internal/domain"
)

type MemoryResultStore struct {
	mu      sync.RWMutex
	results map[uint32]domain.LogoResult
	now     func() time.Time
}

func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{
		results: make(map[uint32]domain.LogoResult),
		now:     time.Now,
	}
}

func (s *MemoryResultStore) Upsert(_ context.Context, result domain.LogoResult) error {
	if err := validate(result); err != nil {
		return err
	}
	if result.UpdatedAt.IsZero() {
		result.UpdatedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.JobID] = result
	return nil
}

func (s *MemoryResultStore) Get(_ context.Context, jobID uint32) (domain.LogoResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[jobID]
	return result, ok, nil
}

func (s *MemoryResultStore) ListBatch(_ context.Context, batchID string) ([]domain.LogoResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.LogoResult, 0)
	for _, result := range s.results {
		if result.BatchID == batchID {
			out = append(out, result)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobID < out[j].JobID })
	return out, nil
}
