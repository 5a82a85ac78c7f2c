package store

import (
	"context"
	"strings"
)

// Open returns the Postgres store when dsn is set and the in-memory store
// otherwise. The returned close function is never nil.
func Open(ctx context.Context, dsn string) (ResultStore, func() error, error) {
	if strings.TrimSpace(dsn) == "" {
		return NewMemoryResultStore(), func() error { return nil }, nil
	}
	pg, err := NewPostgresResultStore(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return pg, pg.Close, nil
}
