package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"

	"github.com/dunamismax/logocrunch/internal/domain"
	"github.com/dunamismax/logocrunch/internal/raster"
)

const documentContentType = "image/svg+xml"

// ObjectStore is the subset of the storage client the object-store stages
// use.
type ObjectStore interface {
	ObjectExists(ctx context.Context, objectKey string) (bool, error)
	ReadObject(ctx context.Context, objectKey string) ([]byte, error)
	WriteObject(ctx context.Context, objectKey string, data []byte, contentType string) error
}

type ObjectStoreFetcher struct {
	Storage       ObjectStore
	LowResPrefix  string
	HighResPrefix string
}

// Fetch probes <prefix>/<id> followed by <prefix>/<id><ext> for each known
// raster extension.
func (f ObjectStoreFetcher) Fetch(ctx context.Context, job domain.LogoJob, kind SourceKind) (Source, error) {
	if f.Storage == nil {
		return Source{}, errors.New("storage client is required")
	}

	prefix := defaultPrefix(f.LowResPrefix, "low")
	if kind == SourceHighRes {
		prefix = defaultPrefix(f.HighResPrefix, "high")
	}
	base := path.Join(prefix, job.Stem())

	candidates := append([]string{base}, probeKeys(base)...)
	for _, key := range candidates {
		ok, err := f.Storage.ObjectExists(ctx, key)
		if err != nil {
			return Source{}, err
		}
		if !ok {
			continue
		}
		data, err := f.Storage.ReadObject(ctx, key)
		if err != nil {
			return Source{}, err
		}
		return Source{Location: key, Data: data}, nil
	}
	return Source{}, fmt.Errorf("%w: object %s", raster.ErrNotFound, base)
}

func probeKeys(base string) []string {
	out := make([]string, len(raster.Extensions))
	for i, ext := range raster.Extensions {
		out[i] = base + ext
	}
	return out
}

type ObjectStoreEmitter struct {
	Storage      ObjectStore
	OutputPrefix string
}

func (e ObjectStoreEmitter) Emit(ctx context.Context, job domain.LogoJob, document []byte) (Output, error) {
	if e.Storage == nil {
		return Output{}, errors.New("storage client is required")
	}

	objectKey := path.Join(defaultPrefix(e.OutputPrefix, "results"), documentName(job))
	if err := e.Storage.WriteObject(ctx, objectKey, document, documentContentType); err != nil {
		return Output{}, err
	}
	return Output{Location: objectKey, Bytes: len(document)}, nil
}

func NewObjectStoreProcessor(fetcher ObjectStoreFetcher, emitter ObjectStoreEmitter, opts Options, logger *log.Logger) (*Processor, error) {
	return NewProcessor(fetcher, emitter, opts, logger)
}

func defaultPrefix(prefix, fallback string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return fallback
	}
	return prefix
}
