package pipeline

import (
	"context"
	"testing"

	"github.com/dunamismax/logocrunch/internal/domain"
)

func BenchmarkProcessorKeyedLogo(b *testing.B) {
	benchmarkProcessor(b, 64, 256)
}

func BenchmarkProcessorLargeLogo(b *testing.B) {
	benchmarkProcessor(b, 200, 800)
}

func benchmarkProcessor(b *testing.B, lowSize, highSize int) {
	processor, err := NewProcessor(
		staticFetcher{
			low:  encodePNG(b, logoImage(lowSize)),
			high: encodePNG(b, logoImage(highSize)),
		},
		discardEmitter{},
		DefaultOptions(),
		nil,
	)
	if err != nil {
		b.Fatalf("new processor: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := processor.Process(context.Background(), domain.LogoJob{ID: uint32(i + 1)}); err != nil {
			b.Fatalf("process: %v", err)
		}
	}
}

type staticFetcher struct {
	low, high []byte
}

func (f staticFetcher) Fetch(_ context.Context, _ domain.LogoJob, kind SourceKind) (Source, error) {
	if kind == SourceHighRes {
		return Source{Location: "static-high", Data: f.high}, nil
	}
	return Source{Location: "static-low", Data: f.low}, nil
}

type discardEmitter struct{}

func (discardEmitter) Emit(_ context.Context, job domain.LogoJob, document []byte) (Output, error) {
	return Output{Location: documentName(job), Bytes: len(document)}, nil
}
