package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dunamismax/logocrunch/internal/compose"
	"github.com/dunamismax/logocrunch/internal/domain"
	"github.com/dunamismax/logocrunch/internal/keying"
	"github.com/dunamismax/logocrunch/internal/palette"
	"github.com/dunamismax/logocrunch/internal/raster"
)

type Stage string

const (
	StageLoadLowRes  Stage = "load_low_res"
	StageLoadHighRes Stage = "load_high_res"
	StageAnalyze     Stage = "analyze"
	StageKeyAndTrim  Stage = "key_and_trim"
	StageCompose     Stage = "compose"
	StageWrite       Stage = "write"
)

// SourceKind selects which of a logo's two rasters to fetch.
type SourceKind string

const (
	SourceLowRes  SourceKind = "low_res"
	SourceHighRes SourceKind = "high_res"
)

var (
	ErrUnsupportedSourceType = errors.New("unsupported source_type")
	ErrWrite                 = errors.New("write output")
)

// JobError is the only error Process returns. It names the logo and the
// stage that failed.
type JobError struct {
	ID    uint32
	Stage Stage
	Err   error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("logo %d: %s stage: %v", e.ID, e.Stage, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

type Source struct {
	Location string
	Data     []byte
}

type Output struct {
	Location string
	Bytes    int
}

type Fetcher interface {
	Fetch(ctx context.Context, job domain.LogoJob, kind SourceKind) (Source, error)
}

type Emitter interface {
	Emit(ctx context.Context, job domain.LogoJob, document []byte) (Output, error)
}

type Options struct {
	Palette   palette.Options
	Tolerance uint8
	Compose   compose.Options
}

func DefaultOptions() Options {
	return Options{
		Palette:   palette.DefaultOptions(),
		Tolerance: keying.DefaultTolerance,
		Compose:   compose.DefaultOptions(),
	}
}

// Outcome describes a finished logo.
type Outcome struct {
	JobID          uint32
	Representation string
	Dominant       palette.Result
	Background     palette.Color
	Keyed          bool
	Width          int
	Height         int
	Output         Output
}

// Result flattens the outcome into the record stored and sent to webhooks.
// A non-nil err marks the logo failed.
func (o Outcome) Result(batchID string, err error) domain.LogoResult {
	result := domain.LogoResult{
		JobID:   o.JobID,
		BatchID: batchID,
		Status:  domain.JobStatusSucceeded,
	}
	if err != nil {
		result.Status = domain.JobStatusFailed
		result.Error = err.Error()
		return result
	}
	result.Representation = o.Representation
	result.Dominant = o.Dominant.Color.Hex()
	result.Background = o.Background.CSS()
	result.Score = o.Dominant.Score
	result.Clusters = o.Dominant.Clusters
	result.OutputPath = o.Output.Location
	result.Bytes = o.Output.Bytes
	return result
}

type Processor struct {
	fetcher    Fetcher
	emitter    Emitter
	compositor *compose.Compositor
	opts       Options
	logger     *log.Logger
	tracer     trace.Tracer
}

func NewProcessor(fetcher Fetcher, emitter Emitter, opts Options, logger *log.Logger) (*Processor, error) {
	if fetcher == nil || emitter == nil {
		return nil, errors.New("fetcher and emitter are required")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	compositor, err := compose.New(opts.Compose, logger)
	if err != nil {
		return nil, fmt.Errorf("build compositor: %w", err)
	}

	return &Processor{
		fetcher:    fetcher,
		emitter:    emitter,
		compositor: compositor,
		opts:       opts,
		logger:     logger,
		tracer:     otel.Tracer("logocrunch/pipeline"),
	}, nil
}

func NewLocalProcessor(lowResDir, highResDir, outputDir string, opts Options, logger *log.Logger) (*Processor, error) {
	return NewProcessor(
		LocalFileFetcher{LowResDir: lowResDir, HighResDir: highResDir},
		LocalFileEmitter{OutputDir: outputDir},
		opts,
		logger,
	)
}

// Process runs LoadLowRes → LoadHighRes → Analyze → KeyAndTrim → Compose →
// Write for one logo. Keying is skipped when the dominant color is not
// confident enough to be the background.
func (p *Processor) Process(ctx context.Context, job domain.LogoJob) (Outcome, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.process_logo")
	span.SetAttributes(attribute.Int64("logo.id", int64(job.ID)))
	defer span.End()

	out, err := p.process(ctx, job)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "logo failed")
		return out, err
	}

	span.SetAttributes(
		attribute.String("logo.representation", out.Representation),
		attribute.Float64("logo.dominant_score", out.Dominant.Score),
		attribute.Bool("logo.keyed", out.Keyed),
	)
	span.SetStatus(codes.Ok, "finished")
	return out, nil
}

func (p *Processor) process(ctx context.Context, job domain.LogoJob) (Outcome, error) {
	out := Outcome{JobID: job.ID}
	fail := func(stage Stage, err error) (Outcome, error) {
		return out, &JobError{ID: job.ID, Stage: stage, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(StageLoadLowRes, err)
	}

	var (
		low, high         *image.NRGBA
		lowPath, highPath string
	)
	if err := p.stage(ctx, StageLoadLowRes, func(ctx context.Context) (err error) {
		low, lowPath, err = p.load(ctx, job, SourceLowRes)
		return err
	}); err != nil {
		return fail(StageLoadLowRes, err)
	}
	if err := p.stage(ctx, StageLoadHighRes, func(ctx context.Context) (err error) {
		high, highPath, err = p.load(ctx, job, SourceHighRes)
		return err
	}); err != nil {
		return fail(StageLoadHighRes, err)
	}
	p.logger.Printf("started job_id=%d low_res=%s high_res=%s", job.ID, lowPath, highPath)

	if err := p.stage(ctx, StageAnalyze, func(context.Context) (err error) {
		out.Dominant, err = palette.Analyze(low, p.opts.Palette)
		return err
	}); err != nil {
		return fail(StageAnalyze, err)
	}

	out.Keyed = out.Dominant.Score > p.opts.Compose.MinConfidence
	if out.Keyed {
		high = p.keyAndTrim(ctx, high, out.Dominant.Color)
	}
	out.Width, out.Height = high.Bounds().Dx(), high.Bounds().Dy()

	var doc compose.Document
	if err := p.stage(ctx, StageCompose, func(context.Context) (err error) {
		doc, err = p.compositor.Compose(compose.Input{
			Title:    strconv.FormatUint(uint64(job.ID), 10),
			Raster:   high,
			Dominant: out.Dominant,
		})
		return err
	}); err != nil {
		return fail(StageCompose, err)
	}
	out.Representation = doc.Representation()
	out.Background = doc.Background

	if err := p.stage(ctx, StageWrite, func(ctx context.Context) (err error) {
		out.Output, err = p.emitter.Emit(ctx, job, doc.Bytes())
		return err
	}); err != nil {
		return fail(StageWrite, fmt.Errorf("%w: %w", ErrWrite, err))
	}

	p.logger.Printf(
		"finished job_id=%d representation=%s dominant=%s score=%d%% clusters=%d keyed=%t output=%s",
		job.ID,
		out.Representation,
		out.Dominant.Color.Hex(),
		int(out.Dominant.Score*100),
		out.Dominant.Clusters,
		out.Keyed,
		out.Output.Location,
	)
	return out, nil
}

func (p *Processor) stage(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "pipeline."+string(stage))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(stage)+" failed")
		return err
	}
	return nil
}

// keyAndTrim cannot fail: an all-background raster trims to the 1x1
// transparent sentinel.
func (p *Processor) keyAndTrim(ctx context.Context, img *image.NRGBA, ref palette.Color) *image.NRGBA {
	_, span := p.tracer.Start(ctx, "pipeline."+string(StageKeyAndTrim))
	defer span.End()

	keying.RemoveBackground(img, ref, p.opts.Tolerance)
	return keying.TrimTransparentBorder(img)
}

// load fetches and decodes one raster. Pixels that are not fully opaque are
// flattened onto white.
func (p *Processor) load(ctx context.Context, job domain.LogoJob, kind SourceKind) (*image.NRGBA, string, error) {
	src, err := p.fetcher.Fetch(ctx, job, kind)
	if err != nil {
		return nil, "", err
	}
	img, _, err := raster.Decode(src.Data)
	if err != nil {
		return nil, src.Location, fmt.Errorf("%s: %w", src.Location, err)
	}
	return raster.FlattenOnWhite(img), src.Location, nil
}

type LocalFileFetcher struct {
	LowResDir  string
	HighResDir string
}

func (f LocalFileFetcher) Fetch(ctx context.Context, job domain.LogoJob, kind SourceKind) (Source, error) {
	select {
	case <-ctx.Done():
		return Source{}, ctx.Err()
	default:
	}

	dir := f.LowResDir
	if kind == SourceHighRes {
		dir = f.HighResDir
	}
	if strings.TrimSpace(dir) == "" {
		return Source{}, fmt.Errorf("%s directory is required", kind)
	}

	path, err := raster.ResolvePath(filepath.Join(dir, job.Stem()))
	if err != nil {
		return Source{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("read input file %s: %w", path, err)
	}
	return Source{Location: path, Data: data}, nil
}

type LocalFileEmitter struct {
	OutputDir string
}

func (e LocalFileEmitter) Emit(_ context.Context, job domain.LogoJob, document []byte) (Output, error) {
	if strings.TrimSpace(e.OutputDir) == "" {
		return Output{}, errors.New("output directory is required")
	}
	if err := os.MkdirAll(e.OutputDir, 0o755); err != nil {
		return Output{}, fmt.Errorf("create output dir: %w", err)
	}

	fullPath := filepath.Join(e.OutputDir, documentName(job))
	if err := os.WriteFile(fullPath, document, 0o644); err != nil {
		return Output{}, fmt.Errorf("write output file: %w", err)
	}
	return Output{Location: fullPath, Bytes: len(document)}, nil
}

func documentName(job domain.LogoJob) string {
	return job.Stem() + ".svg"
}
