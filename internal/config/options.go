package config

import (
	"github.com/dunamismax/logocrunch/internal/compose"
	"github.com/dunamismax/logocrunch/internal/palette"
	"github.com/dunamismax/logocrunch/internal/pipeline"
	"github.com/dunamismax/logocrunch/internal/trace"
)

// PipelineOptions converts the validated configuration into processor
// options.
func (c Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Palette:   c.PaletteOptions(),
		Tolerance: uint8(c.Pipeline.Tolerance),
		Compose: compose.Options{
			CanvasSize:     c.Pipeline.CanvasSize,
			ShrinkFactor:   c.Pipeline.ShrinkFactor,
			MaxVectorBytes: c.Pipeline.MaxVectorKiB * 1024,
			MinConfidence:  c.Pipeline.MinConfidence,
			WhiteThreshold: uint8(c.Pipeline.WhiteThreshold),
			NeutralGray:    compose.DefaultOptions().NeutralGray,
			Trace:          c.TraceParams(),
		},
	}
}

func (c Config) PaletteOptions() palette.Options {
	p := c.Palette
	return palette.Options{
		BaseClusters:     p.BaseClusters,
		PixelsPerCluster: p.PixelsPerCluster,
		MaxClusters:      p.MaxClusters,
		MaxIterations:    p.MaxIterations,
		Delta:            p.Delta,
		Seed:             p.Seed,
		MaxDimension:     p.MaxDimension,
	}
}

func (c Config) TraceParams() trace.Params {
	t := c.Trace
	mode, _ := trace.ParseMode(t.Mode)
	return trace.Params{
		FilterSpeckle:   t.FilterSpeckle,
		ColorPrecision:  t.ColorPrecision,
		LayerDifference: t.LayerDifference,
		Mode:            mode,
		CornerThreshold: t.CornerThreshold,
		LengthThreshold: t.LengthThreshold,
		MaxIterations:   t.MaxIterations,
		SpliceThreshold: t.SpliceThreshold,
		PathPrecision:   t.PathPrecision,
	}
}
