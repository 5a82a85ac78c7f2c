package compose

import (
	"fmt"

	"github.com/dunamismax/logocrunch/internal/palette"
	"github.com/dunamismax/logocrunch/internal/trace"
)

type Options struct {
	CanvasSize int
	// ShrinkFactor leaves a margin around a keyed logo.
	ShrinkFactor float64
	// MaxVectorBytes caps the serialized paths; larger traces fall back to
	// the raster embed.
	MaxVectorBytes int
	MinConfidence  float64
	// WhiteThreshold is the brightness above which the background is
	// replaced with NeutralGray.
	WhiteThreshold uint8
	NeutralGray    palette.Color
	Trace          trace.Params
}

func DefaultOptions() Options {
	return Options{
		CanvasSize:     300,
		ShrinkFactor:   0.65,
		MaxVectorBytes: 90 * 1024,
		MinConfidence:  0.5,
		WhiteThreshold: 250,
		NeutralGray:    palette.Color{R: 238, G: 237, B: 241},
		Trace:          trace.DefaultParams(),
	}
}

func (o Options) Validate() error {
	if o.CanvasSize <= 0 {
		return fmt.Errorf("canvas size must be > 0")
	}
	if o.ShrinkFactor <= 0 || o.ShrinkFactor > 1 {
		return fmt.Errorf("shrink factor must be in (0, 1]")
	}
	if o.MaxVectorBytes <= 0 {
		return fmt.Errorf("max vector bytes must be > 0")
	}
	if o.MinConfidence < 0 || o.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be in [0, 1]")
	}
	if o.Trace.PathPrecision < 0 || o.Trace.PathPrecision > 8 {
		return fmt.Errorf("trace path precision must be in [0, 8]")
	}
	return nil
}
