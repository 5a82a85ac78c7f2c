// Package compose assembles the finished logo canvas: a background fill and
// a logo layer that is either traced vector paths or an embedded PNG.
package compose

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log"

	"github.com/dunamismax/logocrunch/internal/keying"
	"github.com/dunamismax/logocrunch/internal/palette"
	"github.com/dunamismax/logocrunch/internal/trace"
)

var ErrVectorTooLarge = errors.New("compose: traced paths exceed size ceiling")

// Encoder produces the compressed PNG used by raster embeds.
type Encoder interface {
	EncodePNG(img image.Image) ([]byte, error)
}

// Input is everything a canvas is derived from.
type Input struct {
	Title    string
	Raster   *image.NRGBA
	Dominant palette.Result
}

type Compositor struct {
	opts    Options
	encoder Encoder
	logger  *log.Logger
}

func New(opts Options, logger *log.Logger) (*Compositor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Compositor{opts: opts, encoder: newEncoder(), logger: logger}, nil
}

// WithEncoder swaps the PNG encoder.
func (c *Compositor) WithEncoder(enc Encoder) *Compositor {
	c.encoder = enc
	return c
}

func (c *Compositor) Options() Options {
	return c.opts
}

// Compose builds the document for in. Tracing problems never fail the call;
// they select the raster embed instead.
func (c *Compositor) Compose(in Input) (Document, error) {
	if in.Raster == nil {
		return Document{}, fmt.Errorf("compose: nil raster")
	}

	doc := Document{
		Title:      in.Title,
		Size:       c.opts.CanvasSize,
		Background: BackgroundFill(in.Dominant, c.opts.WhiteThreshold, c.opts.NeutralGray),
	}

	layer, err := c.vectorLayer(in.Raster)
	if err == nil {
		doc.Layer = layer
		doc.Transform = c.shrunk()
		return doc, nil
	}
	c.logger.Printf("raster fallback title=%s reason=%q", in.Title, err)

	png, err := c.encoder.EncodePNG(in.Raster)
	if err != nil {
		return Document{}, fmt.Errorf("encode raster: %w", err)
	}
	bounds := in.Raster.Bounds()
	doc.Layer = RasterLayer{Width: bounds.Dx(), Height: bounds.Dy(), PNG: png}
	doc.Transform = c.rasterTransform(in)
	return doc, nil
}

func (c *Compositor) vectorLayer(img *image.NRGBA) (VectorLayer, error) {
	res, err := trace.Trace(img, c.opts.Trace)
	if err != nil {
		return VectorLayer{}, err
	}
	markup := res.Markup()
	if len(markup) >= c.opts.MaxVectorBytes {
		return VectorLayer{}, fmt.Errorf("%w: %d bytes", ErrVectorTooLarge, len(markup))
	}
	return VectorLayer{Width: res.Width, Height: res.Height, Markup: markup}, nil
}

// shrunk centers a canvas-sized layer box at ShrinkFactor.
func (c *Compositor) shrunk() Transform {
	return ShrinkToFit(c.opts.CanvasSize, c.opts.CanvasSize, c.opts.CanvasSize, c.opts.ShrinkFactor)
}

// rasterTransform shrinks a keyed embed like a vector layer. Un-keyed
// rasters and blank keyed rasters stay unscaled.
func (c *Compositor) rasterTransform(in Input) Transform {
	if in.Dominant.Score <= c.opts.MinConfidence || keying.IsBlank(in.Raster) {
		return Identity()
	}
	return c.shrunk()
}

// BackgroundFill returns the measured dominant color unless it is near
// white, in which case gray is used.
func BackgroundFill(dominant palette.Result, threshold uint8, gray palette.Color) palette.Color {
	if dominant.Brightness > threshold {
		return gray
	}
	return dominant.Color
}
