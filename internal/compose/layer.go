package compose

import (
	"github.com/dunamismax/logocrunch/internal/domain"
)

// LogoLayer is either a VectorLayer or a RasterLayer.
type LogoLayer interface {
	Representation() string
	isLogoLayer()
}

// VectorLayer carries traced path elements in raster pixel coordinates. It is
// rendered in a nested viewport spanning the canvas, like RasterLayer.
type VectorLayer struct {
	Width  int
	Height int
	Markup string
}

// RasterLayer carries a PNG stretched over the canvas with its aspect ratio
// preserved.
type RasterLayer struct {
	Width  int
	Height int
	PNG    []byte
}

func (VectorLayer) Representation() string { return domain.RepresentationVector }
func (RasterLayer) Representation() string { return domain.RepresentationRaster }

func (VectorLayer) isLogoLayer() {}
func (RasterLayer) isLogoLayer() {}
