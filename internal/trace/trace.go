// Package trace converts a keyed logo raster into filled SVG paths.
//
// Opaque pixels are grouped into regions of similar color, tiny regions are
// folded into their neighbors, and each region's boundary is simplified and
// fitted with cubic curves. Every region becomes one path using the even-odd
// fill rule so holes need no separate layer.
package trace

import (
	"errors"
	"image"
	"image/color"
	"strings"

	"github.com/dunamismax/logocrunch/internal/palette"
)

var (
	ErrDegenerate = errors.New("trace: raster has no area")
	ErrNoShapes   = errors.New("trace: no opaque regions to trace")
)

type Path struct {
	Data string
	Fill palette.Color
}

// Result holds paths in the raster's pixel coordinates, largest region first.
type Result struct {
	Width  int
	Height int
	Paths  []Path
}

// Markup renders the paths as SVG elements without an enclosing document.
func (r Result) Markup() string {
	var b strings.Builder
	for _, p := range r.Paths {
		b.WriteString(`<path d="`)
		b.WriteString(p.Data)
		b.WriteString(`" fill="`)
		b.WriteString(p.Fill.Hex())
		b.WriteString(`" fill-rule="evenodd"/>`)
	}
	return b.String()
}

// Trace vectorizes img. Pixels with alpha below 128 are background.
func Trace(img image.Image, p Params) (Result, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return Result{}, ErrDegenerate
	}

	seg := segment(pixels(img), w, h, p)
	roots := seg.roots()
	if len(roots) == 0 {
		return Result{}, ErrNoShapes
	}

	f := formatter{precision: max(p.PathPrecision, 0)}
	out := Result{Width: w, Height: h}
	for _, id := range roots {
		var b strings.Builder
		for _, loop := range seg.loops(id) {
			pts := simplifyClosed(toVecs(loop), simplifyEpsilon)
			var o outline
			if p.Mode == ModePolygon {
				o = polygonOutline(pts)
			} else {
				pts = pruneShort(pts, p.CornerThreshold, p.LengthThreshold)
				o = splineOutline(pts, p)
			}
			f.write(&b, o)
		}
		if b.Len() == 0 {
			continue
		}
		m := seg.regions[id].mean()
		out.Paths = append(out.Paths, Path{
			Data: b.String(),
			Fill: palette.Color{R: m[0], G: m[1], B: m[2]},
		})
	}
	if len(out.Paths) == 0 {
		return Result{}, ErrNoShapes
	}
	return out, nil
}

// pixels returns img as tightly packed, non-premultiplied RGBA rows.
func pixels(img image.Image) []uint8 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]uint8, w*h*4)
	if n, ok := img.(*image.NRGBA); ok {
		for y := 0; y < h; y++ {
			off := n.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out[y*w*4:(y+1)*w*4], n.Pix[off:off+w*4])
		}
		return out
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			o := (y*w + x) * 4
			out[o], out[o+1], out[o+2], out[o+3] = c.R, c.G, c.B, c.A
		}
	}
	return out
}
