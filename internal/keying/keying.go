// Package keying removes a flat background color from a raster and trims the
// transparent margin it leaves behind.
package keying

import (
	"image"
	"image/color"

	"github.com/dunamismax/logocrunch/internal/palette"
)

const (
	DefaultTolerance uint8 = 30

	opaque      = 0xff
	transparent = 0x00
)

// RemoveBackground rewrites the alpha channel of img in place: pixels whose
// every channel lies within tolerance of ref become fully transparent, all
// others fully opaque.
func RemoveBackground(img *image.NRGBA, ref palette.Color, tolerance uint8) {
	rLo, rHi := window(ref.R, tolerance)
	gLo, gHi := window(ref.G, tolerance)
	bLo, bHi := window(ref.B, tolerance)

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i+3 < len(row); i += 4 {
			if row[i] >= rLo && row[i] <= rHi &&
				row[i+1] >= gLo && row[i+1] <= gHi &&
				row[i+2] >= bLo && row[i+2] <= bHi {
				row[i+3] = transparent
			} else {
				row[i+3] = opaque
			}
		}
	}
}

func window(v, tolerance uint8) (uint8, uint8) {
	lo, hi := int(v)-int(tolerance), int(v)+int(tolerance)
	return uint8(max(lo, 0)), uint8(min(hi, 0xff))
}

// TrimTransparentBorder returns a copy of img cropped to the bounding box of
// its non-transparent pixels, anchored at the origin. A fully transparent
// raster yields a 1x1 transparent raster.
func TrimTransparentBorder(img *image.NRGBA) *image.NRGBA {
	box, ok := OpaqueBounds(img)
	if !ok {
		out := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		out.SetNRGBA(0, 0, color.NRGBA{})
		return out
	}

	out := image.NewNRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	for y := 0; y < box.Dy(); y++ {
		src := img.Pix[img.PixOffset(box.Min.X, box.Min.Y+y):img.PixOffset(box.Max.X, box.Min.Y+y)]
		copy(out.Pix[out.PixOffset(0, y):], src)
	}
	return out
}

// OpaqueBounds reports the bounding box of pixels with non-zero alpha.
func OpaqueBounds(img *image.NRGBA) (image.Rectangle, bool) {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 3; i < len(row); i += 4 {
			if row[i] == transparent {
				continue
			}
			x := b.Min.X + i/4
			minX = min(minX, x)
			maxX = max(maxX, x)
			minY = min(minY, y)
			maxY = max(maxY, y)
		}
	}

	if maxX < minX || maxY < minY {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// IsBlank reports whether img has no visible pixel.
func IsBlank(img *image.NRGBA) bool {
	_, ok := OpaqueBounds(img)
	return !ok
}
