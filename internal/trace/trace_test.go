package trace

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dunamismax/logocrunch/internal/palette"
)

var (
	black = color.NRGBA{A: 255}
	red   = color.NRGBA{R: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
)

func fillRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func disk(size, radius int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	center := size / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := x-center, y-center
			if dx*dx+dy*dy <= radius*radius {
				img.SetNRGBA(x, y, c)
			}
		}
	}
	return img
}

func TestTraceSquarePolygon(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	fillRect(img, image.Rect(5, 5, 15, 15), black)

	p := DefaultParams()
	p.Mode = ModePolygon
	res, err := Trace(img, p)
	require.NoError(t, err)
	require.Len(t, res.Paths, 1)
	assert.Equal(t, 20, res.Width)
	assert.Equal(t, 20, res.Height)
	assert.Equal(t, "M5 5L15 5L15 15L5 15Z", res.Paths[0].Data)
	assert.Equal(t, `<path d="M5 5L15 5L15 15L5 15Z" fill="#000000" fill-rule="evenodd"/>`, res.Markup())
}

func TestTraceSquareSplineKeepsCorners(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	fillRect(img, image.Rect(5, 5, 15, 15), black)

	res, err := Trace(img, DefaultParams())
	require.NoError(t, err)
	require.Len(t, res.Paths, 1)
	assert.Equal(t, "M5 5L15 5L15 15L5 15L5 5Z", res.Paths[0].Data)
}

func TestTraceDiskUsesCurves(t *testing.T) {
	img := disk(80, 30, blue)

	res, err := Trace(img, DefaultParams())
	require.NoError(t, err)
	require.Len(t, res.Paths, 1)
	assert.Contains(t, res.Paths[0].Data, "C")
	assert.Equal(t, palette.Color{B: 255}, res.Paths[0].Fill)

	p := DefaultParams()
	p.Mode = ModePolygon
	poly, err := Trace(img, p)
	require.NoError(t, err)
	assert.NotContains(t, poly.Paths[0].Data, "C")
}

func TestTraceDeterministic(t *testing.T) {
	img := disk(64, 20, red)
	fillRect(img, image.Rect(28, 28, 36, 36), blue)

	first, err := Trace(img, DefaultParams())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := Trace(img, DefaultParams())
		require.NoError(t, err)
		assert.Equal(t, first.Markup(), again.Markup())
	}
}

func TestTraceHoleIsSubpath(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 30, 30))
	fillRect(img, image.Rect(2, 2, 28, 28), black)
	fillRect(img, image.Rect(10, 10, 20, 20), color.NRGBA{})

	res, err := Trace(img, DefaultParams())
	require.NoError(t, err)
	require.Len(t, res.Paths, 1)
	assert.Equal(t, 2, strings.Count(res.Paths[0].Data, "M"))
}

func TestTraceSpeckleMergedIntoNeighbor(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 40))
	fillRect(img, img.Bounds(), red)
	fillRect(img, image.Rect(10, 10, 12, 12), black)

	res, err := Trace(img, DefaultParams())
	require.NoError(t, err)
	require.Len(t, res.Paths, 1)
	assert.Equal(t, 1, strings.Count(res.Paths[0].Data, "M"))
	assert.InDelta(t, 254, int(res.Paths[0].Fill.R), 1)
}

func TestTraceIsolatedSpeckleDropped(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 60, 60))
	fillRect(img, image.Rect(0, 0, 20, 20), black)
	fillRect(img, image.Rect(50, 50, 53, 53), black)

	res, err := Trace(img, DefaultParams())
	require.NoError(t, err)
	require.Len(t, res.Paths, 1)
	assert.Equal(t, 1, strings.Count(res.Paths[0].Data, "M"))

	p := DefaultParams()
	p.FilterSpeckle = 0
	res, err = Trace(img, p)
	require.NoError(t, err)
	assert.Len(t, res.Paths, 2)
}

func TestTraceSeparateColors(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	fillRect(img, image.Rect(0, 0, 20, 20), red)
	fillRect(img, image.Rect(20, 0, 40, 20), blue)

	res, err := Trace(img, DefaultParams())
	require.NoError(t, err)
	require.Len(t, res.Paths, 2)
	assert.Equal(t, palette.Color{R: 255}, res.Paths[0].Fill)
	assert.Equal(t, palette.Color{B: 255}, res.Paths[1].Fill)
}

func TestTraceLayerDifferenceMergesNearColors(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	fillRect(img, image.Rect(0, 0, 20, 20), color.NRGBA{R: 200, A: 255})
	fillRect(img, image.Rect(20, 0, 40, 20), color.NRGBA{R: 205, A: 255})

	p := DefaultParams()
	p.ColorPrecision = 8
	res, err := Trace(img, p)
	require.NoError(t, err)
	require.Len(t, res.Paths, 1)
	assert.Equal(t, palette.Color{R: 203}, res.Paths[0].Fill)

	p.LayerDifference = 0
	res, err = Trace(img, p)
	require.NoError(t, err)
	assert.Len(t, res.Paths, 2)
}

func TestTraceErrors(t *testing.T) {
	_, err := Trace(image.NewNRGBA(image.Rect(0, 0, 0, 0)), DefaultParams())
	require.ErrorIs(t, err, ErrDegenerate)

	_, err = Trace(image.NewNRGBA(image.Rect(0, 0, 16, 16)), DefaultParams())
	require.ErrorIs(t, err, ErrNoShapes)

	// A 1x1 transparent sentinel left behind by border trimming.
	_, err = Trace(image.NewNRGBA(image.Rect(0, 0, 1, 1)), DefaultParams())
	require.ErrorIs(t, err, ErrNoShapes)
}

func TestTraceOffsetBounds(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 10, 30, 30))
	fillRect(img, image.Rect(15, 15, 25, 25), black)

	p := DefaultParams()
	p.Mode = ModePolygon
	res, err := Trace(img, p)
	require.NoError(t, err)
	require.Len(t, res.Paths, 1)
	assert.Equal(t, "M5 5L15 5L15 15L5 15Z", res.Paths[0].Data)
}

func TestFormatterTrimsZeros(t *testing.T) {
	f := formatter{precision: 2}
	assert.Equal(t, "1.5", f.num(1.5))
	assert.Equal(t, "2", f.num(2))
	assert.Equal(t, "3.14", f.num(3.14159))
	assert.Equal(t, "0", f.num(-0.001))
	assert.Equal(t, "-4.25", f.num(-4.25))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Polygon")
	require.NoError(t, err)
	assert.Equal(t, ModePolygon, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeSpline, m)

	_, err = ParseMode("pixel")
	require.Error(t, err)
}
