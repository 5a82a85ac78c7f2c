package keying

import (
	"image"
	"image/color"
	"testing"

	"github.com/dunamismax/logocrunch/internal/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func alphaCount(img *image.NRGBA, alpha uint8) int {
	n := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] == alpha {
			n++
		}
	}
	return n
}

func TestRemoveBackgroundToleranceZeroKeysExactMatchesOnly(t *testing.T) {
	img := fill(4, 1, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 101, G: 100, B: 100, A: 255})
	img.SetNRGBA(2, 0, color.NRGBA{R: 100, G: 100, B: 99, A: 255})

	RemoveBackground(img, palette.Color{R: 100, G: 100, B: 100}, 0)

	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(255), img.NRGBAAt(1, 0).A)
	assert.Equal(t, uint8(255), img.NRGBAAt(2, 0).A)
	assert.Equal(t, uint8(0), img.NRGBAAt(3, 0).A)
}

func TestRemoveBackgroundTolerance255KeysEverything(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for i := 0; i < len(img.Pix); i++ {
		img.Pix[i] = uint8(i * 37)
	}

	RemoveBackground(img, palette.Color{R: 12, G: 200, B: 99}, 255)

	assert.Equal(t, 16*16, alphaCount(img, 0))
}

func TestRemoveBackgroundWindowIsInclusive(t *testing.T) {
	img := fill(3, 1, color.NRGBA{A: 10})
	img.SetNRGBA(0, 0, color.NRGBA{R: 30, G: 0, B: 0, A: 10})
	img.SetNRGBA(1, 0, color.NRGBA{R: 31, G: 0, B: 0, A: 10})

	RemoveBackground(img, palette.Color{}, DefaultTolerance)

	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(255), img.NRGBAAt(1, 0).A)
	assert.Equal(t, uint8(0), img.NRGBAAt(2, 0).A)
}

func TestWhiteRasterKeysToTransparentSentinel(t *testing.T) {
	img := fill(100, 100, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	RemoveBackground(img, palette.Color{R: 255, G: 255, B: 255}, DefaultTolerance)
	require.Equal(t, 100*100, alphaCount(img, 0))

	trimmed := TrimTransparentBorder(img)
	assert.Equal(t, image.Rect(0, 0, 1, 1), trimmed.Bounds())
	assert.Equal(t, color.NRGBA{}, trimmed.NRGBAAt(0, 0))
	assert.True(t, IsBlank(trimmed))
}

func TestTrimTightlyEnclosesForeground(t *testing.T) {
	img := fill(40, 40, color.NRGBA{R: 220, A: 255})
	for y := 10; y < 22; y++ {
		for x := 15; x < 30; x++ {
			img.SetNRGBA(x, y, color.NRGBA{A: 255})
		}
	}

	RemoveBackground(img, palette.Color{R: 220}, DefaultTolerance)
	box, ok := OpaqueBounds(img)
	require.True(t, ok)
	assert.Equal(t, image.Rect(15, 10, 30, 22), box)

	trimmed := TrimTransparentBorder(img)
	assert.Equal(t, image.Rect(0, 0, 15, 12), trimmed.Bounds())
	assert.Equal(t, 15*12, alphaCount(trimmed, 255))
}

func TestTrimIsIdempotent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 30, 20))
	img.SetNRGBA(4, 3, color.NRGBA{R: 9, A: 255})
	img.SetNRGBA(21, 17, color.NRGBA{G: 9, A: 40})

	once := TrimTransparentBorder(img)
	twice := TrimTransparentBorder(once)

	assert.Equal(t, image.Rect(0, 0, 18, 15), once.Bounds())
	assert.Equal(t, once.Bounds(), twice.Bounds())
	assert.Equal(t, once.Pix, twice.Pix)

	blank := TrimTransparentBorder(image.NewNRGBA(image.Rect(0, 0, 5, 5)))
	assert.Equal(t, blank.Pix, TrimTransparentBorder(blank).Pix)
}

func TestTrimHandlesOffsetBounds(t *testing.T) {
	img := fill(20, 20, color.NRGBA{})
	img.SetNRGBA(12, 14, color.NRGBA{B: 200, A: 255})
	sub := img.SubImage(image.Rect(10, 10, 20, 20)).(*image.NRGBA)

	trimmed := TrimTransparentBorder(sub)
	assert.Equal(t, image.Rect(0, 0, 1, 1), trimmed.Bounds())
	assert.Equal(t, color.NRGBA{B: 200, A: 255}, trimmed.NRGBAAt(0, 0))
}
