package palette

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestAnalyzeUniformColorAnyK(t *testing.T) {
	want := color.NRGBA{R: 200, G: 30, B: 60, A: 255}
	img := uniform(64, 48, want)

	for _, base := range []int{1, 3, 4, 6, 8} {
		opts := DefaultOptions()
		opts.BaseClusters = base
		opts.MaxClusters = base

		res, err := Analyze(img, opts)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, res.Score, 1e-9, "k=%d", base)
		assert.InDelta(t, int(want.R), int(res.Color.R), 1)
		assert.InDelta(t, int(want.G), int(res.Color.G), 1)
		assert.InDelta(t, int(want.B), int(res.Color.B), 1)
		assert.Equal(t, base, res.Clusters)
	}
}

func TestAnalyzeBackgroundDominates(t *testing.T) {
	img := uniform(40, 40, color.NRGBA{R: 220, A: 255})
	for y := 12; y < 28; y++ {
		for x := 12; x < 28; x++ {
			img.SetNRGBA(x, y, color.NRGBA{A: 255})
		}
	}

	res, err := Analyze(img, DefaultOptions())
	require.NoError(t, err)
	assert.Greater(t, res.Score, 0.5)
	assert.InDelta(t, 0.84, res.Score, 0.01)
	assert.InDelta(t, 220, int(res.Color.R), 1)
	assert.LessOrEqual(t, int(res.Color.G), 1)
	assert.Equal(t, uint8(73), res.Brightness)
}

func TestAnalyzeDeterministic(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 90, 70))
	for y := 0; y < 70; y++ {
		for x := 0; x < 90; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 2), G: uint8(y * 3), B: uint8((x + y) % 256), A: 255})
		}
	}

	first, err := Analyze(img, DefaultOptions())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Analyze(img, DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAnalyzeDownsamplesLargeRasters(t *testing.T) {
	img := uniform(1200, 600, color.NRGBA{R: 10, G: 120, B: 240, A: 255})

	res, err := Analyze(img, DefaultOptions())
	require.NoError(t, err)
	// 300x150 after downsampling.
	assert.Equal(t, DefaultOptions().ClusterCount(300*150), res.Clusters)
	assert.InDelta(t, 1.0, res.Score, 1e-9)
}

func TestAnalyzeEmptyImage(t *testing.T) {
	_, err := Analyze(image.NewNRGBA(image.Rect(0, 0, 0, 0)), DefaultOptions())
	require.ErrorIs(t, err, ErrEmptyImage)

	_, err = Analyze(nil, DefaultOptions())
	require.ErrorIs(t, err, ErrEmptyImage)
}

func TestClusterCount(t *testing.T) {
	opts := Options{BaseClusters: 3, PixelsPerCluster: 5000, MaxClusters: 6}
	cases := map[int]int{
		0:      3,
		4999:   3,
		5000:   4,
		12000:  5,
		90000:  6,
		500000: 6,
	}
	for pixels, want := range cases {
		assert.Equal(t, want, opts.ClusterCount(pixels), "pixels=%d", pixels)
	}
}

func TestColorHelpers(t *testing.T) {
	c := Color{R: 255, G: 254, B: 250}
	assert.Equal(t, uint8(253), c.Brightness())
	assert.Equal(t, "#fffefa", c.Hex())
	assert.Equal(t, "rgb(255,254,250)", c.CSS())

	r, g, b, a := c.RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xfefe), g)
	assert.Equal(t, uint32(0xfafa), b)
	assert.Equal(t, uint32(0xffff), a)
}
