// Package palette finds the dominant color of a raster by clustering its
// pixels in CIE Lab space.
//
// The most populous cluster is reported as the background candidate. This
// holds for typical logo photography; a logo that is mostly one flat
// foreground color will be reported the same way.
package palette

import (
	"errors"
	"image"
	"image/color"
	"sort"

	xdraw "golang.org/x/image/draw"
)

var (
	ErrEmptyImage = errors.New("palette: raster has no pixels")
	ErrNoClusters = errors.New("palette: clustering produced no clusters")
)

type Result struct {
	Color Color
	// Score is the share of pixels assigned to the winning cluster.
	Score      float64
	Brightness uint8
	Clusters   int
}

// Analyze clusters the raster's colors and returns the dominant cluster.
// It never mutates img.
func Analyze(img image.Image, opts Options) (Result, error) {
	opts = opts.normalized()
	if img == nil || img.Bounds().Empty() {
		return Result{}, ErrEmptyImage
	}

	src := downsample(img, opts.MaxDimension)
	samples, total := collectSamples(src)
	if total == 0 {
		return Result{}, ErrEmptyImage
	}

	k := opts.ClusterCount(total)
	clusters := kmeans(samples, k, opts.MaxIterations, opts.Delta, opts.Seed)
	if len(clusters) == 0 {
		return Result{}, ErrNoClusters
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].weight > clusters[j].weight
	})

	top := clusters[0]
	dominant := fromLab(top.center)
	return Result{
		Color:      dominant,
		Score:      top.weight / float64(total),
		Brightness: dominant.Brightness(),
		Clusters:   k,
	}, nil
}

func downsample(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longer := max(w, h)
	if maxDim <= 0 || longer <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(longer)
	dw := max(1, int(float64(w)*scale+0.5))
	dh := max(1, int(float64(h)*scale+0.5))
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// collectSamples folds the raster into one weighted Lab sample per distinct
// color, ordered by packed RGB so clustering input is stable.
func collectSamples(img image.Image) ([]sample, int) {
	counts := make(map[uint32]int)
	total := 0

	if nrgba, ok := img.(*image.NRGBA); ok {
		b := nrgba.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := nrgba.Pix[nrgba.PixOffset(b.Min.X, y):nrgba.PixOffset(b.Max.X, y)]
			for i := 0; i+3 < len(row); i += 4 {
				counts[pack(row[i], row[i+1], row[i+2])]++
				total++
			}
		}
	} else {
		b := img.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				counts[pack(c.R, c.G, c.B)]++
				total++
			}
		}
	}

	keys := make([]uint32, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	samples := make([]sample, len(keys))
	for i, key := range keys {
		samples[i] = sample{
			lab:    toLab(uint8(key>>16), uint8(key>>8), uint8(key)),
			weight: float64(counts[key]),
		}
	}
	return samples, total
}

func pack(r, g, b uint8) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}
