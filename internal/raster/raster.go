// Package raster resolves, decodes and normalizes the logo images the
// pipeline consumes.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	ErrNotFound = errors.New("raster not found")
	ErrDecode   = errors.New("raster decode failed")
)

// Extensions is the probe order used when a path has no extension.
var Extensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".ico"}

// ResolvePath returns base itself when it names a regular file, otherwise the
// first base+ext that exists for ext in Extensions.
func ResolvePath(base string) (string, error) {
	if isFile(base) {
		return base, nil
	}
	for _, ext := range Extensions {
		candidate := base + ext
		if isFile(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s.{%s}", ErrNotFound, base, strings.Join(trimDots(Extensions), ","))
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func trimDots(exts []string) []string {
	out := make([]string, len(exts))
	for i, ext := range exts {
		out[i] = strings.TrimPrefix(ext, ".")
	}
	return out
}

// Decode parses any registered raster format.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if img.Bounds().Empty() {
		return nil, "", fmt.Errorf("%w: empty %s image", ErrDecode, format)
	}
	return img, format, nil
}

// LoadFile resolves base and decodes the file it points at.
func LoadFile(base string) (image.Image, string, error) {
	path, err := ResolvePath(base)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	img, _, err := Decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return img, path, nil
}

// ToNRGBA returns a copy of img as non-premultiplied RGBA anchored at the
// origin.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// FlattenOnWhite returns an opaque copy of img where every pixel that was not
// fully opaque becomes white.
func FlattenOnWhite(img image.Image) *image.NRGBA {
	dst := ToNRGBA(img)
	white := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	for i := 0; i+3 < len(dst.Pix); i += 4 {
		if dst.Pix[i+3] != 0xff {
			dst.Pix[i] = white.R
			dst.Pix[i+1] = white.G
			dst.Pix[i+2] = white.B
			dst.Pix[i+3] = white.A
		}
	}
	return dst
}
