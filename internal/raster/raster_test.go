package raster

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func buildTestPNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestResolvePathProbesExtensionsInOrder(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "42")
	for _, name := range []string{"42.webp", "42.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	got, err := ResolvePath(base)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if want := base + ".jpg"; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	exact := filepath.Join(dir, "42.webp")
	if got, err := ResolvePath(exact); err != nil || got != exact {
		t.Fatalf("expected exact path %s, got %s (%v)", exact, got, err)
	}
}

func TestResolvePathNotFound(t *testing.T) {
	_, err := ResolvePath(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadFileDecodesAndReportsPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "7.png"), buildTestPNG(t, 5, 3, color.NRGBA{R: 1, A: 255}), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}

	img, path, err := LoadFile(filepath.Join(dir, "7"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if filepath.Base(path) != "7.png" {
		t.Fatalf("unexpected resolved path %s", path)
	}
	if img.Bounds().Dx() != 5 || img.Bounds().Dy() != 3 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, _, err := Decode([]byte("definitely not an image"))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestFlattenOnWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(2, 2, 5, 3))
	img.SetNRGBA(2, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	img.SetNRGBA(3, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 254})

	flat := FlattenOnWhite(img)
	if flat.Bounds() != image.Rect(0, 0, 3, 1) {
		t.Fatalf("expected origin-anchored bounds, got %v", flat.Bounds())
	}
	if got := flat.NRGBAAt(0, 0); got != (color.NRGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Fatalf("opaque pixel changed: %v", got)
	}
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	if got := flat.NRGBAAt(1, 0); got != white {
		t.Fatalf("translucent pixel not flattened: %v", got)
	}
	if got := flat.NRGBAAt(2, 0); got != white {
		t.Fatalf("transparent pixel not flattened: %v", got)
	}
}

func icoContainer(width, height int, payload []byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{0, 1, 1})
	buf.Write([]byte{byte(width), byte(height), 0, 0})
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{1, 32})
	_ = binary.Write(&buf, binary.LittleEndian, []uint32{uint32(len(payload)), icoDirSize + icoEntrySize})
	buf.Write(payload)
	return buf.Bytes()
}

func TestDecodeICOWithPNGPayload(t *testing.T) {
	data := icoContainer(4, 4, buildTestPNG(t, 4, 4, color.NRGBA{G: 200, A: 255}))

	img, format, err := Decode(data)
	if err != nil {
		t.Fatalf("decode ico: %v", err)
	}
	if format != "ico" {
		t.Fatalf("expected ico format, got %s", format)
	}
	r, g, _, _ := img.At(1, 1).RGBA()
	if r != 0 || g>>8 != 200 {
		t.Fatalf("unexpected pixel %v", img.At(1, 1))
	}
}

func TestDecodeICOWith32BitDIB(t *testing.T) {
	const w, h = 2, 2
	var dib bytes.Buffer
	_ = binary.Write(&dib, binary.LittleEndian, uint32(dibInfoSize))
	_ = binary.Write(&dib, binary.LittleEndian, int32(w))
	_ = binary.Write(&dib, binary.LittleEndian, int32(h*2))
	_ = binary.Write(&dib, binary.LittleEndian, uint16(1))
	_ = binary.Write(&dib, binary.LittleEndian, uint16(32))
	dib.Write(make([]byte, dibInfoSize-16))
	// Bottom-up BGRA rows: bottom row red, top row half-transparent blue.
	dib.Write([]byte{0, 0, 255, 255, 0, 0, 255, 255})
	dib.Write([]byte{255, 0, 0, 128, 255, 0, 0, 128})
	dib.Write(make([]byte, 4*h))

	img, _, err := Decode(icoContainer(w, h, dib.Bytes()))
	if err != nil {
		t.Fatalf("decode ico: %v", err)
	}
	nrgba := ToNRGBA(img)
	if got := nrgba.NRGBAAt(0, 0); got != (color.NRGBA{B: 255, A: 128}) {
		t.Fatalf("unexpected top-left pixel %v", got)
	}
	if got := nrgba.NRGBAAt(1, 1); got != (color.NRGBA{R: 255, A: 255}) {
		t.Fatalf("unexpected bottom-right pixel %v", got)
	}
}
