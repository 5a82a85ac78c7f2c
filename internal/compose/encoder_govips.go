//go:build govips && cgo

package compose

import (
	"fmt"
	"image"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
)

var (
	startupOnce sync.Once
	shutdownMu  sync.Mutex
	started     bool
)

func Startup() error {
	startupOnce.Do(func() {
		vips.Startup(&vips.Config{
			MaxCacheFiles: 0,
			MaxCacheMem:   128 * 1024 * 1024,
			MaxCacheSize:  100,
		})

		shutdownMu.Lock()
		started = true
		shutdownMu.Unlock()
	})
	return nil
}

func Shutdown() {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if !started {
		return
	}
	vips.Shutdown()
	started = false
}

func newEncoder() Encoder {
	return govipsEncoder{}
}

// govipsEncoder recompresses the stdlib PNG through libvips, which strips
// metadata and searches filters more aggressively.
type govipsEncoder struct{}

func (govipsEncoder) EncodePNG(img image.Image) ([]byte, error) {
	data, err := encodeBestPNG(img)
	if err != nil {
		return nil, err
	}

	ref, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, fmt.Errorf("load png into vips: %w", err)
	}
	defer ref.Close()

	params := vips.NewPngExportParams()
	params.Compression = 9
	params.StripMetadata = true
	params.Interlace = false
	out, _, err := ref.ExportPng(params)
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	if len(out) >= len(data) {
		return data, nil
	}
	return out, nil
}
