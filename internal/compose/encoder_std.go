//go:build !govips || !cgo

package compose

import (
	"image"
)

func Startup() error {
	return nil
}

func Shutdown() {}

func newEncoder() Encoder {
	return stdlibEncoder{}
}

type stdlibEncoder struct{}

func (stdlibEncoder) EncodePNG(img image.Image) ([]byte, error) {
	return encodeBestPNG(img)
}
