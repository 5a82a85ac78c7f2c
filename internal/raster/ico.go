package raster

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
)

const (
	icoDirSize   = 6
	icoEntrySize = 16
	dibInfoSize  = 40
	bmpFileSize  = 14
)

var (
	errICOHeader = errors.New("ico: invalid header")
	errICOEntry  = errors.New("ico: entry out of range")
	pngSignature = []byte("\x89PNG\r\n\x1a\n")
)

func init() {
	image.RegisterFormat("ico", "\x00\x00\x01\x00", decodeICO, decodeICOConfig)
}

type icoEntry struct {
	width, height int
	bitCount      int
	size, offset  uint32
}

// readICO returns the container bytes and its largest entry.
func readICO(r io.Reader) ([]byte, icoEntry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, icoEntry{}, err
	}
	if len(data) < icoDirSize || binary.LittleEndian.Uint16(data[2:4]) != 1 {
		return nil, icoEntry{}, errICOHeader
	}
	count := int(binary.LittleEndian.Uint16(data[4:6]))
	if count == 0 || len(data) < icoDirSize+count*icoEntrySize {
		return nil, icoEntry{}, errICOHeader
	}

	var best icoEntry
	for i := 0; i < count; i++ {
		raw := data[icoDirSize+i*icoEntrySize:]
		e := icoEntry{
			width:    int(raw[0]),
			height:   int(raw[1]),
			bitCount: int(binary.LittleEndian.Uint16(raw[6:8])),
			size:     binary.LittleEndian.Uint32(raw[8:12]),
			offset:   binary.LittleEndian.Uint32(raw[12:16]),
		}
		if e.width == 0 {
			e.width = 256
		}
		if e.height == 0 {
			e.height = 256
		}
		if i == 0 || e.width*e.height > best.width*best.height ||
			(e.width*e.height == best.width*best.height && e.bitCount > best.bitCount) {
			best = e
		}
	}
	if uint64(best.offset)+uint64(best.size) > uint64(len(data)) {
		return nil, icoEntry{}, errICOEntry
	}
	return data, best, nil
}

func decodeICOConfig(r io.Reader) (image.Config, error) {
	_, e, err := readICO(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.NRGBAModel, Width: e.width, Height: e.height}, nil
}

func decodeICO(r io.Reader) (image.Image, error) {
	data, e, err := readICO(r)
	if err != nil {
		return nil, err
	}
	payload := data[e.offset : e.offset+e.size]
	if bytes.HasPrefix(payload, pngSignature) {
		return png.Decode(bytes.NewReader(payload))
	}
	return decodeDIB(payload)
}

// decodeDIB decodes a headerless BMP whose height covers both the color
// bitmap and the 1bpp transparency mask below it.
func decodeDIB(payload []byte) (image.Image, error) {
	if len(payload) < dibInfoSize {
		return nil, errICOEntry
	}
	headerSize := int(binary.LittleEndian.Uint32(payload[0:4]))
	width := int(int32(binary.LittleEndian.Uint32(payload[4:8])))
	height := int(int32(binary.LittleEndian.Uint32(payload[8:12]))) / 2
	bitCount := int(binary.LittleEndian.Uint16(payload[14:16]))
	colorsUsed := int(binary.LittleEndian.Uint32(payload[32:36]))
	if headerSize < dibInfoSize || width <= 0 || height <= 0 || headerSize > len(payload) {
		return nil, fmt.Errorf("ico: unsupported bitmap header")
	}

	paletteSize := 0
	if bitCount <= 8 {
		if colorsUsed == 0 {
			colorsUsed = 1 << bitCount
		}
		paletteSize = colorsUsed * 4
	}
	pixelOffset := headerSize + paletteSize
	rowSize := ((width*bitCount + 31) / 32) * 4
	maskRowSize := ((width + 31) / 32) * 4
	if pixelOffset+rowSize*height > len(payload) {
		return nil, errICOEntry
	}

	var img *image.NRGBA
	if bitCount == 32 {
		img = decodeBGRA(payload[pixelOffset:], width, height, rowSize)
	} else {
		decoded, err := decodeViaBMP(payload, pixelOffset, height)
		if err != nil {
			return nil, err
		}
		img = ToNRGBA(decoded)
	}

	maskOffset := pixelOffset + rowSize*height
	if bitCount != 32 && maskOffset+maskRowSize*height <= len(payload) {
		applyMask(img, payload[maskOffset:], width, height, maskRowSize)
	}
	return img, nil
}

func decodeBGRA(pix []byte, width, height, rowSize int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := pix[(height-1-y)*rowSize:]
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: row[x*4+2], G: row[x*4+1], B: row[x*4], A: row[x*4+3]})
		}
	}
	return img
}

// decodeViaBMP prepends a BMP file header and hands the bitmap to x/image/bmp.
func decodeViaBMP(payload []byte, pixelOffset, height int) (image.Image, error) {
	file := make([]byte, bmpFileSize+len(payload))
	file[0], file[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(file[2:6], uint32(len(file)))
	binary.LittleEndian.PutUint32(file[10:14], uint32(bmpFileSize+pixelOffset))
	copy(file[bmpFileSize:], payload)
	binary.LittleEndian.PutUint32(file[bmpFileSize+8:bmpFileSize+12], uint32(height))
	img, err := bmp.Decode(bytes.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("ico: %w", err)
	}
	return img, nil
}

func applyMask(img *image.NRGBA, mask []byte, width, height, rowSize int) {
	for y := 0; y < height; y++ {
		row := mask[(height-1-y)*rowSize:]
		for x := 0; x < width; x++ {
			if row[x/8]&(0x80>>(x%8)) != 0 {
				img.Pix[img.PixOffset(x, y)+3] = 0
			}
		}
	}
}
