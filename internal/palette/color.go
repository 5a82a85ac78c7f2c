package palette

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an opaque 8-bit sRGB color.
type Color struct {
	R, G, B uint8
}

func (c Color) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}.RGBA()
}

// Brightness is the rounded mean of the three channels.
func (c Color) Brightness() uint8 {
	return uint8(math.Round(float64(int(c.R)+int(c.G)+int(c.B)) / 3))
}

func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// CSS renders the color as an SVG/CSS rgb() functional value.
func (c Color) CSS() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

func toLab(r, g, b uint8) [3]float64 {
	l, a, bb := colorful.Color{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
	}.Lab()
	return [3]float64{l, a, bb}
}

func fromLab(lab [3]float64) Color {
	r, g, b := colorful.Lab(lab[0], lab[1], lab[2]).Clamped().RGB255()
	return Color{R: r, G: g, B: b}
}
