package compose

import "fmt"

// Transform places the logo layer on the canvas: scale first, then offset.
type Transform struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

func Identity() Transform {
	return Transform{Scale: 1}
}

func (t Transform) IsIdentity() bool {
	return t == Identity()
}

// ShrinkToFit scales a w×h box to fit the canvas, shrinks it by shrink and
// centers the result.
func ShrinkToFit(w, h, canvas int, shrink float64) Transform {
	if w <= 0 || h <= 0 {
		return Identity()
	}
	c := float64(canvas)
	scale := min(c/float64(w), c/float64(h)) * shrink
	return Transform{
		Scale:   scale,
		OffsetX: (c - float64(w)*scale) / 2,
		OffsetY: (c - float64(h)*scale) / 2,
	}
}

// Attr renders the SVG transform attribute value.
func (t Transform) Attr() string {
	return fmt.Sprintf("translate(%.2f, %.2f) scale(%.2f)", t.OffsetX, t.OffsetY, t.Scale)
}
