package compose

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"io"
	"strconv"

	"github.com/dunamismax/logocrunch/internal/palette"
)

// Document is one finished logo canvas.
type Document struct {
	Title      string
	Size       int
	Background palette.Color
	// Transform places a canvas-sized viewport that the layer fits itself
	// into. LogoScale reports the resulting scale of the logo pixels.
	Transform  Transform
	Layer      LogoLayer
}

func (d Document) Representation() string {
	if d.Layer == nil {
		return ""
	}
	return d.Layer.Representation()
}

// LogoScale is the factor applied to the layer's pixel coordinates:
// min(Size/w, Size/h) * Transform.Scale.
func (d Document) LogoScale() float64 {
	var w, h int
	switch layer := d.Layer.(type) {
	case VectorLayer:
		w, h = layer.Width, layer.Height
	case RasterLayer:
		w, h = layer.Width, layer.Height
	}
	if w <= 0 || h <= 0 {
		return d.Transform.Scale
	}
	return ShrinkToFit(w, h, d.Size, d.Transform.Scale).Scale
}

// Bytes serializes the document. The output depends only on the document's
// fields.
func (d Document) Bytes() []byte {
	var b bytes.Buffer
	size := strconv.Itoa(d.Size)

	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" version="1.1"`)
	b.WriteString(` width="` + size + `" height="` + size + `" viewBox="0 0 ` + size + ` ` + size + `">`)
	b.WriteString(`<title>`)
	_ = xml.EscapeText(&b, []byte(d.Title))
	b.WriteString(`</title>`)
	b.WriteString(`<rect width="100%" height="100%" fill="` + d.Background.CSS() + `"/>`)
	b.WriteString(`<g transform="` + d.Transform.Attr() + `">`)

	switch layer := d.Layer.(type) {
	case VectorLayer:
		b.WriteString(`<svg width="` + size + `" height="` + size + `" viewBox="0 0 ` +
			strconv.Itoa(layer.Width) + ` ` + strconv.Itoa(layer.Height) + `" preserveAspectRatio="xMidYMid meet">`)
		b.WriteString(layer.Markup)
		b.WriteString(`</svg>`)
	case RasterLayer:
		b.WriteString(`<image width="` + size + `" height="` + size + `" preserveAspectRatio="xMidYMid meet" xlink:href="data:image/png;base64,`)
		enc := base64.NewEncoder(base64.StdEncoding, &b)
		_, _ = enc.Write(layer.PNG)
		_ = enc.Close()
		b.WriteString(`"/>`)
	}

	b.WriteString(`</g></svg>`)
	b.WriteByte('\n')
	return b.Bytes()
}

func (d Document) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d.Bytes())
	return int64(n), err
}
