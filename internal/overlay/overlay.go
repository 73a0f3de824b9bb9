package overlay

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/PratikDhanave/passcount/internal/tracker"
)

// Cyan is the default annotation color.
var Cyan = color.RGBA{R: 0x00, G: 0xff, B: 0xff, A: 0xff}

var font *truetype.Font

func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Renderer draws detection annotations onto frames.
type Renderer struct {
	Color     color.Color
	LineWidth float64
	FontSize  float64
}

// NewRenderer returns a Renderer with 2px cyan boxes and 18pt labels.
func NewRenderer() *Renderer {
	return &Renderer{Color: Cyan, LineWidth: 2, FontSize: 18}
}

// Draw returns a copy of img with every annotation's box and label drawn on it.
func (r *Renderer) Draw(img image.Image, annotations []tracker.Annotation) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: r.FontSize}))
	dc.SetColor(r.Color)
	dc.SetLineWidth(r.LineWidth)

	for _, a := range annotations {
		dc.DrawRectangle(a.Box.X, a.Box.Y, a.Box.Width, a.Box.Height)
		dc.Stroke()
		dc.DrawString(a.Label, a.LabelX, a.LabelY)
	}
	return dc.Image()
}
