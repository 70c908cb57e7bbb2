package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Box is a labelled rectangle drawn by Annotate.
type Box struct {
	Label      string
	Confidence float64
	X1, Y1     float64
	X2, Y2     float64
}

// AnnotateResult contains the annotated image.
type AnnotateResult struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	PNG      []byte `json:"-"`
	MimeType string `json:"mime_type"`
}

// boxThickness is the outline width in pixels.
const boxThickness = 3

// Annotate draws every box onto a copy of img with a caption
// "<label> <confidence>" above its top-left corner.
//
// Each distinct label gets its own color. Colors are spread evenly around the
// hue circle in order of first appearance in palette, so the same label list
// always renders with the same colors. Labels missing from palette are drawn
// in gray.
func Annotate(img image.Image, boxes []Box, palette []string) (*AnnotateResult, error) {
	bounds := img.Bounds()

	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	colors := labelColors(palette)

	for _, b := range boxes {
		c, ok := colors[b.Label]
		if !ok {
			c = color.RGBA{128, 128, 128, 255}
		}
		r := image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2)).Intersect(bounds)
		if r.Empty() {
			continue
		}
		drawRect(result, r, c)
		drawLabel(result, r.Min.X, r.Min.Y, fmt.Sprintf("%s %.2f", b.Label, b.Confidence), color.RGBA{255, 255, 255, 255}, c)
	}

	data, err := EncodePNG(result)
	if err != nil {
		return nil, err
	}

	dims := Dimensions(result)
	return &AnnotateResult{
		Width:    dims.Width,
		Height:   dims.Height,
		PNG:      data,
		MimeType: "image/png",
	}, nil
}

// labelColors assigns an evenly spaced HCL hue to every label.
func labelColors(labels []string) map[string]color.RGBA {
	colors := make(map[string]color.RGBA, len(labels))
	n := len(labels)
	for i, label := range labels {
		if _, seen := colors[label]; seen {
			continue
		}
		hue := 360.0 * float64(i) / float64(n)
		c := colorful.Hcl(hue, 0.6, 0.55).Clamped()
		r, g, b := c.RGB255()
		colors[label] = color.RGBA{r, g, b, 255}
	}
	return colors
}

func drawRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for t := 0; t < boxThickness; t++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			setIn(img, x, r.Min.Y+t, c)
			setIn(img, x, r.Max.Y-1-t, c)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			setIn(img, r.Min.X+t, y, c)
			setIn(img, r.Max.X-1-t, y, c)
		}
	}
}

// drawLabel draws text on a filled background whose bottom edge sits at y.
// When there is no room above the box the caption goes inside it.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	face := basicfont.Face7x13
	labelWidth := font.MeasureString(face, text).Ceil() + 4
	labelHeight := face.Metrics().Height.Ceil() + 2

	top := y - labelHeight
	if top < img.Bounds().Min.Y {
		top = y
	}

	for dy := 0; dy < labelHeight; dy++ {
		for dx := 0; dx < labelWidth; dx++ {
			setIn(img, x+dx, top+dy, bg)
		}
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x+2, top+face.Metrics().Ascent.Ceil()+1),
	}
	d.DrawString(text)
}

func setIn(img *image.RGBA, x, y int, c color.Color) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.Set(x, y, c)
	}
}
