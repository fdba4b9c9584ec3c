// Package annotate draws face boxes and identity captions onto frames.
package annotate

import (
	"image"
	"image/color"
	"math"
	"strconv"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// Thickness is the border width of a face box in pixels.
	Thickness = 2
	// captionGap is the space between a box edge and its caption baseline.
	captionGap = 4
)

var (
	matchedColor  = color.RGBA{G: 255, A: 255}
	rejectedColor = color.RGBA{R: 255, A: 255}
)

// Box is one face to draw. Label < 0 marks a face without identity.
type Box struct {
	BBox  []float64 // [x1, y1, x2, y2] in pixels
	Label int
}

// Caption returns the text drawn next to a box.
func Caption(label int) string {
	if label < 0 {
		return "?"
	}
	return "ID: " + strconv.Itoa(label)
}

// Draw returns a copy of src with every box and its caption drawn on it.
func Draw(src image.Image, boxes []Box) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	for _, b := range boxes {
		r, ok := pixelRect(b.BBox, bounds)
		if !ok {
			continue
		}
		c := matchedColor
		if b.Label < 0 {
			c = rejectedColor
		}
		drawRect(dst, r, c)
		drawCaption(dst, r, Caption(b.Label), c)
	}
	return dst
}

// pixelRect converts a corner bbox to a rectangle clipped to bounds.
func pixelRect(bbox []float64, bounds image.Rectangle) (image.Rectangle, bool) {
	if len(bbox) != 4 {
		return image.Rectangle{}, false
	}
	for _, v := range bbox {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return image.Rectangle{}, false
		}
	}
	r := image.Rect(
		int(math.Round(bbox[0])), int(math.Round(bbox[1])),
		int(math.Round(bbox[2])), int(math.Round(bbox[3])),
	).Intersect(bounds)
	return r, !r.Empty()
}

func drawRect(dst draw.Image, r image.Rectangle, c color.Color) {
	u := image.NewUniform(c)
	t := min(Thickness, r.Dx(), r.Dy())
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), // top
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), // bottom
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), // left
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), // right
	}
	for _, e := range edges {
		draw.Draw(dst, e, u, image.Point{}, draw.Src)
	}
}

// drawCaption writes text above the box, or just inside its top edge when there
// is no room above.
func drawCaption(dst draw.Image, r image.Rectangle, text string, c color.Color) {
	face := basicfont.Face7x13
	ascent := face.Metrics().Ascent.Ceil()

	y := r.Min.Y - captionGap
	if y-ascent < dst.Bounds().Min.Y {
		y = r.Min.Y + Thickness + ascent + 1
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(r.Min.X, y),
	}
	d.DrawString(text)
}
