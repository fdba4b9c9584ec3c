package annotate

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blank(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xFF
	}
	return img
}

func countColor(img *image.RGBA, r image.Rectangle, c color.RGBA) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y) == c {
				n++
			}
		}
	}
	return n
}

func TestCaption(t *testing.T) {
	tests := []struct {
		label int
		want  string
	}{
		{0, "ID: 0"},
		{12, "ID: 12"},
		{-1, "?"},
	}
	for _, tc := range tests {
		if got := Caption(tc.label); got != tc.want {
			t.Errorf("Caption(%d) = %q, want %q", tc.label, got, tc.want)
		}
	}
}

func TestDraw_BoxAndCaption(t *testing.T) {
	src := blank(100, 100)
	out := Draw(src, []Box{{BBox: []float64{20, 40, 60, 80}, Label: 3}})

	black := color.RGBA{A: 255}
	assert.Equal(t, matchedColor, out.RGBAAt(20, 40), "top-left corner")
	assert.Equal(t, matchedColor, out.RGBAAt(40, 41), "top edge second row")
	assert.Equal(t, matchedColor, out.RGBAAt(59, 60), "right edge")
	assert.Equal(t, matchedColor, out.RGBAAt(40, 79), "bottom edge")
	assert.Equal(t, black, out.RGBAAt(40, 60), "interior")
	assert.Equal(t, black, out.RGBAAt(22, 60), "inside border")

	// caption sits above the box
	assert.Positive(t, countColor(out, image.Rect(20, 20, 70, 40), matchedColor))
	// the source image is left untouched
	assert.Equal(t, black, src.RGBAAt(20, 40))
}

func TestDraw_RejectedFaceIsRed(t *testing.T) {
	out := Draw(blank(50, 50), []Box{{BBox: []float64{10, 20, 40, 45}, Label: -1}})
	assert.Equal(t, rejectedColor, out.RGBAAt(10, 20))
	assert.Zero(t, countColor(out, out.Bounds(), matchedColor))
}

func TestDraw_ClipsToBounds(t *testing.T) {
	out := Draw(blank(30, 30), []Box{{BBox: []float64{-10, -10, 500, 500}, Label: 0}})
	assert.Equal(t, matchedColor, out.RGBAAt(0, 0))
	assert.Equal(t, matchedColor, out.RGBAAt(29, 29))
	// caption moves inside the box when there is no room above
	assert.Positive(t, countColor(out, image.Rect(2, 2, 28, 20), matchedColor))
}

func TestDraw_SkipsInvalidBoxes(t *testing.T) {
	boxes := []Box{
		{BBox: []float64{1, 2, 3}, Label: 0},
		{BBox: []float64{math.NaN(), 0, 10, 10}, Label: 0},
		{BBox: []float64{200, 200, 300, 300}, Label: 0},
	}
	out := Draw(blank(40, 40), boxes)
	require.NotNil(t, out)
	assert.Zero(t, countColor(out, out.Bounds(), matchedColor))
}

func TestDraw_NonZeroOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(100, 100, 150, 150))
	out := Draw(src, []Box{{BBox: []float64{110, 120, 140, 145}, Label: 1}})
	assert.Equal(t, src.Bounds(), out.Bounds())
	assert.Equal(t, matchedColor, out.RGBAAt(110, 120))
}
