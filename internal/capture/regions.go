package capture

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// Region is a sub-rectangle of an image given as fractions of its width
// and height.
type Region struct {
	Name                string
	X, Y, Width, Height float64
}

// DefaultRegions lists where camera apps usually stamp the date, most
// likely first.
var DefaultRegions = []Region{
	{Name: "bottom-right", X: 0.55, Y: 0.75, Width: 0.45, Height: 0.25},
	{Name: "bottom-left", X: 0, Y: 0.75, Width: 0.45, Height: 0.25},
	{Name: "bottom-band", X: 0, Y: 0.65, Width: 1, Height: 0.35},
}

// Rect maps the region onto bounds, flooring each edge to whole pixels.
func (r Region) Rect(bounds image.Rectangle) image.Rectangle {
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	x0 := bounds.Min.X + int(math.Floor(w*r.X))
	y0 := bounds.Min.Y + int(math.Floor(h*r.Y))
	rect := image.Rect(x0, y0, x0+int(math.Floor(w*r.Width)), y0+int(math.Floor(h*r.Height)))
	return rect.Intersect(bounds)
}

// Preprocess defaults tuned for light watermark text on photographs.
const (
	DefaultScale     = 3
	DefaultThreshold = 190
)

// Luminance returns the ITU-R BT.601 luma of an 8-bit RGB triple.
func Luminance(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// Preprocess crops rect out of src, upscales it by scale with nearest
// neighbour sampling and hard-thresholds every pixel: luma above threshold
// becomes white, everything else black.
func Preprocess(src image.Image, rect image.Rectangle, scale int, threshold float64) *image.Gray {
	if scale < 1 {
		scale = 1
	}
	dw := max(1, rect.Dx()*scale)
	dh := max(1, rect.Dy()*scale)

	scaled := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	if !rect.Empty() {
		draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), src, rect, draw.Src, nil)
	}

	out := image.NewGray(scaled.Bounds())
	for y := 0; y < dh; y++ {
		row := scaled.Pix[y*scaled.Stride:]
		for x := 0; x < dw; x++ {
			p := row[x*4:]
			v := uint8(0)
			if Luminance(p[0], p[1], p[2]) > threshold {
				v = 255
			}
			out.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return out
}
