package imaging

import (
	"image"
	"image/draw"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"io"

	"github.com/nfnt/resize"

	apperrors "github.com/pixelbrush/pixelbrush/internal/errors"
)

// Grid is a resized image as a row-major grid of RGB pixels. Dimensions are
// fixed by the canvas preset and do not change without re-selection.
type Grid struct {
	W, H int
	Pix  []RGB
}

// At returns the pixel at cell (x, y).
func (g *Grid) At(x, y int) RGB {
	return g.Pix[y*g.W+x]
}

// Cells returns the total cell count.
func (g *Grid) Cells() int {
	return g.W * g.H
}

// DecodeGrid reads an encoded image and reduces it to a w×h pixel grid.
// Transparent areas are composited over white before resampling, matching
// what the game canvas shows for unset cells.
func DecodeGrid(r io.Reader, w, h int) (*Grid, error) {
	if w <= 0 || h <= 0 {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid grid size %dx%d", w, h)
	}

	src, _, err := image.Decode(r)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "decode image")
	}
	return ResampleGrid(src, w, h), nil
}

// ResampleGrid reduces a decoded image to a w×h pixel grid.
func ResampleGrid(src image.Image, w, h int) *Grid {
	bounds := src.Bounds()
	flat := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(flat, flat.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), src, bounds.Min, draw.Over)

	small := resize.Resize(uint(w), uint(h), flat, resize.Lanczos3)

	g := &Grid{W: w, H: h, Pix: make([]RGB, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.Pix[y*w+x] = FromColor(small.At(small.Bounds().Min.X+x, small.Bounds().Min.Y+y))
		}
	}
	return g
}
