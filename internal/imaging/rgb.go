// Package imaging converts raster images into the logical pixel grid that
// the paint planner consumes.
package imaging

import (
	"fmt"
	"image/color"
)

// RGB is an 8-bit sampled color. Swatches, screen samples and grid pixels
// all use this representation.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// FromColor converts any color.Color, flattening alpha.
func FromColor(c color.Color) RGB {
	r, g, b, _ := c.RGBA()
	return RGB{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
}

// Dist2 returns the squared Euclidean distance to other in RGB space.
func (c RGB) Dist2(other RGB) int {
	dr := int(c.R) - int(other.R)
	dg := int(c.G) - int(other.G)
	db := int(c.B) - int(other.B)
	return dr*dr + dg*dg + db*db
}

// SwapRB returns the color with red and blue channels exchanged. Used by the
// palette repair operation for swatches captured from a BGR-ordered source.
func (c RGB) SwapRB() RGB {
	return RGB{R: c.B, G: c.G, B: c.R}
}

// Hex returns the #rrggbb form.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
