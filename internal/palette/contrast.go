package palette

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/pixelbrush/pixelbrush/internal/imaging"
)

// Shades within one swatch should stay visually distinguishable or the
// matcher degenerates to coin flips between them. Lab distance below this is
// hard to tell apart by eye; advisory only, nothing is enforced.
const minShadeLabDistance = 0.02

// ShadeClash reports two shades of a swatch that are visually too close.
type ShadeClash struct {
	Swatch   string
	A, B     string
	Distance float64
}

func toColorful(c imaging.RGB) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

// CheckShadeContrast returns every pair of shades within a swatch whose Lab
// distance falls under the advisory threshold.
func (p *Palette) CheckShadeContrast() []ShadeClash {
	var clashes []ShadeClash
	for i := range p.Swatches {
		sw := &p.Swatches[i]
		for a := 0; a < len(sw.Shades); a++ {
			for b := a + 1; b < len(sw.Shades); b++ {
				d := toColorful(sw.Shades[a].RGB).DistanceLab(toColorful(sw.Shades[b].RGB))
				if d < minShadeLabDistance {
					clashes = append(clashes, ShadeClash{
						Swatch:   sw.Name,
						A:        sw.Shades[a].Name,
						B:        sw.Shades[b].Name,
						Distance: d,
					})
				}
			}
		}
	}
	return clashes
}
