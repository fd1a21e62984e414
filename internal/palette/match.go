package palette

import (
	apperrors "github.com/pixelbrush/pixelbrush/internal/errors"
	"github.com/pixelbrush/pixelbrush/internal/imaging"
)

// ShadeRef identifies one shade within the palette by swatch and shade index.
type ShadeRef struct {
	Swatch int `json:"swatch"`
	Shade  int `json:"shade"`
}

// Assignment is an ephemeral paint job: every grid cell mapped to its matched
// shade. Computed fresh for each paint request.
type Assignment struct {
	W, H  int
	Cells []ShadeRef // row-major
}

// At returns the assigned shade for cell (x, y).
func (a *Assignment) At(x, y int) ShadeRef {
	return a.Cells[y*a.W+x]
}

// Match returns the shade minimizing squared Euclidean RGB distance to c.
// Ties resolve to the first shade encountered in palette insertion order, so
// results are deterministic and stable. An empty palette is a precondition
// violation and fails before any matching.
func (p *Palette) Match(c imaging.RGB) (ShadeRef, error) {
	if p == nil || p.NumShades() == 0 {
		return ShadeRef{}, apperrors.New(apperrors.CodePaletteNotConfigured, "no palette swatches captured")
	}

	best := ShadeRef{}
	bestDist := -1
	for si := range p.Swatches {
		for hi := range p.Swatches[si].Shades {
			d := c.Dist2(p.Swatches[si].Shades[hi].RGB)
			if bestDist < 0 || d < bestDist {
				bestDist = d
				best = ShadeRef{Swatch: si, Shade: hi}
			}
		}
	}
	return best, nil
}

// MatchGrid matches every pixel of a grid, memoizing repeated RGB values.
// Pixel-art inputs repeat a handful of colors, so the cache collapses the
// search to one lookup per distinct color.
func (p *Palette) MatchGrid(g *imaging.Grid) (*Assignment, error) {
	if err := p.Configured(); err != nil {
		return nil, err
	}

	assign := &Assignment{W: g.W, H: g.H, Cells: make([]ShadeRef, g.Cells())}
	cache := make(map[imaging.RGB]ShadeRef)
	for i, px := range g.Pix {
		ref, ok := cache[px]
		if !ok {
			var err error
			ref, err = p.Match(px)
			if err != nil {
				return nil, err
			}
			cache[px] = ref
		}
		assign.Cells[i] = ref
	}
	return assign, nil
}
