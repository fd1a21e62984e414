// Package palette models captured in-game palette swatches and matches image
// pixels to the closest captured shade.
package palette

import (
	"image"

	apperrors "github.com/pixelbrush/pixelbrush/internal/errors"
	"github.com/pixelbrush/pixelbrush/internal/imaging"
)

// Shade is one shade button inside a swatch's shades panel, with the RGB
// sampled from the screen at capture time.
type Shade struct {
	Name string      `json:"name"`
	Pos  image.Point `json:"pos"`
	RGB  imaging.RGB `json:"rgb"`
}

// Swatch is a captured main-color button and its shade buttons. A swatch is
// identified by its sampled main-color RGB; it is never mutated after capture
// except by the bulk SwapRB repair.
type Swatch struct {
	Name   string      `json:"name"`
	Pos    image.Point `json:"pos"`
	RGB    imaging.RGB `json:"rgb"`
	Shades []Shade     `json:"shades"`
}

// Palette is the set of captured swatches plus the buttons shared across all
// swatches: open-shades-panel and back-to-main, and the optional tool buttons
// required by bucket fill.
type Palette struct {
	ShadesPanel *image.Point `json:"shades_panel,omitempty"`
	Back        *image.Point `json:"back,omitempty"`
	PaintTool   *image.Point `json:"paint_tool,omitempty"`
	BucketTool  *image.Point `json:"bucket_tool,omitempty"`
	Swatches    []Swatch     `json:"swatches"`
}

// NumShades returns the total shade count across all swatches.
func (p *Palette) NumShades() int {
	n := 0
	for i := range p.Swatches {
		n += len(p.Swatches[i].Shades)
	}
	return n
}

// Configured verifies the palette is usable for painting: at least one shade
// and both shared buttons captured.
func (p *Palette) Configured() error {
	if p == nil || p.NumShades() == 0 {
		return apperrors.New(apperrors.CodePaletteNotConfigured, "no palette swatches captured")
	}
	if p.ShadesPanel == nil || p.Back == nil {
		return apperrors.New(apperrors.CodePaletteNotConfigured, "shared palette buttons not captured")
	}
	return nil
}

// HasBucketTool verifies the buttons needed for bucket fill.
func (p *Palette) HasBucketTool() error {
	if p.PaintTool == nil || p.BucketTool == nil {
		return apperrors.New(apperrors.CodeMissingBucketTool, "paint/bucket tool buttons not captured")
	}
	return nil
}

// SwapRB exchanges red and blue channels of every sampled color, repairing
// palettes captured from a BGR-ordered screen source. Applying it twice
// restores the original values.
func (p *Palette) SwapRB() {
	for i := range p.Swatches {
		sw := &p.Swatches[i]
		sw.RGB = sw.RGB.SwapRB()
		for j := range sw.Shades {
			sw.Shades[j].RGB = sw.Shades[j].RGB.SwapRB()
		}
	}
}

// RemoveSwatch deletes the swatch at index, preserving insertion order of the
// rest.
func (p *Palette) RemoveSwatch(index int) error {
	if index < 0 || index >= len(p.Swatches) {
		return apperrors.Newf(apperrors.CodeNotFound, "no swatch at index %d", index)
	}
	p.Swatches = append(p.Swatches[:index], p.Swatches[index+1:]...)
	return nil
}

// Clone returns a deep copy. Paint jobs snapshot the palette so concurrent
// wizard edits cannot shift click targets mid-run.
func (p *Palette) Clone() *Palette {
	if p == nil {
		return nil
	}
	out := &Palette{
		ShadesPanel: clonePoint(p.ShadesPanel),
		Back:        clonePoint(p.Back),
		PaintTool:   clonePoint(p.PaintTool),
		BucketTool:  clonePoint(p.BucketTool),
		Swatches:    make([]Swatch, len(p.Swatches)),
	}
	for i, sw := range p.Swatches {
		cp := sw
		cp.Shades = make([]Shade, len(sw.Shades))
		copy(cp.Shades, sw.Shades)
		out.Swatches[i] = cp
	}
	return out
}

func clonePoint(p *image.Point) *image.Point {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
