package paint

import (
	"image"
	"sort"

	apperrors "github.com/pixelbrush/pixelbrush/internal/errors"
	"github.com/pixelbrush/pixelbrush/internal/palette"
)

type shadeGroup struct {
	ref   palette.ShadeRef
	cells []int // row-major grid indices, raster order
}

// Plan produces the ordered click list that paints assign into the canvas
// rectangle. Cells are grouped by assigned shade so one palette selection
// covers a maximal run before switching; groups run most-used first, ties
// resolving to palette insertion order; cells within a group keep raster-scan
// order. The plan contains exactly one paint click per grid cell unless the
// cell is covered by a bucket fill.
func Plan(assign *palette.Assignment, pal *palette.Palette, canvas image.Rectangle, opts Options) ([]Action, error) {
	if assign == nil || assign.W <= 0 || assign.H <= 0 {
		return nil, apperrors.New(apperrors.CodeImageNotLoaded, "no image grid to paint")
	}
	if canvas.Empty() {
		return nil, apperrors.New(apperrors.CodeCanvasNotSelected, "canvas rectangle not selected")
	}
	if err := pal.Configured(); err != nil {
		return nil, err
	}
	if opts.BucketFillMostUsed {
		if err := pal.HasBucketTool(); err != nil {
			return nil, err
		}
	}
	timing := opts.Timing.withDefaults()

	groups := groupByShade(assign)

	var actions []Action
	seq := &selectionState{pal: pal, timing: timing, curSwatch: -1}

	if opts.BucketFillMostUsed && len(groups) > 0 {
		// groups[0] is the most frequent shade after ordering.
		bucket := groups[0]
		groups = groups[1:]

		actions = seq.selectShade(actions, bucket.ref)
		actions = append(actions,
			Action{Kind: KindSelectTool, Pos: *pal.BucketTool, Settle: timing.AfterClickDelay, Cell: -1, Shade: bucket.ref},
			Action{Kind: KindBucketFill, Pos: rectCenter(canvas), Settle: timing.PanelOpenDelay, Cell: -1, Shade: bucket.ref},
			Action{Kind: KindSelectTool, Pos: *pal.PaintTool, Settle: timing.AfterClickDelay, Cell: -1, Shade: bucket.ref},
		)
	}

	cellW := float64(canvas.Dx()) / float64(assign.W)
	cellH := float64(canvas.Dy()) / float64(assign.H)

	for _, g := range groups {
		actions = seq.selectShade(actions, g.ref)

		for i, cell := range g.cells {
			cx := cell % assign.W
			cy := cell / assign.W
			pos := image.Pt(
				canvas.Min.X+int((float64(cx)+0.5)*cellW),
				canvas.Min.Y+int((float64(cy)+0.5)*cellH),
			)

			settle := timing.AfterClickDelay
			if opts.StrokeNeighbors && i > 0 && cell == g.cells[i-1]+1 && cy == g.cells[i-1]/assign.W {
				settle = timing.StrokeClickDelay
			}
			if i == len(g.cells)-1 {
				settle += timing.RowDelay
			}
			actions = append(actions, Action{Kind: KindPaintCell, Pos: pos, Settle: settle, Cell: cell, Shade: g.ref})
		}
	}

	// Leave the game UI in a predictable state.
	if seq.inShades {
		actions = append(actions, Action{Kind: KindBack, Pos: *pal.Back, Settle: timing.AfterClickDelay, Cell: -1})
	}
	return actions, nil
}

// groupByShade buckets cells per assigned shade and orders groups by
// descending cell count, then palette insertion order.
func groupByShade(assign *palette.Assignment) []shadeGroup {
	byRef := make(map[palette.ShadeRef]*shadeGroup)
	var order []*shadeGroup
	for i, ref := range assign.Cells {
		g, ok := byRef[ref]
		if !ok {
			g = &shadeGroup{ref: ref}
			byRef[ref] = g
			order = append(order, g)
		}
		g.cells = append(g.cells, i)
	}

	sort.SliceStable(order, func(a, b int) bool {
		ga, gb := order[a], order[b]
		if len(ga.cells) != len(gb.cells) {
			return len(ga.cells) > len(gb.cells)
		}
		if ga.ref.Swatch != gb.ref.Swatch {
			return ga.ref.Swatch < gb.ref.Swatch
		}
		return ga.ref.Shade < gb.ref.Shade
	})

	out := make([]shadeGroup, len(order))
	for i, g := range order {
		out[i] = *g
	}
	return out
}

// selectionState tracks which swatch is selected and whether the shades panel
// is open, so consecutive groups reuse palette clicks where they can.
type selectionState struct {
	pal       *palette.Palette
	timing    Timing
	curSwatch int
	inShades  bool
}

// selectShade appends the palette clicks needed to make ref the active shade.
func (s *selectionState) selectShade(actions []Action, ref palette.ShadeRef) []Action {
	sw := &s.pal.Swatches[ref.Swatch]

	if s.curSwatch != ref.Swatch {
		if s.inShades {
			actions = append(actions, Action{Kind: KindBack, Pos: *s.pal.Back, Settle: s.timing.AfterClickDelay, Cell: -1})
			s.inShades = false
		}
		actions = append(actions,
			Action{Kind: KindSelectSwatch, Pos: sw.Pos, Settle: s.timing.AfterClickDelay, Cell: -1, Shade: ref},
			Action{Kind: KindOpenShades, Pos: *s.pal.ShadesPanel, Settle: s.timing.PanelOpenDelay, Cell: -1, Shade: ref},
		)
		s.inShades = true
		s.curSwatch = ref.Swatch
	}

	actions = append(actions, Action{
		Kind:   KindSelectShade,
		Pos:    sw.Shades[ref.Shade].Pos,
		Settle: s.timing.ShadeSelectDelay,
		Cell:   -1,
		Shade:  ref,
	})
	return actions
}

func rectCenter(r image.Rectangle) image.Point {
	return image.Pt(r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2)
}
