// Package paint turns a matched pixel grid into an ordered click sequence and
// executes it against the game window.
package paint

import (
	"image"
	"time"

	"github.com/pixelbrush/pixelbrush/internal/palette"
)

// Kind identifies what a click action does in the game UI.
type Kind int

const (
	KindSelectSwatch Kind = iota // main color button on the main palette
	KindOpenShades               // shared open-shades-panel button
	KindSelectShade              // shade button inside the shades panel
	KindBack                     // shared back-to-main button
	KindSelectTool               // paint or bucket tool button
	KindBucketFill               // canvas click with the bucket tool active
	KindPaintCell                // canvas click painting one grid cell
)

func (k Kind) String() string {
	switch k {
	case KindSelectSwatch:
		return "select_swatch"
	case KindOpenShades:
		return "open_shades"
	case KindSelectShade:
		return "select_shade"
	case KindBack:
		return "back"
	case KindSelectTool:
		return "select_tool"
	case KindBucketFill:
		return "bucket_fill"
	case KindPaintCell:
		return "paint_cell"
	default:
		return "unknown"
	}
}

// Action is a single screen click. Settle is the post-click delay before the
// next action, already resolved by the planner.
type Action struct {
	Kind   Kind
	Pos    image.Point
	Settle time.Duration

	// Cell is the row-major grid index for KindPaintCell, -1 otherwise.
	Cell int
	// Shade is the palette shade this action selects or paints with.
	Shade palette.ShadeRef
}

// Timing holds the click pacing knobs. The game drops inputs that arrive
// faster than its UI settles, so every delay here is load-bearing.
type Timing struct {
	MoveDuration     time.Duration
	HoldDuration     time.Duration
	AfterClickDelay  time.Duration
	PanelOpenDelay   time.Duration
	ShadeSelectDelay time.Duration
	RowDelay         time.Duration
	StrokeClickDelay time.Duration
}

// DefaultTiming mirrors the pacing that survives the stock game client.
func DefaultTiming() Timing {
	return Timing{
		MoveDuration:     30 * time.Millisecond,
		HoldDuration:     20 * time.Millisecond,
		AfterClickDelay:  60 * time.Millisecond,
		PanelOpenDelay:   120 * time.Millisecond,
		ShadeSelectDelay: 60 * time.Millisecond,
		RowDelay:         100 * time.Millisecond,
		StrokeClickDelay: 15 * time.Millisecond,
	}
}

func (t Timing) withDefaults() Timing {
	def := DefaultTiming()
	if t.MoveDuration <= 0 {
		t.MoveDuration = def.MoveDuration
	}
	if t.HoldDuration <= 0 {
		t.HoldDuration = def.HoldDuration
	}
	if t.AfterClickDelay <= 0 {
		t.AfterClickDelay = def.AfterClickDelay
	}
	if t.PanelOpenDelay <= 0 {
		t.PanelOpenDelay = def.PanelOpenDelay
	}
	if t.ShadeSelectDelay <= 0 {
		t.ShadeSelectDelay = def.ShadeSelectDelay
	}
	if t.RowDelay < 0 {
		t.RowDelay = def.RowDelay
	}
	if t.StrokeClickDelay <= 0 {
		t.StrokeClickDelay = def.StrokeClickDelay
	}
	return t
}

// Options controls plan generation.
type Options struct {
	// BucketFillMostUsed paints the single most frequent shade first with one
	// bucket-fill action and excludes it from the per-cell pass.
	BucketFillMostUsed bool
	// StrokeNeighbors tightens the delay between raster-adjacent cells that
	// share the current shade.
	StrokeNeighbors bool
	Timing          Timing
}
