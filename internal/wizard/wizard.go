// Package wizard drives palette calibration: a linear state machine that
// turns a sequence of captured clicks (screen position + sampled color) into
// shared button coordinates and a new palette swatch.
package wizard

import (
	"fmt"
	"image"
	"sync"

	apperrors "github.com/pixelbrush/pixelbrush/internal/errors"
	"github.com/pixelbrush/pixelbrush/internal/imaging"
	"github.com/pixelbrush/pixelbrush/internal/palette"
)

// State is the wizard's position in the capture flow.
type State int

const (
	StateIdle State = iota
	StateAwaitingSharedButtons
	StateAwaitingMainColor
	StateAwaitingShade
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingSharedButtons:
		return "awaiting_shared_buttons"
	case StateAwaitingMainColor:
		return "awaiting_main_color"
	case StateAwaitingShade:
		return "awaiting_shade"
	default:
		return "unknown"
	}
}

// Click is one captured user click.
type Click struct {
	Pos image.Point `json:"pos"`
	RGB imaging.RGB `json:"rgb"`
}

type sharedTarget struct {
	label string
	set   func(pal *palette.Palette, pos image.Point)
}

var sharedTargets = []sharedTarget{
	{"open-shades-panel button", func(pal *palette.Palette, pos image.Point) { pal.ShadesPanel = &pos }},
	{"back-to-main button", func(pal *palette.Palette, pos image.Point) { pal.Back = &pos }},
	{"paint tool button", func(pal *palette.Palette, pos image.Point) { pal.PaintTool = &pos }},
	{"bucket tool button", func(pal *palette.Palette, pos image.Point) { pal.BucketTool = &pos }},
}

// Wizard captures one swatch per run. Shared button coordinates are applied
// to the palette as soon as they are captured; the swatch itself is staged
// and only appended on Finish, so Cancel never loses shared calibration.
// Only one capture run may be active at a time.
type Wizard struct {
	mu      sync.Mutex
	pal     *palette.Palette
	state   State
	pending []sharedTarget
	draft   palette.Swatch
}

func New(pal *palette.Palette) *Wizard {
	return &Wizard{pal: pal}
}

// Start begins a capture run. Shared buttons already configured are skipped;
// with all four present the wizard goes straight to the main color.
func (w *Wizard) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateIdle {
		return apperrors.Newf(apperrors.CodeWizardState, "wizard already running in state %s", w.state)
	}

	w.pending = w.pending[:0]
	if w.pal.ShadesPanel == nil {
		w.pending = append(w.pending, sharedTargets[0])
	}
	if w.pal.Back == nil {
		w.pending = append(w.pending, sharedTargets[1])
	}
	if w.pal.PaintTool == nil {
		w.pending = append(w.pending, sharedTargets[2])
	}
	if w.pal.BucketTool == nil {
		w.pending = append(w.pending, sharedTargets[3])
	}

	w.draft = palette.Swatch{}
	if len(w.pending) > 0 {
		w.state = StateAwaitingSharedButtons
	} else {
		w.state = StateAwaitingMainColor
	}
	return nil
}

// State returns the current state.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Prompt describes the click the wizard expects next.
func (w *Wizard) Prompt() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateAwaitingSharedButtons:
		return "click the " + w.pending[0].label
	case StateAwaitingMainColor:
		return "click the main color button to capture"
	case StateAwaitingShade:
		return fmt.Sprintf("click shade %d (or finish)", len(w.draft.Shades)+1)
	default:
		return "wizard not running"
	}
}

// Feed advances the state machine with one captured click.
func (w *Wizard) Feed(c Click) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateAwaitingSharedButtons:
		w.pending[0].set(w.pal, c.Pos)
		w.pending = w.pending[1:]
		if len(w.pending) == 0 {
			w.state = StateAwaitingMainColor
		}
		return nil

	case StateAwaitingMainColor:
		w.draft = palette.Swatch{
			Name: fmt.Sprintf("color-%d", len(w.pal.Swatches)+1),
			Pos:  c.Pos,
			RGB:  c.RGB,
		}
		w.state = StateAwaitingShade
		return nil

	case StateAwaitingShade:
		w.draft.Shades = append(w.draft.Shades, palette.Shade{
			Name: fmt.Sprintf("shade-%d", len(w.draft.Shades)+1),
			Pos:  c.Pos,
			RGB:  c.RGB,
		})
		return nil

	default:
		return apperrors.Newf(apperrors.CodeWizardState, "no capture expected in state %s", w.state)
	}
}

// Finish appends the staged swatch to the palette and returns to idle.
// Legal only from the shade state with at least one shade captured.
func (w *Wizard) Finish() (palette.Swatch, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateAwaitingShade {
		return palette.Swatch{}, apperrors.Newf(apperrors.CodeWizardState, "cannot finish from state %s", w.state)
	}
	if len(w.draft.Shades) == 0 {
		return palette.Swatch{}, apperrors.New(apperrors.CodeWizardState, "swatch needs at least one shade")
	}

	sw := w.draft
	w.pal.Swatches = append(w.pal.Swatches, sw)
	w.draft = palette.Swatch{}
	w.state = StateIdle
	return sw, nil
}

// Cancel discards the staged swatch and returns to idle. Shared buttons
// captured during the run stay on the palette.
func (w *Wizard) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft = palette.Swatch{}
	w.pending = nil
	w.state = StateIdle
}
