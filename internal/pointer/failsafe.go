package pointer

import (
	"context"
	"image"
	"time"
)

// DefaultFailsafeMargin is how close to a display corner the pointer must be
// to abort a run.
const DefaultFailsafeMargin = 5

// CornerFailsafe returns a predicate that reports true when the pointer sits
// within margin pixels of any corner of bounds. The user slams the mouse into
// a corner to abort a runaway paint job; a failed position read never aborts
// on its own.
func CornerFailsafe(position func(ctx context.Context) (image.Point, error), bounds image.Rectangle, margin int) func() bool {
	if margin <= 0 {
		margin = DefaultFailsafeMargin
	}
	return func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		p, err := position(ctx)
		if err != nil {
			return false
		}
		return inCorner(p, bounds, margin)
	}
}

func inCorner(p image.Point, bounds image.Rectangle, margin int) bool {
	nearX := p.X <= bounds.Min.X+margin || p.X >= bounds.Max.X-1-margin
	nearY := p.Y <= bounds.Min.Y+margin || p.Y >= bounds.Max.Y-1-margin
	return nearX && nearY
}
