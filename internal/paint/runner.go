package paint

import (
	"context"
	"image"
	"time"

	apperrors "github.com/pixelbrush/pixelbrush/internal/errors"
	"github.com/pixelbrush/pixelbrush/internal/trace"
)

// Tapper injects a single click: move to pos, press, hold, release.
type Tapper interface {
	Tap(ctx context.Context, pos image.Point, move, hold time.Duration) error
}

// Failsafe is polled between actions; returning true aborts the run as a
// user cancellation (pointer parked in a screen corner).
type Failsafe func() bool

// Progress reports execution of one paintable action.
type Progress struct {
	Done    int // paintable actions completed so far
	Total   int // total paintable actions in the plan
	Action  Action
	Elapsed time.Duration
}

// Runner executes a plan as a strictly ordered, rate-limited blocking loop.
// Cancellation is cooperative and checked between actions only; an aborted
// run leaves already-painted cells painted.
type Runner struct {
	tapper     Tapper
	failsafe   Failsafe
	onProgress func(Progress)
}

// NewRunner creates a runner. failsafe and onProgress may be nil.
func NewRunner(tapper Tapper, failsafe Failsafe, onProgress func(Progress)) *Runner {
	return &Runner{tapper: tapper, failsafe: failsafe, onProgress: onProgress}
}

// CountPaintable returns how many actions in the plan put paint on the canvas.
func CountPaintable(actions []Action) int {
	n := 0
	for _, a := range actions {
		if a.Kind == KindPaintCell || a.Kind == KindBucketFill {
			n++
		}
	}
	return n
}

// Run executes the action list. The runner owns the pointer exclusively for
// the duration; the caller enforces single-run admission.
func (r *Runner) Run(ctx context.Context, actions []Action, timing Timing) error {
	ctx, span := trace.StartSpan(ctx, "run_actions")
	defer span.End()
	span.SetAttr("actions", len(actions))

	timing = timing.withDefaults()
	total := CountPaintable(actions)
	done := 0
	start := time.Now()
	log := trace.Logger(ctx)

	for i, a := range actions {
		// Between actions only, never mid-action.
		if err := ctx.Err(); err != nil {
			span.SetAttr("aborted_at", i)
			return apperrors.Wrap(err, apperrors.CodeUserCancelled, "paint stopped")
		}
		if r.failsafe != nil && r.failsafe() {
			span.SetAttr("aborted_at", i)
			log.Warn("failsafe triggered, aborting paint", "action", i)
			return apperrors.New(apperrors.CodeUserCancelled, "pointer moved to screen corner")
		}

		if err := r.tapper.Tap(ctx, a.Pos, timing.MoveDuration, timing.HoldDuration); err != nil {
			// A stop that lands while a tap is in flight is a user abort,
			// not an injector fault.
			if ctx.Err() != nil {
				span.SetAttr("aborted_at", i)
				return apperrors.Wrap(err, apperrors.CodeUserCancelled, "paint stopped")
			}
			span.SetAttr("error", err.Error())
			return apperrors.Wrapf(err, apperrors.CodePointerFailed, "tap %s at (%d,%d)", a.Kind, a.Pos.X, a.Pos.Y)
		}

		if a.Kind == KindPaintCell || a.Kind == KindBucketFill {
			done++
			if r.onProgress != nil {
				r.onProgress(Progress{Done: done, Total: total, Action: a, Elapsed: time.Since(start)})
			}
		}

		if a.Settle > 0 {
			select {
			case <-ctx.Done():
				// Settle already elapsed partially; treat as a between-action stop.
				return apperrors.Wrap(ctx.Err(), apperrors.CodeUserCancelled, "paint stopped")
			case <-time.After(a.Settle):
			}
		}
	}

	span.SetAttr("painted", done)
	log.Info("paint run complete", "actions", len(actions), "painted", done, "elapsed", time.Since(start))
	return nil
}
