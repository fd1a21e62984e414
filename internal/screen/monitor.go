package screen

import (
	"context"
	"image"

	"github.com/corona10/goimagehash"

	apperrors "github.com/pixelbrush/pixelbrush/internal/errors"
)

// DefaultHashThreshold is the perceptual hash distance above which the canvas
// region counts as changed. Small repaints and cursor ghosting stay under it.
const DefaultHashThreshold = 8

// Monitor watches a canvas region for visual change between a snapshot and a
// later check, so a paint run can detect that the game window moved or was
// covered before clicks land on the wrong pixels.
type Monitor struct {
	capturer  Capturer
	region    image.Rectangle
	threshold int
	baseline  *goimagehash.ImageHash
}

func NewMonitor(capturer Capturer, region image.Rectangle, threshold int) *Monitor {
	if threshold <= 0 {
		threshold = DefaultHashThreshold
	}
	return &Monitor{capturer: capturer, region: region, threshold: threshold}
}

// Snapshot captures the region and stores its perceptual hash as the baseline.
func (m *Monitor) Snapshot(ctx context.Context) error {
	hash, err := m.hashRegion(ctx)
	if err != nil {
		return err
	}
	m.baseline = hash
	return nil
}

// Changed reports whether the region diverged from the baseline beyond the
// threshold. Calling Changed without a Snapshot is an error.
func (m *Monitor) Changed(ctx context.Context) (bool, error) {
	if m.baseline == nil {
		return false, apperrors.New(apperrors.CodeInternal, "canvas monitor has no baseline snapshot")
	}
	hash, err := m.hashRegion(ctx)
	if err != nil {
		return false, err
	}
	dist, err := m.baseline.Distance(hash)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.CodeInternal, "compare canvas hashes")
	}
	return dist > m.threshold, nil
}

func (m *Monitor) hashRegion(ctx context.Context) (*goimagehash.ImageHash, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := m.capturer.Grab(m.region)
	if err != nil {
		return nil, err
	}
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCaptureFailed, "hash canvas region")
	}
	return hash, nil
}
