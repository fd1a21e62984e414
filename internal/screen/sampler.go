package screen

import (
	"context"
	"image"

	apperrors "github.com/pixelbrush/pixelbrush/internal/errors"
	"github.com/pixelbrush/pixelbrush/internal/imaging"
	"github.com/pixelbrush/pixelbrush/internal/resilience"
)

// Sampler reads single pixel colors for palette calibration. Captures are
// retried; compositors occasionally return transient errors right after a
// click redraws the UI.
type Sampler struct {
	capturer Capturer
	retry    resilience.RetryConfig
}

func NewSampler(capturer Capturer, retries int) *Sampler {
	return &Sampler{capturer: capturer, retry: resilience.CaptureRetryConfig(retries)}
}

// SamplePixel returns the display color at pos.
func (s *Sampler) SamplePixel(ctx context.Context, pos image.Point) (imaging.RGB, error) {
	var c imaging.RGB
	err := resilience.Retry(ctx, s.retry, func() error {
		img, err := s.capturer.Grab(image.Rect(pos.X, pos.Y, pos.X+1, pos.Y+1))
		if err != nil {
			return err
		}
		if img.Bounds().Empty() {
			return apperrors.Newf(apperrors.CodeCaptureFailed, "empty capture at (%d,%d)", pos.X, pos.Y)
		}
		c = imaging.FromColor(img.At(img.Bounds().Min.X, img.Bounds().Min.Y))
		return nil
	})
	return c, err
}
