// Package screen reads pixels back from the display: single-pixel color
// sampling for the calibration wizard and perceptual-hash change detection
// for the canvas region.
package screen

import (
	"image"

	"github.com/kbinani/screenshot"

	apperrors "github.com/pixelbrush/pixelbrush/internal/errors"
)

// Capturer grabs a display region as an image.
type Capturer interface {
	Grab(rect image.Rectangle) (*image.RGBA, error)
}

// DisplayCapturer captures from the primary display.
type DisplayCapturer struct{}

func NewDisplayCapturer() *DisplayCapturer { return &DisplayCapturer{} }

func (DisplayCapturer) Grab(rect image.Rectangle) (*image.RGBA, error) {
	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeCaptureFailed, "capture %v", rect)
	}
	return img, nil
}

// PrimaryBounds returns the bounds of the primary display, used for canvas
// placement checks and the corner failsafe.
func PrimaryBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, apperrors.New(apperrors.CodeCaptureFailed, "no active displays")
	}
	return screenshot.GetDisplayBounds(0), nil
}
