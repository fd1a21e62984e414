//go:build !linux && !darwin

package pointer

import (
	"runtime"

	apperrors "github.com/pixelbrush/pixelbrush/internal/errors"
)

func platformCommands() (commandSet, error) {
	return nil, apperrors.Newf(apperrors.CodePointerFailed, "no pointer automation tool for %s", runtime.GOOS)
}
