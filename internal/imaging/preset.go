package imaging

import (
	"strconv"
	"strings"

	apperrors "github.com/pixelbrush/pixelbrush/internal/errors"
)

// DefaultPreset is the stock in-game canvas.
const DefaultPreset = "30x30"

// ParsePreset parses a "WxH" canvas preset into grid dimensions.
func ParsePreset(preset string) (w, h int, err error) {
	if preset == "" {
		preset = DefaultPreset
	}
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(preset)), "x", 2)
	if len(parts) != 2 {
		return 0, 0, apperrors.Newf(apperrors.CodeInvalidArgument, "bad canvas preset %q", preset)
	}
	w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, apperrors.Newf(apperrors.CodeInvalidArgument, "bad canvas preset %q", preset)
	}
	return w, h, nil
}
