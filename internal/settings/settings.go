// Package settings persists the calibrated palette, canvas preset, and click
// pacing between runs as a single JSON file.
package settings

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/pixelbrush/pixelbrush/internal/errors"
	"github.com/pixelbrush/pixelbrush/internal/imaging"
	"github.com/pixelbrush/pixelbrush/internal/paint"
	"github.com/pixelbrush/pixelbrush/internal/palette"
)

// Timing is the on-disk form of the click pacing knobs, in milliseconds.
// Zero fields fall back to the built-in defaults at plan time.
type Timing struct {
	MoveDurationMS     int `json:"move_duration_ms,omitempty"`
	HoldDurationMS     int `json:"hold_duration_ms,omitempty"`
	AfterClickDelayMS  int `json:"after_click_delay_ms,omitempty"`
	PanelOpenDelayMS   int `json:"panel_open_delay_ms,omitempty"`
	ShadeSelectDelayMS int `json:"shade_select_delay_ms,omitempty"`
	RowDelayMS         int `json:"row_delay_ms,omitempty"`
	StrokeClickDelayMS int `json:"stroke_click_delay_ms,omitempty"`
}

// Paint converts the stored milliseconds into planner timing.
func (t Timing) Paint() paint.Timing {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return paint.Timing{
		MoveDuration:     ms(t.MoveDurationMS),
		HoldDuration:     ms(t.HoldDurationMS),
		AfterClickDelay:  ms(t.AfterClickDelayMS),
		PanelOpenDelay:   ms(t.PanelOpenDelayMS),
		ShadeSelectDelay: ms(t.ShadeSelectDelayMS),
		RowDelay:         ms(t.RowDelayMS),
		StrokeClickDelay: ms(t.StrokeClickDelayMS),
	}
}

// TimingFromPaint converts planner timing to the on-disk form.
func TimingFromPaint(t paint.Timing) Timing {
	ms := func(d time.Duration) int { return int(d / time.Millisecond) }
	return Timing{
		MoveDurationMS:     ms(t.MoveDuration),
		HoldDurationMS:     ms(t.HoldDuration),
		AfterClickDelayMS:  ms(t.AfterClickDelay),
		PanelOpenDelayMS:   ms(t.PanelOpenDelay),
		ShadeSelectDelayMS: ms(t.ShadeSelectDelay),
		RowDelayMS:         ms(t.RowDelay),
		StrokeClickDelayMS: ms(t.StrokeClickDelay),
	}
}

// Settings is everything the user calibrates once and expects to survive a
// restart. The zero value is usable: no palette, default canvas preset.
type Settings struct {
	Palette            *palette.Palette `json:"palette,omitempty"`
	CanvasPreset       string           `json:"canvas_preset,omitempty"`
	Timing             Timing           `json:"timing"`
	BucketFillMostUsed bool             `json:"bucket_fill_most_used,omitempty"`
	StrokeNeighbors    bool             `json:"stroke_neighbors,omitempty"`
}

// Default returns the settings used before any calibration has happened.
func Default() *Settings {
	return &Settings{CanvasPreset: imaging.DefaultPreset}
}

// Load reads settings from path. A missing file is not an error and returns
// defaults; a present but unreadable or malformed file is SETTINGS_INVALID so
// a corrupt file never silently wipes a calibration.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeSettingsInvalid, "read settings %s", path)
	}

	s := Default()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeSettingsInvalid, "parse settings %s", path)
	}
	if s.CanvasPreset != "" {
		if _, _, err := imaging.ParsePreset(s.CanvasPreset); err != nil {
			return nil, apperrors.Wrapf(err, apperrors.CodeSettingsInvalid, "settings %s", path)
		}
	}
	return s, nil
}

// Save writes settings to path atomically: marshal to a temp file in the same
// directory, then rename over the target. Parent directories are created.
func Save(path string, s *Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "marshal settings")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeInternal, "create settings dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "create temp settings file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.Wrap(err, apperrors.CodeInternal, "write settings")
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "close settings")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeInternal, "replace settings %s", path)
	}
	return nil
}
