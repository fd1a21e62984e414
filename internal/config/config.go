// Package config handles daemon configuration
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr     string
	SettingsPath string

	// Click timing defaults; per-job overrides arrive via the API.
	MoveDuration    time.Duration
	HoldDuration    time.Duration
	AfterClickDelay time.Duration
	PanelOpenDelay  time.Duration
	ShadeDelay      time.Duration
	RowDelay        time.Duration

	// Painting safety
	CountdownSeconds int
	FailsafeMargin   int // pixels from a screen corner that trigger abort

	// Screen capture
	CaptureRetries  int
	CanvasHashGuard bool // warn when canvas region drifts from selection
}

func Load() *Config {
	return &Config{
		HTTPAddr:         getEnv("HTTP_ADDR", ":7430"),
		SettingsPath:     getEnv("SETTINGS_PATH", defaultSettingsPath()),
		MoveDuration:     getEnvMillis("MOVE_DURATION_MS", 30),
		HoldDuration:     getEnvMillis("HOLD_DURATION_MS", 20),
		AfterClickDelay:  getEnvMillis("AFTER_CLICK_DELAY_MS", 60),
		PanelOpenDelay:   getEnvMillis("PANEL_OPEN_DELAY_MS", 120),
		ShadeDelay:       getEnvMillis("SHADE_SELECT_DELAY_MS", 60),
		RowDelay:         getEnvMillis("ROW_DELAY_MS", 100),
		CountdownSeconds: getEnvInt("PAINT_COUNTDOWN_SECONDS", 3),
		FailsafeMargin:   getEnvInt("FAILSAFE_MARGIN_PX", 5),
		CaptureRetries:   getEnvInt("CAPTURE_RETRIES", 3),
		CanvasHashGuard:  getEnvBool("CANVAS_HASH_GUARD", true),
	}
}

func defaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "pixelbrush.json"
	}
	return dir + "/pixelbrush/settings.json"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvMillis(key string, defMillis int) time.Duration {
	return time.Duration(getEnvInt(key, defMillis)) * time.Millisecond
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}
