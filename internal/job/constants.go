// Package job owns session state and runs paint jobs.
package job

import "time"

// Session configuration constants
const (
	// Job history log
	HistoryMaxEntries = 50

	// Event fan-out buffer
	EventBuffer = 100

	// Progress coalescing
	ProgressFlushDelay = 150 * time.Millisecond

	// Countdown tick
	CountdownTick = time.Second

	// Perceptual hash distance before a canvas drift warning
	CanvasHashThreshold = 8
)
