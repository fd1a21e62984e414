// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// Per-connection message rate limiting
	RateLimitMessages = 20
	RateLimitWindow   = time.Second

	// Maximum accepted image upload
	MaxImageBytes = 16 << 20

	// History response default
	DefaultHistoryLimit = 20
)
