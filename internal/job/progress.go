package job

import (
	"sync"
	"time"

	"github.com/pixelbrush/pixelbrush/internal/paint"
)

// Coalescer rate-limits progress updates: the runner reports every cell, but
// subscribers only need the latest state a few times a second. Terminal
// updates (last cell) flush immediately.
type Coalescer struct {
	flushDelay time.Duration
	emit       func(paint.Progress)

	mu     sync.Mutex
	latest paint.Progress
	dirty  bool
	timer  *time.Timer
}

func NewCoalescer(flushDelay time.Duration, emit func(paint.Progress)) *Coalescer {
	if flushDelay <= 0 {
		flushDelay = ProgressFlushDelay
	}
	return &Coalescer{flushDelay: flushDelay, emit: emit}
}

// Add records an update, scheduling a delayed flush.
func (c *Coalescer) Add(p paint.Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.latest = p
	c.dirty = true

	if p.Done >= p.Total {
		c.flushLocked()
		return
	}
	if c.timer == nil {
		c.timer = time.AfterFunc(c.flushDelay, c.timerFlush)
	}
}

func (c *Coalescer) timerFlush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushLocked()
}

func (c *Coalescer) flushLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if !c.dirty {
		return
	}
	c.dirty = false
	c.emit(c.latest)
}

// Flush emits any pending update immediately.
func (c *Coalescer) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushLocked()
}
