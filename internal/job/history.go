package job

import (
	"sync"
	"time"
)

// Outcome classifies how a job ended.
type Outcome string

const (
	OutcomeDone      Outcome = "done"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// Record is one finished paint job.
type Record struct {
	ID       int64         `json:"id"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Outcome  Outcome       `json:"outcome"`
	Painted  int           `json:"painted"`
	Total    int           `json:"total"`
	Error    string        `json:"error,omitempty"`
}

// History is a bounded in-memory log of finished jobs, newest last.
type History struct {
	mu      sync.RWMutex
	records []Record
	maxSize int
}

func NewHistory(maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = HistoryMaxEntries
	}
	return &History{records: make([]Record, 0, maxEntries), maxSize: maxEntries}
}

// Add appends a record, evicting the oldest past capacity.
func (h *History) Add(r Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, r)
	if len(h.records) > h.maxSize {
		h.records = h.records[len(h.records)-h.maxSize:]
	}
}

// Recent returns up to limit records, newest first.
func (h *History) Recent(limit int) []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > len(h.records) {
		limit = len(h.records)
	}
	out := make([]Record, limit)
	for i := 0; i < limit; i++ {
		out[i] = h.records[len(h.records)-1-i]
	}
	return out
}
