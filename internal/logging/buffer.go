package logging

import (
	"sync"
	"time"
)

// LogEntry is one record kept in the history buffer.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer holds the most recent log entries, overwriting the oldest
// once full. Safe for concurrent use.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	head    int
	count   int
}

// NewRingBuffer creates a buffer holding up to size entries.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{entries: make([]LogEntry, size)}
}

// Write appends an entry, evicting the oldest when the buffer is full.
func (rb *RingBuffer) Write(entry LogEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.head] = entry
	rb.head = (rb.head + 1) % len(rb.entries)
	if rb.count < len(rb.entries) {
		rb.count++
	}
}

// ReadAll returns the buffered entries oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.count == 0 {
		return nil
	}
	result := make([]LogEntry, 0, rb.count)
	if rb.count < len(rb.entries) {
		result = append(result, rb.entries[:rb.count]...)
	} else {
		result = append(result, rb.entries[rb.head:]...)
		result = append(result, rb.entries[:rb.head]...)
	}
	return result
}

// Count returns how many entries the buffer currently holds.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}
