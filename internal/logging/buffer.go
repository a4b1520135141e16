package logging

import (
	"log/slog"
	"sync"
	"time"
)

// LogEntry is a single log line kept in the ring buffer.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Query selects entries from a RingBuffer. Zero fields match everything.
type Query struct {
	Limit  int    // newest N after filtering
	Module string // exact module name
	Level  string // minimum level: debug, info, warn or error
}

// RingBuffer keeps the last N log entries for the HTTP logs endpoint.
type RingBuffer struct {
	mu      sync.RWMutex
	slots   []LogEntry
	written uint64
}

// NewRingBuffer creates a buffer holding at most size entries.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{slots: make([]LogEntry, max(size, 1))}
}

// Write stores entry, evicting the oldest one when full.
func (rb *RingBuffer) Write(entry LogEntry) {
	rb.mu.Lock()
	rb.slots[rb.written%uint64(len(rb.slots))] = entry
	rb.written++
	rb.mu.Unlock()
}

// Count returns how many entries are held.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.held()
}

// Recent returns up to limit of the newest entries, oldest first.
// A limit <= 0 returns everything held.
func (rb *RingBuffer) Recent(limit int) []LogEntry {
	return rb.Query(Query{Limit: limit})
}

// Query returns matching entries, oldest first.
func (rb *RingBuffer) Query(q Query) []LogEntry {
	minLevel := levelOrDefault(q.Level, slog.LevelDebug)

	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var out []LogEntry
	// Walk newest to oldest so Limit counts from the end.
	for i := 0; i < rb.held(); i++ {
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
		e := rb.slots[(rb.written-1-uint64(i))%uint64(len(rb.slots))]
		if q.Module != "" && e.Module != q.Module {
			continue
		}
		if levelOrDefault(e.Level, slog.LevelInfo) < minLevel {
			continue
		}
		out = append(out, e)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (rb *RingBuffer) held() int {
	if rb.written < uint64(len(rb.slots)) {
		return int(rb.written)
	}
	return len(rb.slots)
}
