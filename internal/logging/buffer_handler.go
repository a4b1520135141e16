package logging

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"
)

const defaultModule = "app"

// BufferHandler records entries into a RingBuffer. Handler attributes are
// flattened once in WithAttrs so Handle only copies them.
type BufferHandler struct {
	buffer *RingBuffer
	level  slog.Leveler
	module string
	fixed  map[string]any
	group  string // dotted group path
}

// NewBufferHandler creates a handler that writes to buffer.
func NewBufferHandler(buffer *RingBuffer, level slog.Leveler) *BufferHandler {
	return &BufferHandler{buffer: buffer, level: level, module: defaultModule}
}

// Enabled implements slog.Handler.
func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	entry := LogEntry{
		Timestamp: r.Time,
		Level:     levelName(r.Level),
		Module:    h.module,
		Message:   r.Message,
	}
	if len(h.fixed) > 0 || r.NumAttrs() > 0 {
		entry.Attributes = maps.Clone(h.fixed)
		if entry.Attributes == nil {
			entry.Attributes = make(map[string]any, r.NumAttrs())
		}
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == "module" && h.group == "" {
				entry.Module = a.Value.String()
			} else {
				flattenAttr(entry.Attributes, h.group, a)
			}
			return true
		})
		if len(entry.Attributes) == 0 {
			entry.Attributes = nil
		}
	}
	h.buffer.Write(entry)
	return nil
}

// WithAttrs implements slog.Handler.
func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.fixed = maps.Clone(h.fixed)
	for _, a := range attrs {
		if a.Key == "module" && h.group == "" {
			c.module = a.Value.String()
			continue
		}
		if c.fixed == nil {
			c.fixed = make(map[string]any)
		}
		flattenAttr(c.fixed, h.group, a)
	}
	return &c
}

// WithGroup implements slog.Handler.
func (h *BufferHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.group = joinKey(h.group, name)
	return &c
}

// flattenAttr stores a under a dotted key, expanding groups.
func flattenAttr(dst map[string]any, group string, a slog.Attr) {
	v := a.Value.Resolve()
	key := joinKey(group, a.Key)
	switch v.Kind() {
	case slog.KindGroup:
		for _, ga := range v.Group() {
			flattenAttr(dst, key, ga)
		}
	case slog.KindTime:
		dst[key] = v.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		dst[key] = v.Duration().String()
	default:
		if err, ok := v.Any().(error); ok {
			dst[key] = err.Error()
			return
		}
		dst[key] = v.Any()
	}
}

func joinKey(group, key string) string {
	switch {
	case group == "":
		return key
	case key == "":
		return group
	}
	return group + "." + key
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	}
	return "debug"
}

// FormatLogLine renders entry on one line with attributes sorted by key.
func FormatLogLine(entry LogEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] [%s] %s",
		entry.Timestamp.Format(time.RFC3339Nano),
		strings.ToUpper(entry.Level), entry.Module, entry.Message)
	for _, k := range slices.Sorted(maps.Keys(entry.Attributes)) {
		fmt.Fprintf(&sb, " %s=%v", k, entry.Attributes[k])
	}
	return sb.String()
}
