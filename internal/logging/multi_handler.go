package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler duplicates every record to each of its handlers.
type teeHandler []slog.Handler

// NewMultiHandler returns a handler writing to every non-nil handler given.
// A single survivor is returned as is.
func NewMultiHandler(handlers ...slog.Handler) slog.Handler {
	var t teeHandler
	for _, h := range handlers {
		if h != nil {
			t = append(t, h)
		}
	}
	if len(t) == 1 {
		return t[0]
	}
	return t
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle gives the record to each enabled handler and joins their errors.
func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			err = errors.Join(err, h.Handle(ctx, r.Clone()))
		}
	}
	return err
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, 0, len(t))
	for _, h := range t {
		out = append(out, h.WithAttrs(attrs))
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return t
	}
	out := make(teeHandler, 0, len(t))
	for _, h := range t {
		out = append(out, h.WithGroup(name))
	}
	return out
}
