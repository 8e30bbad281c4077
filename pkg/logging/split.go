package logging

import (
	"context"
	"log/slog"
)

// SplitHandler routes records by category: below Threshold to Info,
// at or above Threshold to Errors. The host uses it to keep relayed server
// stdout and lifecycle milestones on stdout and stderr output, spawn
// failures and timeout notices on stderr.
type SplitHandler struct {
	info      slog.Handler
	errors    slog.Handler
	threshold slog.Level
}

// NewSplitHandler returns a SplitHandler with a Warn threshold.
func NewSplitHandler(info, errs slog.Handler) *SplitHandler {
	return &SplitHandler{info: info, errors: errs, threshold: slog.LevelWarn}
}

func (h *SplitHandler) target(level slog.Level) slog.Handler {
	if level >= h.threshold {
		return h.errors
	}
	return h.info
}

// Enabled reports whether the handler for level's category accepts it.
func (h *SplitHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.target(level).Enabled(ctx, level)
}

// Handle forwards the record to its category handler.
//
//nolint:gocritic // record is an interface parameter, cannot change to pointer
func (h *SplitHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.target(record.Level).Handle(ctx, record)
}

// WithAttrs applies attrs to both categories.
func (h *SplitHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SplitHandler{
		info:      h.info.WithAttrs(attrs),
		errors:    h.errors.WithAttrs(attrs),
		threshold: h.threshold,
	}
}

// WithGroup applies the group to both categories.
func (h *SplitHandler) WithGroup(name string) slog.Handler {
	return &SplitHandler{
		info:      h.info.WithGroup(name),
		errors:    h.errors.WithGroup(name),
		threshold: h.threshold,
	}
}
