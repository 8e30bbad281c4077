// Package main - reliability.go provides panic recovery and best-effort error handling.
package main

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// safeExecute runs a function with panic recovery and logging.
func safeExecute(operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			err = fmt.Errorf("panic in %s: %v", operation, r)
			slog.Error("[RELIABILITY] Panic recovered",
				"operation", operation,
				"panic", r,
				"stack", string(stack))
		}
	}()

	start := time.Now()
	err = fn()
	duration := time.Since(start)

	if err != nil {
		slog.Error("[RELIABILITY] Operation failed",
			"operation", operation,
			"error", err,
			"duration", duration)
	} else if duration > 20*time.Second {
		slog.Warn("[RELIABILITY] Slow operation",
			"operation", operation,
			"duration", duration)
	}

	return err
}

// bestEffort logs a failed UI or desktop operation at Warn and drops it.
func bestEffort(logger *slog.Logger, operation string, err error) {
	if err == nil {
		return
	}
	logger.Warn("[TRAY] Best-effort operation failed", "operation", operation, "error", err)
}
