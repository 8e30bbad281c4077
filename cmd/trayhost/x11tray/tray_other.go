//go:build !linux && !freebsd && !openbsd && !netbsd && !dragonfly && !solaris && !illumos && !aix

package x11tray

import (
	"context"
	"log/slog"
)

// HealthCheck always returns nil on platforms where the OS provides the tray.
func HealthCheck() error {
	return nil
}

// ProxyProcess is never started on these platforms.
type ProxyProcess struct{}

// Stop is a no-op on non-Unix platforms.
func (*ProxyProcess) Stop() error {
	return nil
}

// TryProxy is not needed on non-Unix platforms and always returns nil.
func TryProxy(context.Context, *slog.Logger) (*ProxyProcess, error) {
	return nil, nil //nolint:nilnil // no proxy on this platform
}

// EnsureTray always succeeds on non-Unix platforms.
func EnsureTray(context.Context, *slog.Logger) (*ProxyProcess, error) {
	return nil, nil //nolint:nilnil // no proxy on this platform
}
