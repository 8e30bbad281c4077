//go:build linux || freebsd || openbsd || netbsd || dragonfly || solaris || illumos || aix

// Package x11tray makes sure a StatusNotifierItem tray host exists on Unix desktops.
// When none is registered on D-Bus it launches snixembed, a bridge to legacy
// X11 system trays, as a supervised sidecar whose readiness is the watcher
// service appearing on the session bus.
package x11tray

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"time"

	"github.com/codeGROOVE-dev/trayhost/pkg/sidecar"
	"github.com/godbus/dbus/v5"
)

const (
	statusNotifierWatcher = "org.kde.StatusNotifierWatcher"

	proxyPollAttempts = 6
	proxyPollInterval = 500 * time.Millisecond
	proxyStopGrace    = time.Second
)

// HealthCheck verifies that a system tray implementation is available via D-Bus.
func HealthCheck() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to D-Bus session bus: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("[X11TRAY] Failed to close DBus connection", "error", err)
		}
	}()

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return fmt.Errorf("failed to query D-Bus services: %w", err)
	}
	return watcherPresent(names)
}

func watcherPresent(names []string) error {
	if slices.Contains(names, statusNotifierWatcher) {
		return nil
	}
	return fmt.Errorf("no system tray found: %s service not available", statusNotifierWatcher)
}

// ProxyProcess is a running snixembed sidecar.
type ProxyProcess struct {
	sup *sidecar.Supervisor
}

// Stop terminates the proxy. It is safe on a nil or zero ProxyProcess.
func (p *ProxyProcess) Stop() error {
	if p == nil || p.sup == nil {
		return nil
	}
	return p.sup.Stop(proxyStopGrace)
}

// proxyConfig supervises the snixembed binary at path.
func proxyConfig(path string, probe sidecar.Probe) sidecar.Config {
	return sidecar.Config{
		EntryPath:    path,
		Mode:         sidecar.Production,
		PollAttempts: proxyPollAttempts,
		PollInterval: proxyPollInterval,
		Probe:        probe,
		StdoutTag:    "[SNIXEMBED]",
		StderrTag:    "[SNIXEMBED ERR]",
	}
}

// TryProxy starts snixembed and waits for the tray watcher to register.
// The returned ProxyProcess must be stopped when the application exits.
func TryProxy(ctx context.Context, logger *slog.Logger) (*ProxyProcess, error) {
	path, err := exec.LookPath("snixembed")
	if err != nil {
		return nil, errors.New(
			"snixembed not found in PATH: install it with your package manager " +
				"(e.g., 'apt install snixembed' or 'yay -S snixembed')")
	}

	logger.Info("[X11TRAY] Starting snixembed proxy", "path", path)
	probe := sidecar.ProbeFunc(func(context.Context) error { return HealthCheck() })
	return startProxy(ctx, proxyConfig(path, probe), logger)
}

func startProxy(ctx context.Context, cfg sidecar.Config, logger *slog.Logger) (*ProxyProcess, error) {
	sup, err := sidecar.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	outcome, err := sup.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start snixembed: %w", err)
	}

	proxy := &ProxyProcess{sup: sup}
	if outcome != sidecar.Ready {
		if stopErr := proxy.Stop(); stopErr != nil {
			logger.Debug("[X11TRAY] Failed to stop proxy after failed health check", "error", stopErr)
		}
		return nil, fmt.Errorf("snixembed started but system tray still unavailable (%s)", outcome)
	}

	logger.Info("[X11TRAY] snixembed proxy started successfully", "pid", sup.Process().PID())
	return proxy, nil
}

// EnsureTray checks for system tray availability and starts a proxy if needed.
// A nil ProxyProcess with a nil error means the native tray is available.
func EnsureTray(ctx context.Context, logger *slog.Logger) (*ProxyProcess, error) {
	if err := HealthCheck(); err == nil {
		logger.Debug("[X11TRAY] Native system tray available")
		return nil, nil //nolint:nilnil // nil proxy is valid when native tray exists
	}

	logger.Warn("[X11TRAY] No native system tray found, attempting to start proxy")

	proxy, err := TryProxy(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("system tray unavailable and proxy failed: %w", err)
	}
	return proxy, nil
}
