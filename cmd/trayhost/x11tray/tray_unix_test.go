//go:build linux || freebsd || openbsd || netbsd || dragonfly || solaris || illumos || aix

package x11tray

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/trayhost/pkg/sidecar"
	"github.com/godbus/dbus/v5"
)

func skipIfNoDBus(t *testing.T) {
	t.Helper()
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		t.Skipf("D-Bus session bus not available: %v", err)
	}
	conn.Close()
}

func TestHealthCheck(t *testing.T) {
	skipIfNoDBus(t)

	err := HealthCheck()
	if err == nil {
		return // system tray available
	}
	if !strings.Contains(err.Error(), "StatusNotifierWatcher") && !strings.Contains(err.Error(), "system tray") {
		t.Errorf("HealthCheck() error = %v, want mention of StatusNotifierWatcher or system tray", err)
	}
}

func TestWatcherPresent(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		wantErr bool
	}{
		{name: "present", names: []string{"org.freedesktop.DBus", statusNotifierWatcher}},
		{name: "missing", names: []string{"org.freedesktop.DBus", "org.kde.StatusNotifierItem-1-1"}, wantErr: true},
		{name: "empty", names: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := watcherPresent(tt.names); (err != nil) != tt.wantErr {
				t.Errorf("watcherPresent() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProxyProcessStopZero(t *testing.T) {
	var nilProxy *ProxyProcess
	if err := nilProxy.Stop(); err != nil {
		t.Errorf("nil Stop() = %v, want nil", err)
	}
	if err := (&ProxyProcess{}).Stop(); err != nil {
		t.Errorf("zero Stop() = %v, want nil", err)
	}
}

func sleepBinary(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("sleep")
	if err != nil {
		t.Skipf("sleep not available: %v", err)
	}
	return path
}

func TestStartProxy(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("watcher appears", func(t *testing.T) {
		cfg := proxyConfig(sleepBinary(t), sidecar.ProbeFunc(func(context.Context) error { return nil }))
		cfg.Args = []string{"30"}
		cfg.PollInterval = 10 * time.Millisecond

		proxy, err := startProxy(context.Background(), cfg, logger)
		if err != nil {
			t.Fatalf("startProxy() error = %v", err)
		}
		proc := proxy.sup.Process()
		if err := proxy.Stop(); err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
		select {
		case <-proc.Exited():
		case <-time.After(2 * time.Second):
			t.Fatal("proxy still running after Stop()")
		}
	})

	t.Run("watcher never appears", func(t *testing.T) {
		cfg := proxyConfig(sleepBinary(t), sidecar.ProbeFunc(func(context.Context) error {
			return errors.New("no watcher")
		}))
		cfg.Args = []string{"30"}
		cfg.PollAttempts = 2
		cfg.PollInterval = 10 * time.Millisecond

		proxy, err := startProxy(context.Background(), cfg, logger)
		if err == nil {
			t.Fatal("startProxy() error = nil, want tray unavailable")
		}
		if proxy != nil {
			t.Error("startProxy() should not return a proxy on failure")
		}
	})

	t.Run("binary missing", func(t *testing.T) {
		cfg := proxyConfig(filepath.Join(t.TempDir(), "snixembed"), sidecar.ProbeFunc(func(context.Context) error { return nil }))

		_, err := startProxy(context.Background(), cfg, logger)
		var spawnErr *sidecar.SpawnError
		if !errors.As(err, &spawnErr) {
			t.Errorf("startProxy() error = %v, want *sidecar.SpawnError", err)
		}
	})
}

func TestProxyConfigDoesNotSetNodeEnv(t *testing.T) {
	cfg := proxyConfig("/usr/bin/snixembed", nil)
	if cfg.ProductionEnv != "" {
		t.Errorf("ProductionEnv = %q, snixembed needs no mode variable", cfg.ProductionEnv)
	}
	if cfg.StdoutTag == sidecar.DefaultStdoutTag {
		t.Error("proxy output should be tagged separately from the API server")
	}
}
