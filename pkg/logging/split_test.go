package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSplitHandler_RoutesByLevel(t *testing.T) {
	tests := []struct {
		name      string
		log       func(*slog.Logger)
		wantInfo  bool
		wantError bool
	}{
		{name: "debug", log: func(l *slog.Logger) { l.Debug("msg") }, wantInfo: true},
		{name: "info", log: func(l *slog.Logger) { l.Info("msg") }, wantInfo: true},
		{name: "warn", log: func(l *slog.Logger) { l.Warn("msg") }, wantError: true},
		{name: "error", log: func(l *slog.Logger) { l.Error("msg") }, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var info, errs bytes.Buffer
			opts := &slog.HandlerOptions{Level: slog.LevelDebug}
			h := NewSplitHandler(slog.NewTextHandler(&info, opts), slog.NewTextHandler(&errs, opts))
			tt.log(slog.New(h))

			if got := info.Len() > 0; got != tt.wantInfo {
				t.Errorf("info sink written = %v, want %v (%q)", got, tt.wantInfo, info.String())
			}
			if got := errs.Len() > 0; got != tt.wantError {
				t.Errorf("error sink written = %v, want %v (%q)", got, tt.wantError, errs.String())
			}
		})
	}
}

func TestSplitHandler_Enabled(t *testing.T) {
	h := NewSplitHandler(
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	ctx := context.Background()
	if h.Enabled(ctx, slog.LevelInfo) {
		t.Error("info should follow the info sink level")
	}
	if !h.Enabled(ctx, slog.LevelWarn) {
		t.Error("warn should follow the error sink level")
	}
}

func TestSplitHandler_WithAttrsAndGroup(t *testing.T) {
	var info, errs bytes.Buffer
	h := NewSplitHandler(slog.NewTextHandler(&info, nil), slog.NewTextHandler(&errs, nil))
	l := slog.New(h).With("pid", 42).WithGroup("server")
	l.Info("out", "line", "a")
	l.Error("err", "line", "b")

	if !strings.Contains(info.String(), "pid=42") || !strings.Contains(info.String(), "server.line=a") {
		t.Errorf("info sink = %q", info.String())
	}
	if !strings.Contains(errs.String(), "pid=42") || !strings.Contains(errs.String(), "server.line=b") {
		t.Errorf("error sink = %q", errs.String())
	}
}

func TestSetup_ConsoleOnly(t *testing.T) {
	var out, errOut bytes.Buffer
	logger, closer, err := Setup(Options{Stdout: &out, Stderr: &errOut, Level: slog.LevelInfo})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer closer.Close() //nolint:errcheck // nop closer

	logger.Info("[API] ready")
	logger.Warn("[SIDECAR] timed out")

	if !strings.Contains(out.String(), "[API] ready") {
		t.Errorf("stdout = %q, want relayed line", out.String())
	}
	if strings.Contains(out.String(), "timed out") {
		t.Errorf("stdout should not carry warnings: %q", out.String())
	}
	if !strings.Contains(errOut.String(), "[SIDECAR] timed out") {
		t.Errorf("stderr = %q, want warning", errOut.String())
	}
}

func TestSetup_DailyFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	day := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	logger, closer, err := Setup(Options{
		Stdout:  &bytes.Buffer{},
		Stderr:  &bytes.Buffer{},
		LogDir:  dir,
		AppName: "trayhost",
		Level:   slog.LevelInfo,
		Now:     func() time.Time { return day },
	})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	logger.Info("[API] one")
	logger.Error("[API ERR] two")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "trayhost-2026-03-04.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, want := range []string{"[API] one", "[API ERR] two"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log file missing %q: %s", want, data)
		}
	}
}

func TestSetup_UnwritableDirFallsBack(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out bytes.Buffer
	logger, closer, err := Setup(Options{Stdout: &out, Stderr: &bytes.Buffer{}, LogDir: filepath.Join(file, "logs")})
	if err == nil {
		t.Fatal("Setup() error = nil, want log directory error")
	}
	if logger == nil || closer == nil {
		t.Fatal("Setup() must still return a console logger and closer")
	}
	logger.Info("still works")
	if !strings.Contains(out.String(), "still works") {
		t.Errorf("console output = %q", out.String())
	}
}
