package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Options configures Setup.
type Options struct {
	// Stdout and Stderr default to os.Stdout and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
	// LogDir holds the daily log file. Empty disables file logging.
	LogDir string
	// AppName prefixes the log file name.
	AppName string
	Level   slog.Level
	// AddSource records the caller's file and line.
	AddSource bool
	// Now is used to pick the daily file; nil means time.Now.
	Now func() time.Time
}

// Setup builds the application logger: console output split by category plus,
// when LogDir is set, everything appended to <LogDir>/<AppName>-YYYY-MM-DD.log.
// The returned closer releases the log file; it is never nil.
// A log file that cannot be opened is reported in err while the console logger
// is still returned, so callers may continue without file logging.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	hopts := &slog.HandlerOptions{AddSource: opts.AddSource, Level: opts.Level}

	console := NewSplitHandler(
		slog.NewTextHandler(opts.Stdout, hopts),
		slog.NewTextHandler(opts.Stderr, hopts),
	)
	if opts.LogDir == "" {
		return slog.New(console), nopCloser{}, nil
	}

	const dirPerm = 0o700
	if err := os.MkdirAll(opts.LogDir, dirPerm); err != nil {
		return slog.New(console), nopCloser{}, fmt.Errorf("create log directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s.log", opts.AppName, opts.Now().Format("2006-01-02"))
	path := filepath.Join(opts.LogDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return slog.New(console), nopCloser{}, fmt.Errorf("open log file: %w", err)
	}

	return slog.New(NewMultiHandler(console, slog.NewTextHandler(f, hopts))), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
