// Package main implements a cross-platform system tray shell for a desktop app
// whose backend is a local API server. On startup it launches the server as a
// supervised child process, relays the child's output into the application
// log, and waits until the server accepts connections on its loopback port.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/codeGROOVE-dev/trayhost/cmd/trayhost/x11tray"
	"github.com/codeGROOVE-dev/trayhost/pkg/appsettings"
	"github.com/codeGROOVE-dev/trayhost/pkg/logging"
	"github.com/codeGROOVE-dev/trayhost/pkg/sidecar"
	"github.com/energye/systray"
)

// Version information - set during build with -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const appName = "trayhost"

// options is the merged result of persisted settings and command line flags.
type options struct {
	settings appsettings.Settings
	mode     sidecar.Mode
	headless bool
	debug    bool
	version  bool
}

// parseFlags registers the command line flags on fs with defaults taken from saved.
func parseFlags(fs *flag.FlagSet, args []string, saved appsettings.Settings) (options, error) {
	s := saved.WithDefaults()
	var o options

	dev := fs.Bool("dev", defaultMode == sidecar.Development,
		"Development mode: do not launch the API server, expect one started separately")
	fs.BoolVar(&o.headless, "headless", false, "Run without a system tray until SIGINT or SIGTERM")
	fs.BoolVar(&o.debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&o.version, "version", false, "Show version information and exit")
	fs.StringVar(&s.ResourceDir, "resources", s.ResourceDir, "Bundled resource directory (default: beside the executable)")
	fs.StringVar(&s.Entry, "entry", s.Entry, "API server entry point, relative to the resource directory")
	fs.StringVar(&s.Interpreter, "interpreter", s.Interpreter, "Program that runs the entry point (\"none\": execute the entry directly)")
	fs.StringVar(&s.ReadinessAddress, "addr", s.ReadinessAddress, "host:port the API server listens on")
	fs.IntVar(&s.PollAttempts, "attempts", s.PollAttempts, "Readiness probe attempts before continuing anyway")
	interval := fs.Duration("interval", time.Duration(s.PollInterval), "Delay before each readiness probe")
	fs.BoolVar(&s.KeepServer, "keep-server", s.KeepServer, "Leave the API server running when the tray exits")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	s.PollInterval = appsettings.Duration(*interval)
	if s.Interpreter == "" {
		s.Interpreter = appsettings.NoInterpreter
	}
	if err := s.Validate(); err != nil {
		return options{}, fmt.Errorf("invalid options: %w", err)
	}

	o.settings = s
	o.mode = sidecar.Production
	if *dev {
		o.mode = sidecar.Development
	}
	return o, nil
}

// supervisorConfig builds the API server supervision config.
// Relative entries are resolved against the host resource directory.
func supervisorConfig(o options, host sidecar.Host) sidecar.Config {
	s := o.settings
	cfg := sidecar.DefaultConfig()
	cfg.Mode = o.mode
	cfg.Interpreter = s.InterpreterCommand()
	cfg.ReadinessAddress = s.ReadinessAddress
	cfg.PollAttempts = s.PollAttempts
	cfg.PollInterval = time.Duration(s.PollInterval)

	if filepath.IsAbs(s.Entry) {
		cfg.EntryPath = s.Entry
	} else {
		cfg.EntryPath = sidecar.ResolveEntry(host, s.Entry)
	}
	return cfg
}

func main() {
	settingsMgr := appsettings.NewManager(appName)
	saved, found, settingsErr := settingsMgr.Load()

	opts, err := parseFlags(flag.CommandLine, os.Args[1:], saved)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if opts.version {
		fmt.Printf("%s version %s\ncommit: %s\nbuilt: %s\n", appName, version, commit, date)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if opts.debug {
		logLevel = slog.LevelDebug
	}
	var logDir string
	if cacheDir, err := os.UserCacheDir(); err == nil {
		logDir = filepath.Join(cacheDir, appName, "logs")
	}
	logger, logCloser, logErr := logging.Setup(logging.Options{
		LogDir:    logDir,
		AppName:   appName,
		Level:     logLevel,
		AddSource: true,
	})
	defer func() {
		if err := logCloser.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "close log file:", err)
		}
	}()
	slog.SetDefault(logger)

	slog.Info("Starting trayhost", "version", version, "commit", commit, "date", date, "mode", opts.mode)
	if logErr != nil {
		slog.Warn("Continuing without file logging", "error", logErr)
	} else if logDir != "" {
		slog.Info("Logs are being written to", "dir", logDir)
	}
	switch {
	case settingsErr != nil:
		slog.Warn("[SETTINGS] Using default settings", "error", settingsErr)
	case !found:
		slog.Debug("[SETTINGS] No settings file, using defaults")
	default:
		slog.Debug("[SETTINGS] Loaded settings", "settings", opts.settings)
	}

	host := newResourceHost(opts.settings.ResourceDir)
	sup, err := sidecar.New(supervisorConfig(opts, host), logger)
	if err != nil {
		slog.Error("Invalid API server configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if opts.headless {
		app := newApp(sup, opts.settings, logger)
		app.tray = nil
		runHeadless(ctx, app)
		return
	}

	slog.Info("Checking system tray availability...")
	trayProxy, err := x11tray.EnsureTray(ctx, logger)
	if err != nil {
		slog.Error("FATAL: System tray unavailable",
			"error", err,
			"help", "Ensure your desktop environment has a system tray, install snixembed, or run with -headless")
		os.Exit(1)
	}

	app := newApp(sup, opts.settings, logger)
	slog.Info("Starting systray...")
	systray.Run(func() { app.onReady(ctx) }, func() {
		slog.Info("Shutting down application")
		cancel()
		app.shutdown()
		if trayProxy != nil {
			slog.Info("Stopping system tray proxy")
			if err := trayProxy.Stop(); err != nil {
				slog.Warn("Failed to stop tray proxy cleanly", "error", err)
			}
		}
	})
}
