package main

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codeGROOVE-dev/trayhost/pkg/appsettings"
	"github.com/codeGROOVE-dev/trayhost/pkg/dedup"
	"github.com/codeGROOVE-dev/trayhost/pkg/icon"
	"github.com/codeGROOVE-dev/trayhost/pkg/safebrowse"
	"github.com/codeGROOVE-dev/trayhost/pkg/sidecar"
	"github.com/energye/systray"
)

const (
	menuShowWindow = "Show Window"
	menuQuit       = "Quit"

	clickDebounce  = 2 * time.Second
	noticeDebounce = time.Minute
)

// App holds the tray state for one supervised API server.
type App struct {
	tray       SystrayInterface
	statusItem MenuItem
	sup        *sidecar.Supervisor
	icons      *icon.Cache
	clicks     *dedup.Gate
	notices    *dedup.Gate
	logger     *slog.Logger
	notify     func(title, message string) error
	openURL    func(ctx context.Context, rawURL string) error
	done       chan struct{}
	localURL   string
	statusText string
	grace      time.Duration
	mu         sync.Mutex
	status     icon.Status
	running    atomic.Bool
	keepServer bool
}

func newApp(sup *sidecar.Supervisor, s appsettings.Settings, logger *slog.Logger) *App {
	app := &App{
		tray:       &RealSystray{},
		sup:        sup,
		icons:      icon.NewCache(),
		clicks:     dedup.New(clickDebounce, 8),
		notices:    dedup.New(noticeDebounce, 32),
		logger:     logger,
		notify:     desktopNotify,
		openURL:    safebrowse.OpenLocal,
		done:       make(chan struct{}),
		grace:      time.Duration(s.ShutdownGrace),
		keepServer: s.KeepServer,
		status:     icon.Starting,
	}
	u, err := safebrowse.LocalURL(sup.Config().ReadinessAddress)
	if err != nil {
		logger.Warn("[TRAY] API server address cannot be opened in a browser", "error", err)
	}
	app.localURL = u
	return app
}

// statusFor maps a supervision outcome to the tray status shown to the user.
func statusFor(outcome sidecar.Outcome) (icon.Status, string) {
	switch outcome {
	case sidecar.Ready:
		return icon.Ready, "API server: running"
	case sidecar.TimedOutContinuing:
		return icon.Degraded, "API server: not responding"
	case sidecar.Skipped:
		return icon.External, "API server: external (development)"
	default:
		return icon.Failed, "API server: unknown state"
	}
}

func (app *App) onReady(ctx context.Context) {
	app.logger.Info("[TRAY] System tray ready")

	app.tray.SetOnClick(func(menu systray.IMenu) {
		if menu != nil {
			bestEffort(app.logger, "show menu", menu.ShowMenu())
		}
	})
	app.buildMenu(ctx)
	app.setStatus(icon.Starting, "API server: starting")
	app.start(ctx)
}

func (app *App) buildMenu(ctx context.Context) {
	status := app.tray.AddMenuItem("API server: starting", "API server status")
	status.Disable()
	app.mu.Lock()
	app.statusItem = status
	app.mu.Unlock()

	app.tray.AddSeparator()
	show := app.tray.AddMenuItem(menuShowWindow, "Open the app in your browser")
	if app.localURL == "" {
		show.Disable()
	}
	show.Click(func() { app.showWindow(ctx) })

	app.tray.AddSeparator()
	quit := app.tray.AddMenuItem(menuQuit, "Stop the API server and quit")
	quit.Click(func() {
		app.logger.Info("[TRAY] Quit requested")
		app.tray.Quit()
	})
}

// start launches supervision in the background; the caller never waits on it.
func (app *App) start(ctx context.Context) {
	if !app.running.CompareAndSwap(false, true) {
		return
	}
	go app.supervise(ctx)
}

func (app *App) supervise(ctx context.Context) {
	defer close(app.done)

	err := safeExecute("supervise API server", func() error {
		outcome, err := app.sup.Start(ctx)
		if err != nil {
			app.notifyBestEffort("API server failed to start", err.Error())
			return err
		}

		st, text := statusFor(outcome)
		app.setStatus(st, text)
		if outcome == sidecar.TimedOutContinuing {
			app.notifyBestEffort("API server is slow to start",
				"The server did not answer in time; the app will keep trying to use it.")
		}

		if proc := app.sup.Process(); proc != nil {
			go app.watchExit(ctx, proc)
		}
		return nil
	})
	if err != nil {
		app.setStatus(icon.Failed, "API server: failed to start")
	}
}

// watchExit reports a child that exits while the tray is still running.
func (app *App) watchExit(ctx context.Context, proc *sidecar.Process) {
	err := proc.Wait(ctx)
	if ctx.Err() != nil {
		return
	}
	app.logger.Warn("[TRAY] API server exited", "pid", proc.PID(), "error", err)
	app.setStatus(icon.Failed, "API server: exited")
}

func (app *App) setStatus(st icon.Status, text string) {
	app.mu.Lock()
	app.status = st
	app.statusText = text
	tray, item := app.tray, app.statusItem
	app.mu.Unlock()

	app.logger.Debug("[TRAY] Status changed", "status", st, "text", text)
	if tray == nil {
		return
	}

	if b, err := app.icons.Get(st); err != nil {
		bestEffort(app.logger, "render status icon", err)
	} else {
		tray.SetIcon(b)
	}
	tray.SetTooltip("trayhost - " + text)
	if item != nil {
		item.SetTitle(text)
	}
}

// Status returns the current tray status and its description.
func (app *App) Status() (icon.Status, string) {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.status, app.statusText
}

func (app *App) showWindow(ctx context.Context) {
	if app.localURL == "" {
		app.logger.Warn("[TRAY] No local URL to open")
		return
	}
	if !app.clicks.Allow(menuShowWindow) {
		app.logger.Debug("[TRAY] Ignoring repeated Show Window click")
		return
	}
	app.logger.Info("[TRAY] Opening window", "url", app.localURL)
	bestEffort(app.logger, "open window", app.openURL(ctx, app.localURL))
}

// shutdown stops the API server unless it should outlive the tray.
// An in-flight supervision is given up to the grace period to return first.
func (app *App) shutdown() {
	if app.running.Load() {
		select {
		case <-app.done:
		case <-time.After(app.grace):
			app.logger.Warn("[TRAY] Supervision still running at shutdown")
		}
	}

	if app.keepServer {
		if proc := app.sup.Process(); proc != nil {
			app.logger.Info("[TRAY] Leaving API server running", "pid", proc.PID())
		}
		return
	}
	app.logger.Info("[TRAY] Stopping API server", "grace", app.grace)
	bestEffort(app.logger, "stop API server", app.sup.Stop(app.grace))
}
