package main

import (
	"github.com/gen2brain/beeep"
)

// desktopNotify shows a desktop notification without an icon.
func desktopNotify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// notifyBestEffort sends a notification unless the same title was sent recently.
func (app *App) notifyBestEffort(title, message string) {
	if !app.notices.Allow(title) {
		app.logger.Debug("[NOTIFY] Suppressing repeated notification", "title", title)
		return
	}
	app.logger.Info("[NOTIFY] Sending notification", "title", title)
	bestEffort(app.logger, "desktop notification", app.notify(title, message))
}
