package driver

import (
	"github.com/lazyvibe/websmith/internal/session"
	"github.com/lazyvibe/websmith/pkg/utils"
)

// launchFlags derives the Chromium switches honoring the session's display
// and gesture policy, followed by cfg.ExtraFlags.
func launchFlags(sess *session.Session, cfg Config) []utils.BrowserFlag {
	var flags []utils.BrowserFlag
	if !sess.ChromeVisible() {
		flags = append(flags, utils.BrowserFlag{Name: "kiosk"})
	}
	if sess.Fullscreen() {
		flags = append(flags, utils.BrowserFlag{Name: "start-fullscreen"})
	}
	if !sess.GesturesEnabled() {
		flags = append(flags, utils.BrowserFlag{Name: "overscroll-history-navigation", Value: "0"})
	}
	flags = append(flags,
		utils.BrowserFlag{Name: "no-first-run"},
		utils.BrowserFlag{Name: "no-default-browser-check"},
	)
	return append(flags, cfg.ExtraFlags...)
}

// windowSize returns the initial window size, rotated to match the lock.
func windowSize(lock session.OrientationLock, cfg Config) (int, int) {
	w, h := cfg.size()
	return orient(lock, w, h)
}

func orient(lock session.OrientationLock, w, h int) (int, int) {
	switch lock {
	case session.LockPortrait:
		if w > h {
			return h, w
		}
	case session.LockLandscape:
		if h > w {
			return h, w
		}
	}
	return w, h
}

// orientationAngle is the screen angle reported to pages for a lock.
func orientationAngle(lock session.OrientationLock) int {
	if lock == session.LockLandscape {
		return 90
	}
	return 0
}
