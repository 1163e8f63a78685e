// Package model defines core data structures for websmith.
package model

// Orientation is the screen orientation a profile forces on its surface.
type Orientation string

const (
	// OrientationSystem leaves orientation to the device (default).
	OrientationSystem Orientation = "system"
	// OrientationPortrait locks the surface to portrait.
	OrientationPortrait Orientation = "portrait"
	// OrientationLandscape locks the surface to landscape and implies fullscreen.
	OrientationLandscape Orientation = "landscape"
)

// Orientations lists every valid orientation in display order.
var Orientations = []Orientation{OrientationSystem, OrientationPortrait, OrientationLandscape}

// Valid reports whether o is one of the known orientations.
func (o Orientation) Valid() bool {
	switch o {
	case OrientationSystem, OrientationPortrait, OrientationLandscape:
		return true
	}
	return false
}

// DriverType selects the browser automation backend used to render a profile.
type DriverType string

const (
	// DriverChromedp drives Chromium through chromedp (default).
	DriverChromedp DriverType = "chromedp"
	// DriverRod drives Chromium through go-rod.
	DriverRod DriverType = "rod"
)

// SessionStatus represents the current state of a browsing session.
type SessionStatus string

const (
	// SessionStatusIdle indicates the session is not running.
	SessionStatusIdle SessionStatus = "idle"
	// SessionStatusRunning indicates the surface is open.
	SessionStatusRunning SessionStatus = "running"
	// SessionStatusStopped indicates the surface has been closed.
	SessionStatusStopped SessionStatus = "stopped"
	// SessionStatusError indicates the surface failed.
	SessionStatusError SessionStatus = "error"
)

// LegacyWhitelistPolicy controls how the historical requestWhitelist field is
// read back.
type LegacyWhitelistPolicy string

const (
	// LegacyRename copies requestWhitelist values into urlBlacklist unchanged.
	LegacyRename LegacyWhitelistPolicy = "rename"
	// LegacyAllow treats requestWhitelist values as allow-list entries.
	LegacyAllow LegacyWhitelistPolicy = "allow"
)

// Valid reports whether p is a known policy.
func (p LegacyWhitelistPolicy) Valid() bool {
	return p == LegacyRename || p == LegacyAllow
}
