// Package ui provides the terminal user interface for websmith.
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lazyvibe/websmith/internal/model"
	"github.com/lazyvibe/websmith/internal/runtime/driver"
)

// ---------- Profile Messages ----------

// ProfilesLoadedMsg is sent when profiles are loaded from store.
type ProfilesLoadedMsg struct {
	Profiles []*model.Profile
	Err      error
}

// ProfileSavedMsg is sent when a profile is created or updated.
type ProfileSavedMsg struct {
	Profile *model.Profile
	IsNew   bool
}

// ProfileDeletedMsg is sent when a profile is deleted.
type ProfileDeletedMsg struct {
	ProfileID string
	Nickname  string
}

// ImportedMsg is sent when a profile file has been imported.
type ImportedMsg struct {
	Profile *model.Profile
	Source  string
}

// ExportedMsg is sent when a profile has been written to a file.
type ExportedMsg struct {
	Path string
}

// ListDownloadedMsg is sent when an adblock list fetch finishes.
type ListDownloadedMsg struct {
	ProfileID string
	URL       string
	Rules     int
	Err       error
}

// ---------- Session Messages ----------

// SessionOpenedMsg is sent when a browser window is up.
type SessionOpenedMsg struct {
	ProfileID string
	// Restarted marks a reopen after the profile was edited.
	Restarted bool
}

// NavigationMsg carries navigation decisions reported by a session.
type NavigationMsg struct {
	ProfileID string
	Events    []driver.NavigationEvent

	stream <-chan driver.NavigationEvent
}

// SessionEndedMsg is sent when a session's event stream closes.
type SessionEndedMsg struct {
	ProfileID string

	stream <-chan driver.NavigationEvent
}

// ---------- UI Messages ----------

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Err error
}

// ---------- Command Functions ----------

// maxEventBatch bounds how many navigation events one message carries.
const maxEventBatch = 64

// WaitForEvents returns a command that waits for navigation events.
// Events already queued behind the first one are delivered in the same
// message so a burst of subresource-free navigations costs one render.
func WaitForEvents(ch <-chan driver.NavigationEvent, profileID string) tea.Cmd {
	return func() tea.Msg {
		first, ok := <-ch
		if !ok {
			return SessionEndedMsg{ProfileID: profileID, stream: ch}
		}

		batch := []driver.NavigationEvent{first}
		for len(batch) < maxEventBatch {
			select {
			case next, ok := <-ch:
				if !ok {
					// The close is picked up by the next wait.
					return NavigationMsg{ProfileID: profileID, Events: batch, stream: ch}
				}
				batch = append(batch, next)
			default:
				return NavigationMsg{ProfileID: profileID, Events: batch, stream: ch}
			}
		}
		return NavigationMsg{ProfileID: profileID, Events: batch, stream: ch}
	}
}
