// Package activity renders the navigation decisions of an open site.
package activity

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lazyvibe/websmith/internal/rules"
	"github.com/lazyvibe/websmith/internal/runtime/driver"
	"github.com/lazyvibe/websmith/internal/ui/styles"
)

// Model is the activity panel.
type Model struct {
	viewport  viewport.Model
	profileID string
	title     string
	running   bool
	events    []driver.NavigationEvent
	blocked   int
	focused   bool
	width     int
	height    int
}

// New creates an empty activity panel.
func New() Model {
	return Model{viewport: viewport.New(0, 0)}
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = max(w-4, 1)
	m.viewport.Height = max(h-6, 1)
	m.refresh()
}

// SetFocused updates the focus state.
func (m *Model) SetFocused(focused bool) {
	m.focused = focused
}

// ProfileID returns the profile whose activity is shown.
func (m Model) ProfileID() string {
	return m.profileID
}

// Show switches the panel to a profile. Events are replaced, the scroll
// position follows the tail.
func (m *Model) Show(profileID, title string, running bool, events []driver.NavigationEvent, blocked int) {
	switched := profileID != m.profileID
	m.profileID = profileID
	m.title = title
	m.running = running
	m.events = events
	m.blocked = blocked

	atBottom := m.viewport.AtBottom()
	m.refresh()
	if switched || atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) refresh() {
	if len(m.events) == 0 {
		msg := "No navigation yet"
		if !m.running {
			msg = "Press Enter to open this site"
		}
		m.viewport.SetContent(styles.Placeholder.Render(msg))
		return
	}
	lines := make([]string, 0, len(m.events))
	for _, e := range m.events {
		lines = append(lines, renderEvent(e, m.viewport.Width))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
}

func renderEvent(e driver.NavigationEvent, width int) string {
	stamp := styles.Label.Render(e.Time.Format("15:04:05") + " ")
	mark := styles.Allowed.Render(styles.IconAllowed + " ")
	if e.Decision == rules.Deny {
		mark = styles.Blocked.Render(styles.IconBlocked + " ")
	}
	avail := width - lipgloss.Width(stamp) - lipgloss.Width(mark)
	return stamp + mark + styles.Value.Render(styles.TruncateWithEllipsis(e.URL, avail))
}

// Update handles scrolling.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "up", "k":
			m.viewport.LineUp(1)
			return m, nil
		case "down", "j":
			m.viewport.LineDown(1)
			return m, nil
		case "home", "g":
			m.viewport.GotoTop()
			return m, nil
		case "end", "G":
			m.viewport.GotoBottom()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the panel.
func (m Model) View() string {
	icon := styles.PanelTitleIcon.Render(styles.IconActivity)
	title := "Activity"
	if m.title != "" {
		title += ": " + m.title
	}
	title = styles.TruncateWithEllipsis(title, m.width-8)
	if m.focused {
		title = styles.PanelTitleFocused.Render(title)
	} else {
		title = styles.PanelTitle.Render(title)
	}

	state := styles.StatusIdleStyle.Render(styles.IconDotEmpty + " closed")
	if m.running {
		state = styles.StatusRunningStyle.Render(styles.IconDot + " open")
	}
	summary := state + styles.ListItemDim.Render(fmt.Sprintf("%d requests, %d blocked", len(m.events), m.blocked))

	borderStyle := styles.BorderStyle
	if m.focused {
		borderStyle = styles.FocusedBorderStyle
	}
	return borderStyle.
		Width(max(m.width-2, 1)).
		Height(max(m.height-2, 1)).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			icon+title,
			summary,
			strings.Repeat("─", max(m.width-4, 1)),
			m.viewport.View(),
		))
}
