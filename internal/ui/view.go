package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/lazyvibe/websmith/internal/ui/styles"
)

// View renders the entire application.
func (a App) View() string {
	if a.quitting {
		return a.centered(lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Primary).
			Render("Closing windows..."))
	}

	if !a.ready {
		return a.centered(lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Accent).
			Render("Loading websmith..."))
	}

	if a.windowTooSmall() {
		msg := fmt.Sprintf("Window too small: need at least %dx%d (now %dx%d)", minAppWidth, minAppHeight, a.width, a.height)
		return a.centered(lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Accent).
			Render(msg))
	}

	if a.dialogMode != DialogNone {
		return a.renderDialog()
	}

	main := lipgloss.JoinHorizontal(
		lipgloss.Top,
		a.siteList.View(),
		a.activity.View(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, main, a.statusBar.View())
}

func (a App) centered(s string) string {
	return lipgloss.NewStyle().
		Width(a.width).
		Height(a.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(s)
}

// renderDialog draws the open dialog in place of the panes. The status
// bar stays visible so errors from the last action can still be read.
func (a App) renderDialog() string {
	var body string
	switch a.dialogMode {
	case DialogEditSite, DialogSettings:
		// The form centers itself.
		body = a.form.View()
	default:
		body = lipgloss.Place(a.width, a.height-1, lipgloss.Center, lipgloss.Center, a.input.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().MaxHeight(a.height-1).Render(body),
		a.statusBar.View(),
	)
}
