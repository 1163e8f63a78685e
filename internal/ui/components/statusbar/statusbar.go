// Package statusbar provides the status bar UI component.
package statusbar

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/lazyvibe/websmith/internal/ui/keys"
	"github.com/lazyvibe/websmith/internal/ui/styles"
)

// Model is the status bar component.
type Model struct {
	width        int
	message      string
	isError      bool
	keyMap       keys.KeyMap
	sessionCount int
	driver       string
	fullHelp     bool
}

// New creates a new status bar component.
func New() Model {
	return Model{
		keyMap: keys.DefaultKeyMap(),
	}
}

// SetWidth updates the status bar width.
func (m *Model) SetWidth(width int) {
	m.width = width
}

// SetMessage sets a temporary message.
func (m *Model) SetMessage(msg string, isError bool) {
	m.message = msg
	m.isError = isError
}

// ClearMessage clears the temporary message.
func (m *Model) ClearMessage() {
	m.message = ""
	m.isError = false
}

// Message returns the current message.
func (m Model) Message() (string, bool) {
	return m.message, m.isError
}

// SetSessionCount updates the open window count.
func (m *Model) SetSessionCount(count int) {
	m.sessionCount = count
}

// SetDriver sets the browser driver badge.
func (m *Model) SetDriver(name string) {
	m.driver = strings.ToUpper(strings.TrimSpace(name))
}

// ToggleHelp switches between the short and the full key list.
func (m *Model) ToggleHelp() {
	m.fullHelp = !m.fullHelp
}

// View renders the status bar.
func (m Model) View() string {
	brand := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Render(" websmith ")

	left := brand
	if m.driver != "" {
		left += lipgloss.NewStyle().
			Foreground(styles.Base).
			Background(styles.Accent).
			Bold(true).
			Padding(0, 1).
			Render(m.driver)
	}
	if m.sessionCount > 0 {
		left += lipgloss.NewStyle().
			Foreground(styles.Secondary).
			Render(fmt.Sprintf(" %s %d open ", styles.IconDot, m.sessionCount))
	}

	bindings := m.keyMap.ShortHelp()
	if m.fullHelp {
		bindings = nil
		for _, group := range m.keyMap.FullHelp() {
			bindings = append(bindings, group...)
		}
	}
	helpItems := make([]string, 0, len(bindings)+1)
	for _, b := range bindings {
		helpItems = append(helpItems, m.renderKey(b))
	}
	if !m.fullHelp {
		helpItems = append(helpItems, m.renderKey(m.keyMap.Help))
	}
	right := strings.Join(helpItems, " ")

	var middle string
	if m.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(styles.TextMuted)
		if m.isError {
			msgStyle = lipgloss.NewStyle().Foreground(styles.Danger).Bold(true)
		}
		avail := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
		middle = msgStyle.Render(" " + styles.TruncateWithEllipsis(m.message, avail) + " ")
	}

	// The key hints give way first on narrow terminals.
	if lipgloss.Width(left)+lipgloss.Width(middle)+lipgloss.Width(right) > m.width {
		right = ""
	}

	padding := max(m.width-lipgloss.Width(left)-lipgloss.Width(middle)-lipgloss.Width(right), 0)
	leftPad := padding / 2
	content := left +
		strings.Repeat(" ", leftPad) +
		middle +
		strings.Repeat(" ", padding-leftPad) +
		right

	return lipgloss.NewStyle().
		Background(styles.Mantle).
		Foreground(styles.TextMuted).
		Width(m.width).
		MaxHeight(1).
		Render(content)
}

func (m Model) renderKey(b key.Binding) string {
	keyStyle := lipgloss.NewStyle().
		Foreground(styles.Accent).
		Bold(true)
	descStyle := lipgloss.NewStyle().
		Foreground(styles.Overlay0)
	h := b.Help()
	return keyStyle.Render(h.Key) + descStyle.Render(":"+h.Desc)
}
