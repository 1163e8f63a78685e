package editor

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func form() Model {
	return New("Edit", []Field{
		{Label: "URL", Value: "https://a.com"},
		{Label: "Cookies", Type: InputToggle, Value: "true"},
		{Label: "Orientation", Type: InputChoice, Options: []string{"system", "portrait", "landscape"}, Value: "portrait"},
		{Label: "Blacklist", Type: InputTextArea, Value: "ads.\ntrack.", Column: 1},
	})
}

func TestInitialValues(t *testing.T) {
	m := form()
	assert.Equal(t, []string{"https://a.com", "true", "portrait", "ads.\ntrack."}, m.Values())
	assert.True(t, m.Bool("Cookies"))
	assert.Equal(t, "", m.Value("missing"))
}

func TestToggleAndChoice(t *testing.T) {
	m := form()
	m, _ = m.Update(key("tab"))
	m, _ = m.Update(key(" "))
	assert.False(t, m.Bool("Cookies"))

	m, _ = m.Update(key("tab"))
	m, _ = m.Update(key("right"))
	assert.Equal(t, "landscape", m.Value("Orientation"))
	m, _ = m.Update(key("right"))
	assert.Equal(t, "system", m.Value("Orientation"))
	m, _ = m.Update(key("left"))
	assert.Equal(t, "landscape", m.Value("Orientation"))

	m, _ = m.Update(key("shift+tab"))
	m, _ = m.Update(key("enter"))
	assert.True(t, m.Bool("Cookies"))
	assert.False(t, m.IsSubmitted())
}

func TestSubmitAndCancel(t *testing.T) {
	m := form()
	m, _ = m.Update(key("enter"))
	assert.True(t, m.IsSubmitted())

	m.SetError("url is required")
	assert.False(t, m.IsSubmitted())
	assert.Contains(t, m.View(), "url is required")

	m, _ = m.Update(key("ctrl+s"))
	assert.True(t, m.IsSubmitted())

	m, _ = m.Update(key("esc"))
	assert.True(t, m.IsCancelled())
}

func TestTypingIntoFocusedField(t *testing.T) {
	m := New("Add", []Field{{Label: "Nickname"}})
	m, _ = m.Update(key("n"))
	m, _ = m.Update(key("e"))
	assert.Equal(t, "ne", m.Value("Nickname"))
}
