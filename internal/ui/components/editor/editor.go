// Package editor provides a two-column form dialog with text, multi-line,
// toggle and choice fields.
package editor

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// InputType defines the type of input field.
type InputType int

const (
	InputText InputType = iota
	InputTextArea
	InputToggle
	InputChoice
)

// Field represents a single input field in the dialog.
type Field struct {
	Label       string
	Placeholder string
	Value       string
	Type        InputType
	// Options lists the values of an InputChoice field.
	Options []string
	// Column is 0 for the left column and 1 for the right one.
	Column int
	// Header, when set, starts a new section above the field.
	Header string
}

// WrappedInput is the common interface of all field widgets.
type WrappedInput interface {
	Update(tea.Msg) (WrappedInput, tea.Cmd)
	View() string
	Focus() (WrappedInput, tea.Cmd)
	Blur() WrappedInput
	SetValue(string) WrappedInput
	Value() string
}

// TextInputWrapper wraps textinput.Model.
type TextInputWrapper struct {
	model textinput.Model
}

func (w TextInputWrapper) Update(msg tea.Msg) (WrappedInput, tea.Cmd) {
	var cmd tea.Cmd
	w.model, cmd = w.model.Update(msg)
	return w, cmd
}
func (w TextInputWrapper) View() string { return w.model.View() }
func (w TextInputWrapper) Focus() (WrappedInput, tea.Cmd) {
	cmd := w.model.Focus()
	return w, cmd
}
func (w TextInputWrapper) Blur() WrappedInput {
	w.model.Blur()
	return w
}
func (w TextInputWrapper) SetValue(s string) WrappedInput {
	w.model.SetValue(s)
	return w
}
func (w TextInputWrapper) Value() string { return w.model.Value() }

// TextAreaWrapper wraps textarea.Model.
type TextAreaWrapper struct {
	model textarea.Model
}

func (w TextAreaWrapper) Update(msg tea.Msg) (WrappedInput, tea.Cmd) {
	var cmd tea.Cmd
	w.model, cmd = w.model.Update(msg)
	return w, cmd
}
func (w TextAreaWrapper) View() string { return w.model.View() }
func (w TextAreaWrapper) Focus() (WrappedInput, tea.Cmd) {
	cmd := w.model.Focus()
	return w, cmd
}
func (w TextAreaWrapper) Blur() WrappedInput {
	w.model.Blur()
	return w
}
func (w TextAreaWrapper) SetValue(s string) WrappedInput {
	w.model.SetValue(s)
	return w
}
func (w TextAreaWrapper) Value() string { return w.model.Value() }

// ToggleWrapper is a boolean switch flipped with space or enter.
type ToggleWrapper struct {
	on      bool
	focused bool
}

func (w ToggleWrapper) Update(msg tea.Msg) (WrappedInput, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && w.focused {
		switch km.String() {
		case " ", "enter", "left", "right":
			w.on = !w.on
		}
	}
	return w, nil
}
func (w ToggleWrapper) View() string {
	if w.on {
		return "[x] on"
	}
	return "[ ] off"
}
func (w ToggleWrapper) Focus() (WrappedInput, tea.Cmd) {
	w.focused = true
	return w, nil
}
func (w ToggleWrapper) Blur() WrappedInput {
	w.focused = false
	return w
}
func (w ToggleWrapper) SetValue(s string) WrappedInput {
	w.on, _ = strconv.ParseBool(s)
	return w
}
func (w ToggleWrapper) Value() string { return strconv.FormatBool(w.on) }

// ChoiceWrapper cycles through fixed options with left and right.
type ChoiceWrapper struct {
	options []string
	index   int
	focused bool
}

func (w ChoiceWrapper) Update(msg tea.Msg) (WrappedInput, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && w.focused && len(w.options) > 0 {
		switch km.String() {
		case "right", " ", "l":
			w.index = (w.index + 1) % len(w.options)
		case "left", "h":
			w.index = (w.index + len(w.options) - 1) % len(w.options)
		}
	}
	return w, nil
}
func (w ChoiceWrapper) View() string {
	if len(w.options) == 0 {
		return ""
	}
	return "‹ " + w.options[w.index] + " ›"
}
func (w ChoiceWrapper) Focus() (WrappedInput, tea.Cmd) {
	w.focused = true
	return w, nil
}
func (w ChoiceWrapper) Blur() WrappedInput {
	w.focused = false
	return w
}
func (w ChoiceWrapper) SetValue(s string) WrappedInput {
	for i, o := range w.options {
		if o == s {
			w.index = i
		}
	}
	return w
}
func (w ChoiceWrapper) Value() string {
	if len(w.options) == 0 {
		return ""
	}
	return w.options[w.index]
}

// Model is the form dialog.
type Model struct {
	title  string
	inputs []WrappedInput
	fields []Field

	focusIndex int
	width      int
	height     int
	submitted  bool
	cancelled  bool
	errMsg     string
	styles     Styles
}

// Styles defines the visual appearance.
type Styles struct {
	Box          lipgloss.Style
	Title        lipgloss.Style
	Label        lipgloss.Style
	LabelFocused lipgloss.Style
	Header       lipgloss.Style
	Input        lipgloss.Style
	InputFocused lipgloss.Style
	Error        lipgloss.Style
	Help         lipgloss.Style
}

func DefaultStyles() Styles {
	purple := lipgloss.Color("#7C3AED")
	cyan := lipgloss.Color("#06B6D4")
	red := lipgloss.Color("#F38BA8")
	surface := lipgloss.Color("#1E1E2E")
	surfaceLight := lipgloss.Color("#313244")
	textMuted := lipgloss.Color("#6C7086")

	return Styles{
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple).
			Background(surface).
			Padding(1, 1),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(cyan).
			Background(surface).
			Padding(0, 1).
			MarginBottom(1),
		Label: lipgloss.NewStyle().
			Foreground(textMuted),
		LabelFocused: lipgloss.NewStyle().
			Foreground(purple).
			Bold(true),
		Header: lipgloss.NewStyle().
			Foreground(cyan).
			Bold(true),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(surfaceLight).
			Padding(0, 1),
		InputFocused: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple).
			Padding(0, 1),
		Error: lipgloss.NewStyle().
			Foreground(red).
			Bold(true),
		Help: lipgloss.NewStyle().
			Foreground(textMuted).
			MarginTop(1),
	}
}

// New creates a form dialog. The first field receives focus.
func New(title string, fields []Field) Model {
	inputs := make([]WrappedInput, len(fields))

	for i, f := range fields {
		switch f.Type {
		case InputTextArea:
			ta := textarea.New()
			ta.Placeholder = f.Placeholder
			ta.SetWidth(40)
			ta.SetHeight(3)
			ta.CharLimit = 0
			ta.ShowLineNumbers = false
			inputs[i] = TextAreaWrapper{model: ta}
		case InputToggle:
			inputs[i] = ToggleWrapper{}
		case InputChoice:
			inputs[i] = ChoiceWrapper{options: append([]string(nil), f.Options...)}
		default:
			ti := textinput.New()
			ti.Placeholder = f.Placeholder
			ti.CharLimit = 2048
			ti.Width = 34
			inputs[i] = TextInputWrapper{model: ti}
		}
		inputs[i] = inputs[i].SetValue(f.Value)
		if i == 0 {
			inputs[i], _ = inputs[i].Focus()
		}
	}

	return Model{
		title:  title,
		inputs: inputs,
		fields: fields,
		styles: DefaultStyles(),
	}
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetError shows a validation message and reopens the form.
func (m *Model) SetError(msg string) {
	m.errMsg = msg
	m.submitted = false
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "tab", "down":
			if km.String() == "down" && m.fields[m.focusIndex].Type == InputTextArea {
				break
			}
			m.focusIndex = (m.focusIndex + 1) % len(m.inputs)
			return m, m.updateFocus()

		case "shift+tab", "up":
			if km.String() == "up" && m.fields[m.focusIndex].Type == InputTextArea {
				break
			}
			m.focusIndex = (m.focusIndex + len(m.inputs) - 1) % len(m.inputs)
			return m, m.updateFocus()

		// Text areas consume Enter, so submission uses Ctrl+S.
		case "ctrl+s":
			m.submitted = true
			return m, nil

		case "enter":
			if m.fields[m.focusIndex].Type == InputText {
				m.submitted = true
				return m, nil
			}

		case "esc":
			m.cancelled = true
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
	return m, cmd
}

func (m *Model) updateFocus() tea.Cmd {
	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		if i == m.focusIndex {
			m.inputs[i], cmds[i] = m.inputs[i].Focus()
		} else {
			m.inputs[i] = m.inputs[i].Blur()
		}
	}
	return tea.Batch(cmds...)
}

func (m Model) View() string {
	var columns [2]strings.Builder

	for i, f := range m.fields {
		b := &columns[0]
		if f.Column == 1 {
			b = &columns[1]
		}
		if f.Header != "" {
			b.WriteString(m.styles.Header.Render(f.Header) + "\n")
		}

		labelStyle := m.styles.Label
		inputStyle := m.styles.Input
		if i == m.focusIndex {
			labelStyle = m.styles.LabelFocused
			inputStyle = m.styles.InputFocused
		}

		if f.Type == InputToggle || f.Type == InputChoice {
			marker := "  "
			if i == m.focusIndex {
				marker = "› "
			}
			b.WriteString(labelStyle.Render(marker+f.Label+": ") + m.inputs[i].View() + "\n")
			continue
		}
		b.WriteString(labelStyle.Render(f.Label) + "\n")
		b.WriteString(inputStyle.Render(m.inputs[i].View()) + "\n")
	}

	left := lipgloss.NewStyle().
		Width(42).
		PaddingRight(1).
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(lipgloss.Color("240")).
		Render(columns[0].String())
	body := left
	if columns[1].Len() > 0 {
		right := lipgloss.NewStyle().PaddingLeft(1).Render(columns[1].String())
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	}

	parts := []string{m.styles.Title.Render("✨ " + m.title), body}
	if m.errMsg != "" {
		parts = append(parts, m.styles.Error.Render("❌ "+m.errMsg))
	}
	parts = append(parts, m.styles.Help.Render("Tab: Next • Space/←/→: Change • Ctrl+S: Save • Esc: Cancel"))

	box := m.styles.Box.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	if m.width > 0 && m.height > 0 {
		box = lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}

func (m Model) IsSubmitted() bool { return m.submitted }
func (m Model) IsCancelled() bool { return m.cancelled }

// Values returns the raw value of every field in order.
func (m Model) Values() []string {
	values := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		values[i] = input.Value()
	}
	return values
}

// Value returns the value of the field with the given label.
func (m Model) Value(label string) string {
	for i, f := range m.fields {
		if f.Label == label {
			return m.inputs[i].Value()
		}
	}
	return ""
}

// Bool returns a toggle field's state by label.
func (m Model) Bool(label string) bool {
	b, _ := strconv.ParseBool(m.Value(label))
	return b
}
