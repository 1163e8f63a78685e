// Package dialog provides modal input and confirmation dialogs.
package dialog

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lazyvibe/websmith/internal/ui/styles"
	"github.com/lazyvibe/websmith/pkg/utils"
)

const maxSuggestions = 5

// InputField represents a single input field in the dialog.
type InputField struct {
	Label          string
	Placeholder    string
	Value          string
	EnablePathComp bool
	// PathExtensions limits path completion to files with these extensions.
	PathExtensions []string
	Options        []string
}

type field struct {
	label     string
	input     textinput.Model
	completer *utils.PathCompleter
	options   []string
}

func (f field) completes() bool {
	return f.completer != nil || len(f.options) > 0
}

// InputDialog is a modal dialog for text input. A dialog without fields is
// a confirmation prompt.
type InputDialog struct {
	title      string
	message    string
	fields     []field
	focusIndex int
	width      int
	height     int
	submitted  bool
	cancelled  bool
	styles     InputStyles

	suggestions     []string
	suggestionIndex int
	showSuggestions bool
}

// InputStyles defines the visual appearance of the dialog.
type InputStyles struct {
	Box          lipgloss.Style
	Title        lipgloss.Style
	Message      lipgloss.Style
	Label        lipgloss.Style
	LabelFocused lipgloss.Style
	Input        lipgloss.Style
	InputFocused lipgloss.Style
	Suggestion   lipgloss.Style
	Selected     lipgloss.Style
	Help         lipgloss.Style
}

// DefaultInputStyles returns the default dialog styles.
func DefaultInputStyles() InputStyles {
	input := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Surface0).
		Padding(0, 1).
		MarginBottom(1)

	return InputStyles{
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.Primary).
			Background(styles.Base).
			Padding(1, 2),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Accent).
			Padding(0, 1).
			MarginBottom(1),
		Message: lipgloss.NewStyle().
			Foreground(styles.TextCol).
			Width(48).
			MarginBottom(1),
		Label:        lipgloss.NewStyle().Foreground(styles.Overlay0),
		LabelFocused: lipgloss.NewStyle().Foreground(styles.Pink).Bold(true),
		Input:        input,
		InputFocused: input.BorderForeground(styles.Primary),
		Suggestion:   lipgloss.NewStyle().Foreground(styles.Overlay0).PaddingLeft(2),
		Selected:     lipgloss.NewStyle().Foreground(styles.Accent).Bold(true).PaddingLeft(2),
		Help: lipgloss.NewStyle().
			Foreground(styles.Overlay0).
			MarginTop(1),
	}
}

// NewInputDialog creates a new input dialog.
func NewInputDialog(title string, fields []InputField) InputDialog {
	d := InputDialog{
		title:  title,
		fields: make([]field, len(fields)),
		styles: DefaultInputStyles(),
	}
	for i, f := range fields {
		ti := textinput.New()
		ti.Placeholder = f.Placeholder
		ti.SetValue(f.Value)
		ti.CharLimit = 1024
		ti.Width = 44
		if i == 0 {
			ti.Focus()
		}

		d.fields[i] = field{label: f.Label, input: ti}
		if f.EnablePathComp {
			d.fields[i].completer = utils.NewPathCompleter(f.PathExtensions...)
		}
		if len(f.Options) > 0 {
			d.fields[i].options = append([]string{}, f.Options...)
		}
	}
	return d
}

// NewConfirmDialog creates a yes/no prompt. Enter or y confirms.
func NewConfirmDialog(title, message string) InputDialog {
	d := NewInputDialog(title, nil)
	d.message = message
	return d
}

// SetMessage sets the text shown under the title.
func (d *InputDialog) SetMessage(msg string) {
	d.message = msg
}

// SetSize updates the dialog dimensions.
func (d *InputDialog) SetSize(width, height int) {
	d.width = width
	d.height = height
}

// Update handles input dialog messages.
func (d InputDialog) Update(msg tea.Msg) (InputDialog, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return d, nil
	}

	if len(d.fields) == 0 {
		switch km.String() {
		case "enter", "y", "Y":
			d.submitted = true
		case "esc", "n", "N", "q":
			d.cancelled = true
		}
		return d, nil
	}

	switch km.String() {
	case "tab":
		if d.cycleSuggestion(1) {
			return d, nil
		}
		return d, d.moveFocus(1)
	case "shift+tab":
		if d.cycleSuggestion(-1) {
			return d, nil
		}
		return d, d.moveFocus(-1)
	case "down":
		return d, d.moveFocus(1)
	case "up":
		return d, d.moveFocus(-1)
	case "enter":
		d.submitted = true
		return d, nil
	case "esc":
		if d.showSuggestions {
			d.hideSuggestions()
			return d, nil
		}
		d.cancelled = true
		return d, nil
	case "ctrl+space":
		d.updateSuggestions()
		return d, nil
	}

	var cmd tea.Cmd
	f := &d.fields[d.focusIndex]
	f.input, cmd = f.input.Update(msg)
	d.updateSuggestions()
	return d, cmd
}

func (d *InputDialog) cycleSuggestion(delta int) bool {
	if !d.showSuggestions || len(d.suggestions) == 0 {
		return false
	}
	n := len(d.suggestions)
	d.suggestionIndex = (d.suggestionIndex + delta + n) % n
	f := &d.fields[d.focusIndex]
	f.input.SetValue(d.suggestions[d.suggestionIndex])
	f.input.CursorEnd()
	return true
}

func (d *InputDialog) moveFocus(delta int) tea.Cmd {
	n := len(d.fields)
	d.focusIndex = (d.focusIndex + delta + n) % n
	d.hideSuggestions()

	cmds := make([]tea.Cmd, n)
	for i := range d.fields {
		if i == d.focusIndex {
			cmds[i] = d.fields[i].input.Focus()
		} else {
			d.fields[i].input.Blur()
		}
	}
	return tea.Batch(cmds...)
}

func (d *InputDialog) hideSuggestions() {
	d.showSuggestions = false
	d.suggestions = nil
	d.suggestionIndex = 0
}

func (d *InputDialog) updateSuggestions() {
	f := d.fields[d.focusIndex]
	input := f.input.Value()
	switch {
	case f.completer != nil:
		d.suggestions = f.completer.Complete(input)
	case len(f.options) > 0:
		d.suggestions = matchOptions(f.options, input)
	default:
		d.suggestions = nil
	}
	d.suggestionIndex = 0
	d.showSuggestions = len(d.suggestions) > 0
}

// matchOptions prefers prefix matches and falls back to substring matches.
func matchOptions(opts []string, input string) []string {
	if input == "" {
		return opts
	}
	lower := strings.ToLower(input)
	var prefix, contains []string
	for _, opt := range opts {
		o := strings.ToLower(opt)
		switch {
		case strings.HasPrefix(o, lower):
			prefix = append(prefix, opt)
		case strings.Contains(o, lower):
			contains = append(contains, opt)
		}
	}
	if len(prefix) > 0 {
		return prefix
	}
	return contains
}

// View renders the dialog.
func (d InputDialog) View() string {
	var b strings.Builder

	b.WriteString(d.styles.Title.Render(d.title))
	b.WriteString("\n")
	if d.message != "" {
		b.WriteString(d.styles.Message.Render(d.message))
		b.WriteString("\n")
	}

	for i, f := range d.fields {
		labelStyle, inputStyle := d.styles.Label, d.styles.Input
		if i == d.focusIndex {
			labelStyle, inputStyle = d.styles.LabelFocused, d.styles.InputFocused
		}
		b.WriteString(labelStyle.Render(f.label))
		b.WriteString("\n")
		b.WriteString(inputStyle.Render(f.input.View()))
		b.WriteString("\n")

		if i == d.focusIndex && d.showSuggestions {
			shown := min(len(d.suggestions), maxSuggestions)
			for j := 0; j < shown; j++ {
				if j == d.suggestionIndex {
					b.WriteString(d.styles.Selected.Render(styles.IconArrowR + " " + d.suggestions[j]))
				} else {
					b.WriteString(d.styles.Suggestion.Render("  " + d.suggestions[j]))
				}
				b.WriteString("\n")
			}
			if len(d.suggestions) > shown {
				b.WriteString(d.styles.Suggestion.Render("  ..."))
				b.WriteString("\n")
			}
		}
	}

	var help string
	switch {
	case len(d.fields) == 0:
		help = "y/Enter: Confirm • n/Esc: Cancel"
	case d.focusIndex < len(d.fields) && d.fields[d.focusIndex].completes():
		help = "Tab: Cycle suggestions • Enter: Confirm • Esc: Cancel"
	default:
		help = "Enter: Confirm • Esc: Cancel"
	}
	b.WriteString(d.styles.Help.Render(help))

	return d.styles.Box.Render(b.String())
}

// IsSubmitted returns true if the user submitted the dialog.
func (d InputDialog) IsSubmitted() bool {
	return d.submitted
}

// IsCancelled returns true if the user cancelled the dialog.
func (d InputDialog) IsCancelled() bool {
	return d.cancelled
}

// Values returns all input values.
func (d InputDialog) Values() []string {
	values := make([]string, len(d.fields))
	for i, f := range d.fields {
		values[i] = f.input.Value()
	}
	return values
}

// Value returns the trimmed value of the input at the given index.
func (d InputDialog) Value(index int) string {
	if index < 0 || index >= len(d.fields) {
		return ""
	}
	return strings.TrimSpace(d.fields[index].input.Value())
}

// Reset clears all inputs and the submitted/cancelled state.
func (d *InputDialog) Reset() {
	d.submitted = false
	d.cancelled = false
	d.hideSuggestions()
	for i := range d.fields {
		d.fields[i].input.SetValue("")
	}
	if len(d.fields) > 0 {
		d.focusIndex = 1
		d.moveFocus(-1)
	}
}

// SetFieldOptions replaces the completion options of a field.
func (d *InputDialog) SetFieldOptions(index int, options []string) {
	if index < 0 || index >= len(d.fields) {
		return
	}
	d.fields[index].options = append([]string(nil), options...)
}
