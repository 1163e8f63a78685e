// Package styles defines the visual appearance for the websmith TUI,
// built on the Catppuccin Mocha palette.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Catppuccin Mocha color palette
var (
	// Base colors
	Rosewater = lipgloss.Color("#F5E0DC")
	Flamingo  = lipgloss.Color("#F2CDCD")
	Pink      = lipgloss.Color("#F5C2E7")
	Mauve     = lipgloss.Color("#CBA6F7")
	Red       = lipgloss.Color("#F38BA8")
	Maroon    = lipgloss.Color("#EBA0AC")
	Peach     = lipgloss.Color("#FAB387")
	Yellow    = lipgloss.Color("#F9E2AF")
	Green     = lipgloss.Color("#A6E3A1")
	Teal      = lipgloss.Color("#94E2D5")
	Sky       = lipgloss.Color("#89DCEB")
	Sapphire  = lipgloss.Color("#74C7EC")
	Blue      = lipgloss.Color("#89B4FA")
	Lavender  = lipgloss.Color("#B4BEFE")

	// Surface colors
	Text     = lipgloss.Color("#CDD6F4")
	Subtext1 = lipgloss.Color("#BAC2DE")
	Subtext0 = lipgloss.Color("#A6ADC8")
	Overlay2 = lipgloss.Color("#9399B2")
	Overlay1 = lipgloss.Color("#7F849C")
	Overlay0 = lipgloss.Color("#6C7086")
	Surface2 = lipgloss.Color("#585B70")
	Surface1 = lipgloss.Color("#45475A")
	Surface0 = lipgloss.Color("#313244")
	Base     = lipgloss.Color("#1E1E2E")
	Mantle   = lipgloss.Color("#181825")
	Crust    = lipgloss.Color("#11111B")
)

// Semantic colors (using the palette)
var (
	Primary     = Mauve
	Secondary   = Green
	Accent      = Sapphire
	Danger      = Red
	Warning     = Peach
	Success     = Green
	Info        = Blue
	Muted       = Overlay0
	Background  = Base
	SurfaceCol  = Surface0
	TextCol     = Text
	TextMuted   = Subtext0
	Border      = Surface1
	BorderFocus = Mauve
)

// Session status colors
var (
	StatusRunning = Green
	StatusIdle    = Overlay0
)

// Base styles
var (
	// BorderStyle for panels
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border)

	// FocusedBorderStyle for focused panels
	FocusedBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(BorderFocus)
)

// Panel styles
var (
	// PanelTitle for panel headers
	PanelTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextCol).
			Padding(0, 1)

	// PanelTitleFocused for focused panel headers
	PanelTitleFocused = lipgloss.NewStyle().
				Bold(true).
				Foreground(Primary).
				Padding(0, 1)

	// PanelTitleIcon for icon prefix
	PanelTitleIcon = lipgloss.NewStyle().
			Foreground(Accent).
			MarginRight(1)
)

// ListItemDim is used for secondary text in lists.
var ListItemDim = lipgloss.NewStyle().
	Foreground(TextMuted).
	Padding(0, 1)

// Status indicator styles
var (
	StatusRunningStyle = lipgloss.NewStyle().
				Foreground(StatusRunning).
				Bold(true)

	StatusIdleStyle = lipgloss.NewStyle().
			Foreground(StatusIdle)
)

// Activity panel styles
var (
	Placeholder = lipgloss.NewStyle().
			Foreground(TextMuted).
			Italic(true)

	Allowed = lipgloss.NewStyle().Foreground(Success)
	Blocked = lipgloss.NewStyle().Foreground(Danger).Bold(true)
	Label   = lipgloss.NewStyle().Foreground(TextMuted)
	Value   = lipgloss.NewStyle().Foreground(TextCol)
)

// TruncateWithEllipsis truncates s to maxWidth terminal cells.
func TruncateWithEllipsis(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if ansi.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return ansi.Truncate(s, maxWidth, "")
	}
	return ansi.Truncate(s, maxWidth, "...")
}

// Icons
var (
	IconSite     = "🌐"
	IconSettings = "⚙️"
	IconActivity = "📜"
	IconBlocked  = "⛔"
	IconAllowed  = "✓"
	IconError    = "❌"
	IconSuccess  = "✅"
	IconWarning  = "⚠️"
	IconDot      = "●"
	IconDotEmpty = "○"
	IconArrowR   = "→"
	IconLock     = "🔒"
)

