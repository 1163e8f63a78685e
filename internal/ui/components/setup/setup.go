// Package setup provides the first-run setup wizard.
package setup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lazyvibe/websmith/internal/app"
	"github.com/lazyvibe/websmith/internal/model"
	"github.com/lazyvibe/websmith/internal/store"
	"github.com/lazyvibe/websmith/internal/ui/components/dialog"
	"github.com/lazyvibe/websmith/internal/ui/styles"
	"github.com/lazyvibe/websmith/pkg/utils"
)

// Step represents a setup wizard step.
type Step int

const (
	StepWelcome Step = iota
	StepDetectBrowser
	StepConfigureBrowser
	StepSiteIntro
	StepConfigureSite
	StepAddAnotherSite
	StepComplete
)

// Model is the setup wizard model.
type Model struct {
	step            Step
	config          *app.Config
	configDir       string
	browserInput    textinput.Model
	detectedPath    string
	error           string
	width           int
	height          int
	store           store.ProfileStore
	siteDialog      dialog.InputDialog
	sitesConfigured int

	// detect and validate are swapped in tests.
	detect   func() string
	validate func(string) bool
}

// New creates a new setup wizard. Sites created along the way go to s.
func New(configDir string, config *app.Config, s store.ProfileStore) Model {
	ti := textinput.New()
	ti.Placeholder = "/path/to/chromium"
	ti.CharLimit = 256
	ti.Width = 50

	return Model{
		step:         StepWelcome,
		config:       config,
		configDir:    configDir,
		browserInput: ti,
		store:        s,
		detect:       app.DetectBrowserPath,
		validate:     app.ValidateBrowserPath,
	}
}

// Init initializes the setup wizard.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetSize sets the wizard dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.siteDialog.SetSize(width, height)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.step == StepConfigureSite {
			var cmd tea.Cmd
			m.siteDialog, cmd = m.siteDialog.Update(msg)
			if m.siteDialog.IsSubmitted() {
				if err := m.saveSiteFromDialog(); err != nil {
					m.error = err.Error()
					m.initSiteDialog()
					return m, nil
				}
				m.error = ""
				m.step = StepAddAnotherSite
				return m, nil
			}
			if m.siteDialog.IsCancelled() {
				m.step = StepSiteIntro
				return m, nil
			}
			return m, cmd
		}

		switch msg.String() {
		case "q":
			if m.step != StepConfigureBrowser {
				return m, tea.Quit
			}
		case "enter":
			return m.handleEnter()

		case "esc":
			switch m.step {
			case StepConfigureBrowser:
				m.step = StepDetectBrowser
				m.error = ""
				return m, nil
			case StepSiteIntro, StepAddAnotherSite:
				m.step = StepComplete
				return m, nil
			}
		case "a":
			if m.step == StepAddAnotherSite {
				m.step = StepConfigureSite
				m.initSiteDialog()
				return m, nil
			}
		}
	}

	if m.step == StepConfigureBrowser {
		var cmd tea.Cmd
		m.browserInput, cmd = m.browserInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	switch m.step {
	case StepWelcome:
		m.step = StepDetectBrowser
		m.detectedPath = m.detect()
		return m, nil

	case StepDetectBrowser:
		if m.detectedPath == "" {
			m.step = StepConfigureBrowser
			m.browserInput.Focus()
			return m, textinput.Blink
		}
		// An empty browser_path keeps auto-detection on for later runs.
		return m.finishBrowser("")

	case StepConfigureBrowser:
		path := strings.TrimSpace(m.browserInput.Value())
		if path == "" {
			m.error = "Please enter a path to a Chromium-based browser"
			return m, nil
		}
		path = utils.ExpandPath(path)
		if !m.validate(path) {
			m.error = "Invalid path or file is not executable"
			return m, nil
		}
		return m.finishBrowser(path)

	case StepSiteIntro:
		m.step = StepConfigureSite
		m.initSiteDialog()
		return m, nil

	case StepAddAnotherSite:
		m.step = StepComplete
		return m, nil

	case StepComplete:
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) finishBrowser(path string) (tea.Model, tea.Cmd) {
	m.config.BrowserPath = path
	m.config.Initialized = true
	if err := app.SaveConfig(m.configDir, m.config); err != nil {
		m.error = err.Error()
		return m, nil
	}
	m.error = ""
	if m.store == nil {
		m.step = StepComplete
	} else {
		m.step = StepSiteIntro
	}
	return m, nil
}

func (m *Model) initSiteDialog() {
	m.siteDialog = dialog.NewInputDialog("Add Site", []dialog.InputField{
		{Label: "URL", Placeholder: "https://example.com"},
		{Label: "Nickname", Placeholder: "Example"},
	})
	m.siteDialog.SetSize(m.width, m.height)
}

func (m *Model) saveSiteFromDialog() error {
	if m.store == nil {
		return errors.New("profile store unavailable")
	}
	url := strings.TrimSpace(m.siteDialog.Value(0))
	nickname := strings.TrimSpace(m.siteDialog.Value(1))
	if url == "" {
		return errors.New("URL is required")
	}

	if err := m.store.Upsert(context.Background(), model.NewProfile(url, nickname)); err != nil {
		return err
	}
	m.sitesConfigured++
	return nil
}

// IsComplete returns true if setup is complete.
func (m Model) IsComplete() bool {
	return m.step == StepComplete
}

// Step returns the current step.
func (m Model) Step() Step {
	return m.step
}

// Config returns the configured config.
func (m Model) Config() *app.Config {
	return m.config
}

// View renders the setup wizard.
func (m Model) View() string {
	switch m.step {
	case StepWelcome:
		return m.viewWelcome()
	case StepDetectBrowser:
		return m.viewDetect()
	case StepConfigureBrowser:
		return m.viewConfigure()
	case StepSiteIntro:
		return m.center(
			m.heading(styles.IconSite+"  Add Your First Site", styles.Primary),
			"",
			m.paragraph("A site profile stores a URL together with its display flags, injected styles and scripts, and the rules that decide which pages it may open."),
			"",
			m.hint("Press Enter to add a site • Esc to skip"),
		)
	case StepConfigureSite:
		return m.center(m.siteDialog.View(), m.errorLine())
	case StepAddAnotherSite:
		return m.center(
			m.heading(styles.IconSuccess+" Site saved", styles.Secondary),
			"",
			lipgloss.NewStyle().Foreground(styles.Accent).Render(fmt.Sprintf("Sites configured: %d", m.sitesConfigured)),
			"",
			m.hint("Press 'a' to add another • Enter to finish"),
		)
	case StepComplete:
		return m.viewComplete()
	}
	return ""
}

func (m Model) center(lines ...string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
}

func (m Model) heading(text string, color lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(text)
}

func (m Model) paragraph(text string) string {
	return lipgloss.NewStyle().
		Foreground(styles.Text).
		Width(64).
		Align(lipgloss.Center).
		Render(text)
}

func (m Model) hint(text string) string {
	return lipgloss.NewStyle().Foreground(styles.TextMuted).Render(text)
}

func (m Model) errorLine() string {
	if m.error == "" {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(styles.Danger).
		Bold(true).
		Render(styles.IconError + " " + m.error)
}

func (m Model) viewWelcome() string {
	logo := `
               _                     _ _   _
 __      _____| |__  ___ _ __ ___   (_) |_| |__
 \ \ /\ / / _ \ '_ \/ __| '_ ` + "`" + ` _ \  | | __| '_ \
  \ V  V /  __/ |_) \__ \ | | | | | | | |_| | | |
   \_/\_/ \___|_.__/|___/_| |_| |_| |_|\__|_| |_|`

	return m.center(
		lipgloss.NewStyle().Foreground(styles.Primary).Bold(true).Render(logo),
		"",
		m.heading("Welcome to websmith!", styles.Accent),
		m.hint("Site profiles for a Chromium window"),
		"",
		m.paragraph("websmith opens each site in its own browser window with your stylesheets, scripts and blocking rules applied."),
		"",
		"",
		m.heading("Press Enter to continue...", styles.Secondary),
	)
}

func (m Model) viewDetect() string {
	var status string
	if m.detectedPath != "" {
		status = lipgloss.JoinVertical(
			lipgloss.Center,
			m.heading(styles.IconAllowed, styles.Secondary)+" Found a browser at:",
			"",
			lipgloss.NewStyle().Foreground(styles.Accent).Render(m.detectedPath),
			"",
			m.hint("Press Enter to use it"),
		)
	} else {
		status = lipgloss.JoinVertical(
			lipgloss.Center,
			m.heading(styles.IconWarning, styles.Warning)+" No Chromium-based browser found in common locations",
			"",
			m.hint("Press Enter to configure manually"),
		)
	}

	return m.center(
		m.heading("Detecting Browser", styles.Primary),
		"",
		"",
		status,
		"",
		m.errorLine(),
		"",
		lipgloss.NewStyle().Foreground(styles.Overlay0).Render("Chrome, Chromium, Edge and Brave are supported"),
	)
}

func (m Model) viewConfigure() string {
	inputBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary).
		Padding(0, 1).
		Render(m.browserInput.View())

	examples := lipgloss.NewStyle().
		Foreground(styles.Overlay0).
		Render("Examples:\n" +
			"  • /usr/bin/chromium\n" +
			"  • /opt/google/chrome/chrome\n" +
			"  • /Applications/Google Chrome.app/Contents/MacOS/Google Chrome")

	return m.center(
		m.heading(styles.IconSettings+"  Configure Browser Path", styles.Primary),
		"",
		m.paragraph("Enter the full path to your browser executable:"),
		"",
		inputBox,
		"",
		m.errorLine(),
		"",
		examples,
		"",
		m.hint("Press Enter to confirm • Esc to go back"),
	)
}

func (m Model) viewComplete() string {
	browser := m.config.BrowserPath
	if browser == "" {
		browser = "auto-detect"
	}

	sites := ""
	if m.sitesConfigured > 0 {
		sites = m.hint(fmt.Sprintf("Sites configured: %d", m.sitesConfigured))
	}

	return m.center(
		m.heading(styles.IconAllowed, styles.Secondary),
		"",
		m.heading("Setup Complete!", styles.Secondary),
		"",
		lipgloss.NewStyle().Foreground(styles.Accent).Render("Browser: "+browser),
		"",
		sites,
		"",
		"",
		m.heading("Press Enter to start websmith...", styles.Primary),
	)
}
