// Package sitelist provides the site profile list UI component.
package sitelist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lazyvibe/websmith/internal/model"
	"github.com/lazyvibe/websmith/internal/ui/styles"
	"github.com/lazyvibe/websmith/pkg/utils"
)

// Item represents a profile in the list.
type Item struct {
	Profile *model.Profile
	Running bool
	Blocked int
}

// Model is the site list component.
type Model struct {
	items   []Item
	cursor  int
	focused bool
	width   int
	height  int
	offset  int
}

// New creates a new site list component.
func New() Model {
	return Model{items: []Item{}}
}

// SetSize updates the component dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.ensureVisible()
}

// SetFocused updates the focus state.
func (m *Model) SetFocused(focused bool) {
	m.focused = focused
}

// IsFocused returns whether the component is focused.
func (m Model) IsFocused() bool {
	return m.focused
}

// SetProfiles replaces the list, keeping the cursor on the same profile
// when it still exists.
func (m *Model) SetProfiles(profiles []*model.Profile, running map[string]bool) {
	selectedID := ""
	if p := m.SelectedProfile(); p != nil {
		selectedID = p.ID
	}

	m.items = make([]Item, len(profiles))
	for i, p := range profiles {
		m.items[i] = Item{Profile: p, Running: running[p.ID]}
	}

	m.cursor = 0
	for i, it := range m.items {
		if it.Profile.ID == selectedID {
			m.cursor = i
			break
		}
	}
	m.ensureVisible()
}

// SetRunning updates the running state and blocked count for a profile.
func (m *Model) SetRunning(profileID string, running bool, blocked int) {
	for i := range m.items {
		if m.items[i].Profile.ID == profileID {
			m.items[i].Running = running
			m.items[i].Blocked = blocked
			return
		}
	}
}

// Select moves the cursor onto the given profile.
func (m *Model) Select(profileID string) bool {
	for i := range m.items {
		if m.items[i].Profile.ID == profileID {
			m.cursor = i
			m.ensureVisible()
			return true
		}
	}
	return false
}

// SelectedProfile returns the currently selected profile.
func (m Model) SelectedProfile() *model.Profile {
	if m.cursor >= 0 && m.cursor < len(m.items) {
		return m.items[m.cursor].Profile
	}
	return nil
}

// SelectedItem returns the currently selected item.
func (m Model) SelectedItem() (Item, bool) {
	if m.cursor >= 0 && m.cursor < len(m.items) {
		return m.items[m.cursor], true
	}
	return Item{}, false
}

// SelectedIndex returns the index of the selected item.
func (m Model) SelectedIndex() int {
	return m.cursor
}

// ItemCount returns the number of items.
func (m Model) ItemCount() int {
	return len(m.items)
}

// CursorUp moves cursor up.
func (m *Model) CursorUp() {
	if m.cursor > 0 {
		m.cursor--
		m.ensureVisible()
	}
}

// CursorDown moves cursor down.
func (m *Model) CursorDown() {
	if m.cursor < len(m.items)-1 {
		m.cursor++
		m.ensureVisible()
	}
}

func (m *Model) visibleRows() int {
	rows := m.height - 4 - detailHeight - 1
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *Model) ensureVisible() {
	visible := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// HandleKey processes a navigation key.
func (m *Model) HandleKey(key string) bool {
	switch key {
	case "up", "k":
		m.CursorUp()
		return true
	case "down", "j":
		m.CursorDown()
		return true
	case "home", "g":
		m.cursor = 0
		m.offset = 0
		return true
	case "end", "G":
		if len(m.items) > 0 {
			m.cursor = len(m.items) - 1
			m.ensureVisible()
		}
		return true
	}
	return false
}

const detailHeight = 6

// View renders the site list.
func (m Model) View() string {
	innerWidth := m.width - 4
	innerHeight := m.height - 4
	if innerWidth < 1 {
		innerWidth = 1
	}
	if innerHeight < 1 {
		innerHeight = 1
	}

	icon := styles.PanelTitleIcon.Render(styles.IconSite)
	title := "Sites"
	if m.focused {
		title = styles.PanelTitleFocused.Render(title)
	} else {
		title = styles.PanelTitle.Render(title)
	}
	header := icon + title + " " + styles.ListItemDim.Render(fmt.Sprintf("(%d)", len(m.items)))

	showDetails := innerHeight >= detailHeight+3
	listArea := innerHeight
	if showDetails {
		listArea = innerHeight - detailHeight - 1
	}

	var rows []string
	if len(m.items) == 0 {
		rows = append(rows, "",
			styles.Placeholder.Render("No sites yet"),
			styles.ListItemDim.Render("Press 'a' to add one"))
	} else {
		visible := listArea
		if len(m.items) > listArea {
			visible = listArea - 1
			if visible < 1 {
				visible = 1
			}
		}
		end := m.offset + visible
		if end > len(m.items) {
			end = len(m.items)
		}
		for i := m.offset; i < end; i++ {
			rows = append(rows, m.renderItem(m.items[i], i == m.cursor, innerWidth))
		}
		if len(m.items) > visible {
			rows = append(rows, styles.ListItemDim.Render(fmt.Sprintf(" %d/%d ", m.cursor+1, len(m.items))))
		}
	}

	content := lipgloss.NewStyle().
		Width(innerWidth).
		Height(listArea).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	if showDetails {
		content = lipgloss.JoinVertical(lipgloss.Left,
			content,
			strings.Repeat("─", innerWidth),
			m.renderDetails(innerWidth))
	}

	borderStyle := styles.BorderStyle
	if m.focused {
		borderStyle = styles.FocusedBorderStyle
	}
	return borderStyle.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			header,
			strings.Repeat("─", innerWidth),
			content,
		))
}

func (m Model) renderItem(item Item, selected bool, width int) string {
	dot := lipgloss.NewStyle().Foreground(styles.StatusIdle).Render(styles.IconDotEmpty + " ")
	if item.Running {
		dot = lipgloss.NewStyle().Foreground(styles.StatusRunning).Render(styles.IconDot + " ")
	}

	marker := "  "
	rowStyle := lipgloss.NewStyle().Foreground(styles.Subtext1).Width(width).Padding(0, 1)
	if selected {
		marker = "› "
		bg := styles.Surface1
		if m.focused {
			bg = styles.SurfaceCol
		}
		rowStyle = lipgloss.NewStyle().Foreground(styles.TextCol).Background(bg).Bold(m.focused).Width(width).Padding(0, 1)
	}

	name := styles.TruncateWithEllipsis(item.Profile.DisplayName(), width-8)
	return rowStyle.Render(dot + marker + name)
}

func (m Model) renderDetails(width int) string {
	titleStyle := lipgloss.NewStyle().Foreground(styles.TextMuted).Bold(true)
	lines := []string{titleStyle.Render("Details")}

	item, ok := m.SelectedItem()
	if !ok {
		lines = append(lines, styles.Label.Render("No site selected"))
	} else {
		p := item.Profile
		status := "IDLE"
		if item.Running {
			status = fmt.Sprintf("OPEN (%d blocked)", item.Blocked)
		}
		lines = append(lines,
			detailLine("URL: ", p.URL, width),
			detailLine("Display: ", displayFlags(p), width),
			detailLine("Rules: ", fmt.Sprintf("%d denied, %d allowed", len(p.URLBlacklist), len(p.URLWhitelist)), width),
			detailLine("Lists: ", utils.Summarize(p.AdblockLists), width),
			detailLine("Status: ", status, width),
		)
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(detailHeight).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func displayFlags(p *model.Profile) string {
	var parts []string
	if p.HideNavigation {
		parts = append(parts, "kiosk")
	} else if p.AllowFullscreen {
		parts = append(parts, "fullscreen")
	}
	if p.ForceOrientation != model.OrientationSystem && p.ForceOrientation != "" {
		parts = append(parts, styles.IconLock+string(p.ForceOrientation))
	}
	if !p.AllowCookies {
		parts = append(parts, "no cookies")
	}
	if p.DisableTextSelection {
		parts = append(parts, "no select")
	}
	if len(parts) == 0 {
		return "default"
	}
	return strings.Join(parts, ", ")
}

func detailLine(label, value string, width int) string {
	l := styles.Label.Render(label)
	avail := width - lipgloss.Width(l)
	if avail < 0 {
		avail = 0
	}
	return l + styles.Value.Render(styles.TruncateWithEllipsis(value, avail))
}
