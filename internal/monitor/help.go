package monitor

import (
	"strings"

	"github.com/NewSmoke38/SED-Manager/internal/ui"
	"github.com/charmbracelet/lipgloss"
)

// HelpBinding represents a single keyboard shortcut entry.
type HelpBinding struct {
	Key  string
	Desc string
}

// helpBindings defines all keyboard shortcuts shown in the help overlay.
var helpBindings = []HelpBinding{
	{Key: "q / Ctrl+C", Desc: "Quit"},
	{Key: "r", Desc: "Force refresh"},
	{Key: "s", Desc: "Cycle sort order"},
	{Key: "up / k", Desc: "Select previous device"},
	{Key: "down / j", Desc: "Select next device"},
	{Key: "Home", Desc: "Select first device"},
	{Key: "End", Desc: "Select last device"},
	{Key: "Enter", Desc: "Show device details"},
	{Key: "Esc", Desc: "Back / close"},
	{Key: "?", Desc: "Toggle this help"},
}

var (
	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ui.ColorInfo).
			Padding(1, 2)

	helpTitleStyle = lipgloss.NewStyle().
			Foreground(ui.ColorInfo).
			Bold(true)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(ui.ColorPrimary).
			Bold(true).
			Width(14)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(ui.ColorMuted)
)

// renderHelpOverlay renders a centered help box with keyboard shortcuts.
func (m Model) renderHelpOverlay() string {
	lines := []string{helpTitleStyle.Render("Keyboard Shortcuts"), ""}
	for _, binding := range helpBindings {
		lines = append(lines, helpKeyStyle.Render(binding.Key)+helpDescStyle.Render(binding.Desc))
	}
	lines = append(lines, "", LabelStyle.Render("Press ? to close"))

	box := helpBoxStyle.Render(strings.Join(lines, "\n"))
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
