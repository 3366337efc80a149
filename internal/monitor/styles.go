package monitor

import (
	"github.com/NewSmoke38/SED-Manager/internal/ui"
	"github.com/charmbracelet/lipgloss"
)

// Base styles for the dashboard. Colors come from the CLI palette so
// --no-color applies here too.
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ui.ColorPrimary).
			Bold(true)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ui.ColorMuted)

	DeviceNameStyle = lipgloss.NewStyle().
			Foreground(ui.ColorPrimary).
			Bold(true)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ui.ColorInfo).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ui.ColorMuted)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ui.ColorError)
)

// Column widths for the device list.
const (
	nameWidth      = 18
	barWidth       = 10
	sparklineWidth = 20
)

// statusStyle returns the style for a device's status glyph.
func statusStyle(s DeviceStatus) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ui.StatusColor(s.String()))
}
