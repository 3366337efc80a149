package monitor

import (
	"fmt"
	"strings"

	"github.com/NewSmoke38/SED-Manager/internal/telemetry"
	"github.com/NewSmoke38/SED-Manager/internal/ui"
	"github.com/charmbracelet/lipgloss"
)

// renderDashboard renders the device list view.
func (m Model) renderDashboard() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if len(m.devices) == 0 {
		b.WriteString(LabelStyle.Render("No devices registered"))
		b.WriteString("\n")
	}
	for i, name := range m.devices {
		b.WriteString(m.renderRow(name, i == m.selected))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// renderHeader renders the title line with summary stats.
func (m Model) renderHeader() string {
	var updateText string
	switch {
	case m.lastUpdate.IsZero():
		updateText = m.spinner.View() + " collecting"
	case m.SecondsSinceUpdate() == 0:
		updateText = "just now"
	default:
		updateText = fmt.Sprintf("%ds ago", m.SecondsSinceUpdate())
	}

	title := lipgloss.NewStyle().Foreground(ui.ColorInfo).Bold(true).Render("sedm watch")
	stats := LabelStyle.Render(fmt.Sprintf(" | %d devices | %d online | sort %s | last update %s",
		len(m.devices), m.OnlineCount(), m.sortOrder, updateText))

	return HeaderStyle.Render(title + stats)
}

// renderRow renders one device: status, name, then CPU and memory as a
// bar plus sparkline, or the error for offline devices.
func (m Model) renderRow(name string, selected bool) string {
	status := m.status[name]

	cursor := "  "
	nameStyle := DeviceNameStyle
	if selected {
		cursor = SelectedStyle.Render("> ")
		nameStyle = SelectedStyle
	}

	glyph := ui.StatusSymbol(status.String())
	if status == StatusConnecting {
		glyph = m.spinner.View()
	}

	var b strings.Builder
	b.WriteString(cursor)
	b.WriteString(statusStyle(status).Render(glyph))
	b.WriteString(" ")
	b.WriteString(nameStyle.Render(fmt.Sprintf("%-*s", nameWidth, truncate(name, nameWidth))))

	switch status {
	case StatusConnecting:
		b.WriteString(LabelStyle.Render("connecting..."))
	case StatusOffline:
		msg := m.errors[name]
		if msg == "" {
			msg = "offline"
		}
		b.WriteString(ErrorTextStyle.Render(msg))
	default:
		b.WriteString(m.renderMetric("cpu", m.history.CPU(name, sparklineWidth)))
		b.WriteString("  ")
		b.WriteString(m.renderMetric("mem", m.history.Memory(name, sparklineWidth)))
		if snap, ok := m.snapshots[name]; ok && snap.OS != "" {
			b.WriteString("  ")
			b.WriteString(LabelStyle.Render(string(snap.OS)))
		}
	}

	return b.String()
}

// renderMetric renders "label [bar] NN% sparkline", or N/A when the device
// never reported a parseable value.
func (m Model) renderMetric(label string, history []float64) string {
	if len(history) == 0 {
		return LabelStyle.Render(label) + " " + fmt.Sprintf("%-*s", barWidth+8+sparklineWidth, telemetry.NA)
	}
	latest := history[len(history)-1]
	spark := ui.RenderSparkline(history, sparklineWidth)
	pad := sparklineWidth - lipgloss.Width(spark)
	if pad < 0 {
		pad = 0
	}
	return LabelStyle.Render(label) + " " + ui.RenderProgressBar(latest, barWidth) + " " + spark + strings.Repeat(" ", pad)
}

// renderDetail renders the selected device's full snapshot in a scrollable
// viewport.
func (m Model) renderDetail() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	if m.detailReady {
		b.WriteString(m.detail.View())
	} else {
		b.WriteString(LabelStyle.Render("Waiting for first reading..."))
	}
	b.WriteString("\n")
	b.WriteString(FooterStyle.Render("esc back | ↑/↓ scroll | r refresh | q quit"))
	return b.String()
}

// renderFooter renders the key hint line.
func (m Model) renderFooter() string {
	return FooterStyle.Render("↑/↓ select | enter details | s sort | r refresh | ? help | q quit")
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
