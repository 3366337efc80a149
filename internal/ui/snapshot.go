package ui

import (
	"fmt"
	"strings"

	"github.com/NewSmoke38/SED-Manager/internal/logs"
	"github.com/NewSmoke38/SED-Manager/internal/telemetry"
	"github.com/charmbracelet/lipgloss"
)

const barWidth = 20

var (
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorInfo)
	labelStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
)

// RenderSnapshot formats a metrics snapshot for the terminal. Offline
// devices render as a single status line with the reason.
func RenderSnapshot(name string, snap telemetry.Snapshot) string {
	var b strings.Builder

	if !snap.Status.Online {
		fail := lipgloss.NewStyle().Foreground(ColorError)
		fmt.Fprintf(&b, "%s %s is offline\n", fail.Render(SymbolFail), name)
		if snap.Status.Error != "" {
			fmt.Fprintf(&b, "  %s\n", labelStyle.Render(snap.Status.Error))
		}
		return b.String()
	}

	ok := lipgloss.NewStyle().Foreground(ColorSuccess)
	fmt.Fprintf(&b, "%s %s is online", ok.Render(SymbolComplete), name)
	if snap.OS != "" {
		fmt.Fprintf(&b, " %s", labelStyle.Render("("+string(snap.OS)+")"))
	}
	b.WriteString("\n\n")

	if cpu := snap.CPU; cpu != nil {
		b.WriteString(sectionStyle.Render("CPU") + "\n")
		writeUsage(&b, "used", cpu.UsedPercent)
		fmt.Fprintf(&b, "  %s %s user, %s system\n", labelStyle.Render("split "), cpu.UserPercent, cpu.SystemPercent)
		fmt.Fprintf(&b, "  %s %s %s %s\n", labelStyle.Render("load  "),
			cpu.LoadAverage.One, cpu.LoadAverage.Five, cpu.LoadAverage.Fifteen)
		if len(cpu.Processes) > 0 {
			rows := make([][]string, len(cpu.Processes))
			for i, p := range cpu.Processes {
				rows[i] = []string{p.PID, p.User, p.CPU, p.Memory, p.Command}
			}
			b.WriteString(RenderTable([]TableColumn{
				{Title: "PID", Width: 8},
				{Title: "USER", Width: 10},
				{Title: "CPU", Width: 6},
				{Title: "MEM", Width: 10},
				{Title: "COMMAND", Width: 28},
			}, rows))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if mem := snap.Memory; mem != nil {
		b.WriteString(sectionStyle.Render("Memory") + "\n")
		writeUsage(&b, "used", mem.UsedPercent)
		fmt.Fprintf(&b, "  %s %s of %s, %s available\n", labelStyle.Render("size  "), mem.Used, mem.Total, mem.Available)
		b.WriteString("\n")
	}

	if disk := snap.Disk; disk != nil && len(disk.Filesystems) > 0 {
		b.WriteString(sectionStyle.Render("Disk") + "\n")
		rows := make([][]string, len(disk.Filesystems))
		for i, fs := range disk.Filesystems {
			rows[i] = []string{fs.Filesystem, fs.Size, fs.Used, fs.Available, fs.UsedPercent, fs.MountedOn}
		}
		b.WriteString(RenderTable([]TableColumn{
			{Title: "FILESYSTEM", Width: 20},
			{Title: "SIZE", Width: 9},
			{Title: "USED", Width: 9},
			{Title: "AVAIL", Width: 9},
			{Title: "USE%", Width: 5},
			{Title: "MOUNTED ON", Width: 16},
		}, rows))
		b.WriteString("\n\n")
	}

	if network := snap.Network; network != nil && len(network.Interfaces) > 0 {
		b.WriteString(sectionStyle.Render("Network") + "\n")
		for _, iface := range network.Interfaces {
			fmt.Fprintf(&b, "  %-10s rx %s  tx %s\n", iface.Name, iface.RX, iface.TX)
		}
	}

	return b.String()
}

// writeUsage prints a bar when the percentage parsed, and the raw value
// (usually N/A) when it didn't.
func writeUsage(b *strings.Builder, label, percent string) {
	if v, ok := telemetry.ParsePercent(percent); ok {
		fmt.Fprintf(b, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-6s", label)), RenderProgressBar(v, barWidth))
		return
	}
	fmt.Fprintf(b, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-6s", label)), percent)
}

// RenderLogs prints one line per entry, colored by level.
func RenderLogs(entries []logs.Entry) string {
	if len(entries) == 0 {
		return labelStyle.Render("No log entries") + "\n"
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(levelStyle(e.Level).Render(fmt.Sprintf("%-7s", e.Level)))
		b.WriteString(" ")
		b.WriteString(e.Message)
		b.WriteString("\n")
	}
	return b.String()
}

func levelStyle(level logs.Level) lipgloss.Style {
	switch level {
	case logs.LevelError:
		return lipgloss.NewStyle().Foreground(ColorError)
	case logs.LevelWarning:
		return lipgloss.NewStyle().Foreground(ColorWarning)
	default:
		return lipgloss.NewStyle().Foreground(ColorMuted)
	}
}
