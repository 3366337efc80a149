package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HeaderWidth is the width of the divider under the header.
const HeaderWidth = 50

// RenderHeader renders "sedm <version>", an optional tagline and a divider.
func RenderHeader(version, tagline string) string {
	titleStyle := lipgloss.NewStyle().Foreground(ColorInfo).Bold(true)
	versionStyle := lipgloss.NewStyle().Foreground(ColorSecondary)
	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	var b strings.Builder
	b.WriteString(titleStyle.Render("sedm"))
	b.WriteString(" ")
	b.WriteString(versionStyle.Render(version))
	b.WriteString("\n")
	if tagline != "" {
		b.WriteString(mutedStyle.Render(tagline))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(strings.Repeat("━", HeaderWidth)))
	b.WriteString("\n")
	return b.String()
}
