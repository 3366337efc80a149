package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Progress bar block characters.
const (
	progressFilled = '█'
	progressEmpty  = '░'
)

// RenderProgressBar draws a utilization bar such as "[████░░░░]  50%".
// percent is clamped to 0-100; width is the bar length without brackets.
// The bar is colored by ThresholdColor.
func RenderProgressBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	percent = clampPercent(percent)

	filled := int(percent / 100 * float64(width))
	bar := "[" + strings.Repeat(string(progressFilled), filled) +
		strings.Repeat(string(progressEmpty), width-filled) + "]"

	style := lipgloss.NewStyle().Foreground(ThresholdColor(percent))
	return style.Render(bar) + fmt.Sprintf(" %3.0f%%", percent)
}
