package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline block characters representing 8 vertical levels (lowest to highest).
const sparklineBlocks = "▁▂▃▄▅▆▇█"

var sparklineBlockRunes = []rune(sparklineBlocks)

// RenderSparkline draws the most recent width values as a one-line graph.
// Values are percentages and map onto a fixed 0-100 scale so that
// sparklines of different devices compare at a glance. The color follows
// the newest value.
func RenderSparkline(data []float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	top := len(sparklineBlockRunes) - 1
	var sb strings.Builder
	sb.Grow(len(data) * 3)
	for _, v := range data {
		level := int(clampPercent(v) / 100 * float64(top))
		sb.WriteRune(sparklineBlockRunes[level])
	}

	last := data[len(data)-1]
	return lipgloss.NewStyle().Foreground(ThresholdColor(last)).Render(sb.String())
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
