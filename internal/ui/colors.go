package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Color palette using ANSI color codes for terminal compatibility.
//   RED    -> ANSI 1
//   GREEN  -> ANSI 2
//   YELLOW -> ANSI 3
//   BLUE   -> ANSI 4
//   CYAN   -> ANSI 6
//   GRAY   -> ANSI 8 (bright black)

// Semantic colors for status indication
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// DisableColors switches every style to plain text (for --no-color and
// NO_COLOR).
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// ThresholdColor picks a color for a utilization percentage:
//   - below 60%: green
//   - 60-80%: yellow
//   - 80% and above: red
func ThresholdColor(percent float64) lipgloss.Color {
	switch {
	case percent >= 80:
		return ColorError
	case percent >= 60:
		return ColorWarning
	default:
		return ColorSuccess
	}
}

// StatusColor maps a device status ("online", "offline", anything else)
// to a color.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "online":
		return ColorSuccess
	case "offline":
		return ColorError
	default:
		return ColorMuted
	}
}
