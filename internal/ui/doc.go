// Package ui renders sedm's terminal output.
//
// # Components Overview
//
//	Spinner         - Animated "Collecting metrics..." line for one-shot commands
//	RenderSnapshot  - A device's CPU, memory, disk and network readings
//	RenderLogs      - Log entries colored by level
//	RenderTable     - Bubbles tables with the CLI styling (devices, processes)
//	Progress bars   - Utilization bars with color thresholds
//	Sparkline       - Mini graphs for the watch dashboard's history
//
// # Color Scheme
//
// Colors are ANSI codes for broad terminal compatibility:
//
//	ColorSuccess   (green)  - Online devices, low utilization
//	ColorError     (red)    - Offline devices, errors, 80%+ utilization
//	ColorWarning   (yellow) - Warnings, 60-80% utilization
//	ColorInfo      (cyan)   - Section titles
//	ColorMuted     (gray)   - Labels, timing info
//	ColorSecondary (blue)   - In-progress indicators
//
// Use DisableColors() to switch to monochrome output (for --no-color flag).
package ui
