// Package monitor implements `sedm watch`, a live TUI dashboard for a set
// of edge devices.
//
// # Architecture
//
// The package uses the Bubble Tea framework (Model-Update-View):
//
//   - Model: device list, latest snapshots, selection and view mode
//   - Update: keystrokes, refresh ticks and collection results
//   - View: renders the current state to a string
//
// # Key Components
//
//	Model       - The Bubble Tea model containing all dashboard state
//	Collector   - Polls every device through a Snapshotter in parallel
//	History     - Ring buffers of CPU and memory percentages for sparklines
//
// # Message Flow
//
//  1. tickMsg fires at the configured interval (default 5s)
//  2. collectCmd() polls every device, bounded by the collector's limit
//  3. resultsMsg arrives with one DeviceResult per device
//  4. View() re-renders with the new snapshots
//
// A tick that lands while a collection is still running is skipped, so a
// slow device never stacks up SSH sessions.
//
// # Keyboard Shortcuts
//
//	q, Ctrl+C   - Quit
//	r           - Force refresh
//	s           - Cycle sort order (name/CPU/memory)
//	j/k, ↑/↓    - Navigate device list
//	Home/End    - Jump to first/last device
//	Enter       - Show the selected device's full snapshot
//	Esc         - Back to the list
//	?           - Toggle help overlay
package monitor
