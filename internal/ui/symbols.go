package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Operation completed
	SymbolFail     = "✗" // Operation failed
	SymbolPending  = "○" // Not yet checked
	SymbolProgress = "◐" // In progress
	SymbolComplete = "●" // Done / reachable
)

// StatusSymbol returns the dot shown next to a device: filled when it
// answered last time, hollow otherwise.
func StatusSymbol(status string) string {
	switch status {
	case "online":
		return SymbolComplete
	case "offline":
		return SymbolFail
	default:
		return SymbolPending
	}
}
