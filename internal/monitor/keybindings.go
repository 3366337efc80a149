package monitor

import tea "github.com/charmbracelet/bubbletea"

// SortOrder defines how devices are sorted in the dashboard.
type SortOrder int

const (
	SortByName SortOrder = iota
	SortByCPU
	SortByMemory
)

// String returns a human-readable label for the sort order.
func (s SortOrder) String() string {
	switch s {
	case SortByCPU:
		return "CPU"
	case SortByMemory:
		return "memory"
	default:
		return "name"
	}
}

// Next cycles to the next sort order.
func (s SortOrder) Next() SortOrder {
	return SortOrder((int(s) + 1) % 3)
}

// ViewMode defines the current display mode of the dashboard.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
)

// Key bindings as constants for consistency.
const (
	KeyQuit        = "q"
	KeyQuitAlt     = "ctrl+c"
	KeyRefresh     = "r"
	KeyCycleSort   = "s"
	KeySelectPrev  = "up"
	KeySelectPrevK = "k"
	KeySelectNext  = "down"
	KeySelectNextJ = "j"
	KeySelectFirst = "home"
	KeySelectLast  = "end"
	KeyExpand      = "enter"
	KeyCollapse    = "esc"
	KeyToggleHelp  = "?"
)

// HandleKeyMsg processes keyboard input. It reports whether the key was
// handled and returns any command to run.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	// Help toggle takes priority
	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}

	if m.showHelp && key == KeyCollapse {
		m.showHelp = false
		return true, nil
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		m.quitting = true
		return true, tea.Quit

	case KeyRefresh:
		return true, m.startCollect()

	case KeyCycleSort:
		m.sortOrder = m.sortOrder.Next()
		m.sortDevices()
		return true, nil

	case KeySelectPrev, KeySelectPrevK:
		if m.viewMode == ViewDetail {
			return false, nil
		}
		if m.selected > 0 {
			m.selected--
		}
		return true, nil

	case KeySelectNext, KeySelectNextJ:
		if m.viewMode == ViewDetail {
			return false, nil
		}
		if m.selected < len(m.devices)-1 {
			m.selected++
		}
		return true, nil

	case KeySelectFirst:
		m.selected = 0
		return true, nil

	case KeySelectLast:
		if len(m.devices) > 0 {
			m.selected = len(m.devices) - 1
		}
		return true, nil

	case KeyExpand:
		if m.viewMode == ViewList && len(m.devices) > 0 {
			m.viewMode = ViewDetail
			m.refreshDetail()
		}
		return true, nil

	case KeyCollapse:
		m.viewMode = ViewList
		return true, nil
	}

	return false, nil
}
