package monitor

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/telemetry"
	"github.com/NewSmoke38/SED-Manager/internal/ui"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// DefaultInterval is the refresh interval used when none is given.
const DefaultInterval = 5 * time.Second

// Model is the Bubble Tea model for the watch dashboard.
type Model struct {
	ctx         context.Context
	devices     []string
	order       map[string]int // configuration order, used for name sort and ties
	snapshots   map[string]*telemetry.Snapshot
	status      map[string]DeviceStatus
	errors      map[string]string
	latency     map[string]time.Duration
	selected    int
	collector   *Collector
	history     *History
	width       int
	height      int
	lastUpdate  time.Time
	interval    time.Duration
	quitting    bool
	collecting  bool
	sortOrder   SortOrder
	viewMode    ViewMode
	showHelp    bool
	spinner     spinner.Model
	detail      viewport.Model
	detailReady bool
}

// tickMsg signals a periodic refresh.
type tickMsg time.Time

// resultsMsg carries one collection cycle's results.
type resultsMsg struct {
	results []DeviceResult
	time    time.Time
}

// NewModel creates a dashboard model. Collections run under ctx so that
// cancelling it aborts in-flight SSH sessions.
func NewModel(ctx context.Context, collector *Collector, interval time.Duration) Model {
	if interval <= 0 {
		interval = DefaultInterval
	}

	devices := collector.Devices()
	order := make(map[string]int, len(devices))
	status := make(map[string]DeviceStatus, len(devices))
	for i, name := range devices {
		order[name] = i
		status[name] = StatusConnecting
	}

	return Model{
		ctx:        ctx,
		devices:    devices,
		order:      order,
		snapshots:  make(map[string]*telemetry.Snapshot),
		status:     status,
		errors:     make(map[string]string),
		latency:    make(map[string]time.Duration),
		collector:  collector,
		history:    NewHistory(DefaultHistorySize),
		interval:   interval,
		collecting: true, // Init starts the first collection
		spinner:    spinner.New(spinner.WithSpinner(ui.SpinnerFrames)),
	}
}

// Init starts the tick timer, the spinner and the first collection.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.tickCmd(),
		m.collectCmd(),
		m.spinner.Tick,
	)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, cmd := m.HandleKeyMsg(msg); handled {
			return m, cmd
		}
		if m.viewMode == ViewDetail {
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Reserve space for header and footer
		height := m.height - 4
		if height < 1 {
			height = 1
		}
		if !m.detailReady {
			m.detail = viewport.New(m.width, height)
			m.detailReady = true
		} else {
			m.detail.Width = m.width
			m.detail.Height = height
		}
		m.refreshDetail()

	case tickMsg:
		return m, tea.Batch(m.tickCmd(), m.startCollect())

	case resultsMsg:
		m.collecting = false
		m.lastUpdate = msg.time
		m.applyResults(msg.results)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	if m.viewMode == ViewDetail {
		return m.renderDetail()
	}
	return m.renderDashboard()
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// startCollect begins a collection cycle unless one is already running.
func (m *Model) startCollect() tea.Cmd {
	if m.collecting {
		return nil
	}
	m.collecting = true
	return m.collectCmd()
}

func (m Model) collectCmd() tea.Cmd {
	ctx, collector := m.ctx, m.collector
	return func() tea.Msg {
		return resultsMsg{results: collector.Collect(ctx), time: time.Now()}
	}
}

func (m *Model) applyResults(results []DeviceResult) {
	for _, r := range results {
		snap := r.Snapshot
		m.snapshots[r.Name] = &snap
		m.latency[r.Name] = r.Latency

		if snap.Status.Online {
			m.status[r.Name] = StatusOnline
			m.history.Push(r.Name, snap)
			delete(m.errors, r.Name)
			continue
		}
		m.status[r.Name] = StatusOffline
		if snap.Status.Error != "" {
			m.errors[r.Name] = snap.Status.Error
		}
	}

	m.sortDevices()
	m.refreshDetail()
}

// sortDevices orders the list by the current sort order and keeps the
// same device selected.
func (m *Model) sortDevices() {
	current := m.SelectedDevice()

	sort.SliceStable(m.devices, func(i, j int) bool {
		a, b := m.devices[i], m.devices[j]
		if m.sortOrder != SortByName {
			va, vb := m.sortValue(a), m.sortValue(b)
			if va != vb {
				return va > vb
			}
		}
		return m.order[a] < m.order[b]
	})

	for i, name := range m.devices {
		if name == current {
			m.selected = i
			return
		}
	}
}

// sortValue is the latest reading for the active sort, or -1 for devices
// without one so they sink to the bottom.
func (m *Model) sortValue(name string) float64 {
	cpu, cpuOK, mem, memOK := m.history.Latest(name)
	if m.status[name] != StatusOnline {
		return -1
	}
	switch m.sortOrder {
	case SortByCPU:
		if cpuOK {
			return cpu
		}
	case SortByMemory:
		if memOK {
			return mem
		}
	}
	return -1
}

// refreshDetail re-renders the detail viewport content for the selected
// device.
func (m *Model) refreshDetail() {
	if !m.detailReady || m.viewMode != ViewDetail {
		return
	}
	name := m.SelectedDevice()
	snap, ok := m.snapshots[name]
	if !ok {
		m.detail.SetContent(LabelStyle.Render("Waiting for first reading..."))
		return
	}
	m.detail.SetContent(ui.RenderSnapshot(name, *snap))
}

// OnlineCount returns the number of devices that answered the last poll.
func (m Model) OnlineCount() int {
	count := 0
	for _, s := range m.status {
		if s == StatusOnline {
			count++
		}
	}
	return count
}

// SelectedDevice returns the name of the selected device.
func (m Model) SelectedDevice() string {
	if m.selected >= 0 && m.selected < len(m.devices) {
		return m.devices[m.selected]
	}
	return ""
}

// SecondsSinceUpdate returns how many seconds have passed since the last update.
func (m Model) SecondsSinceUpdate() int {
	if m.lastUpdate.IsZero() {
		return 0
	}
	return int(time.Since(m.lastUpdate).Seconds())
}

// Run starts the dashboard and blocks until the user quits or ctx is done.
func Run(ctx context.Context, collector *Collector, interval time.Duration) error {
	p := tea.NewProgram(
		NewModel(ctx, collector, interval),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
