package monitor

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/telemetry"
	"github.com/NewSmoke38/SED-Manager/internal/ui"
	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	ui.DisableColors()
	os.Exit(m.Run())
}

// fakeSource returns canned snapshots keyed by host.
type fakeSource struct {
	mu        sync.Mutex
	snapshots map[string]telemetry.Snapshot
	delay     time.Duration
	active    int32
	peak      int32
	deadlines []bool
}

func (f *fakeSource) CollectMetrics(ctx context.Context, target sshutil.Target) telemetry.Snapshot {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}

	_, hasDeadline := ctx.Deadline()
	f.mu.Lock()
	f.deadlines = append(f.deadlines, hasDeadline)
	snap, ok := f.snapshots[target.Host]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if !ok {
		return telemetry.Snapshot{Status: telemetry.Status{Error: "Can't reach '" + target.Host + "'"}}
	}
	return snap
}

func online(cpu, mem string) telemetry.Snapshot {
	now := time.Now()
	return telemetry.Snapshot{
		Status: telemetry.Status{Online: true, LastSeen: &now},
		OS:     telemetry.OSLinux,
		CPU:    &telemetry.CPUInfo{UsedPercent: cpu},
		Memory: &telemetry.MemoryInfo{UsedPercent: mem},
	}
}

func entries(names ...string) []DeviceEntry {
	out := make([]DeviceEntry, len(names))
	for i, n := range names {
		out[i] = DeviceEntry{Name: n, Target: sshutil.Target{Host: n, User: "pi", Password: "pw"}}
	}
	return out
}

func TestDeviceStatus_String(t *testing.T) {
	tests := []struct {
		status DeviceStatus
		expect string
	}{
		{StatusConnecting, "connecting"},
		{StatusOnline, "online"},
		{StatusOffline, "offline"},
		{DeviceStatus(99), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.expect, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.status.String())
		})
	}
}

func TestCollector_Collect(t *testing.T) {
	src := &fakeSource{snapshots: map[string]telemetry.Snapshot{
		"edge-a": online("10%", "20%"),
		"edge-c": online("30%", "40%"),
	}}
	c := NewCollector(entries("edge-a", "edge-b", "edge-c"), src)

	assert.Equal(t, []string{"edge-a", "edge-b", "edge-c"}, c.Devices())

	results := c.Collect(context.Background())
	require.Len(t, results, 3)
	assert.Equal(t, "edge-a", results[0].Name)
	assert.True(t, results[0].Snapshot.Status.Online)
	assert.Equal(t, "edge-b", results[1].Name)
	assert.False(t, results[1].Snapshot.Status.Online)
	assert.Equal(t, "Can't reach 'edge-b'", results[1].Snapshot.Status.Error)
	assert.Equal(t, "edge-c", results[2].Name)

	for _, d := range src.deadlines {
		assert.True(t, d, "each device runs under a timeout")
	}
}

func TestCollector_Limit(t *testing.T) {
	src := &fakeSource{delay: 20 * time.Millisecond}
	c := NewCollector(entries("a", "b", "c", "d", "e", "f"), src)
	c.SetLimit(2)
	c.SetLimit(0) // ignored

	c.Collect(context.Background())
	assert.LessOrEqual(t, atomic.LoadInt32(&src.peak), int32(2))
	assert.Equal(t, int32(0), atomic.LoadInt32(&src.active))
}

func TestHistory(t *testing.T) {
	h := NewHistory(3)

	h.Push("edge", online("10%", "50%"))
	h.Push("edge", online("N/A", "60%"))
	h.Push("edge", telemetry.Snapshot{}) // offline, skipped
	assert.Equal(t, []float64{10}, h.CPU("edge", 10))
	assert.Equal(t, []float64{50, 60}, h.Memory("edge", 10))
	assert.Equal(t, 1, h.Count("edge"))

	for _, v := range []string{"20%", "30%", "40%"} {
		h.Push("edge", online(v, "70%"))
	}
	assert.Equal(t, []float64{20, 30, 40}, h.CPU("edge", 10), "ring keeps the newest values")
	assert.Equal(t, []float64{30, 40}, h.CPU("edge", 2))

	cpu, cpuOK, mem, memOK := h.Latest("edge")
	assert.True(t, cpuOK)
	assert.True(t, memOK)
	assert.Equal(t, 40.0, cpu)
	assert.Equal(t, 70.0, mem)

	h.Clear("edge")
	assert.Nil(t, h.CPU("edge", 10))
	_, cpuOK, _, memOK = h.Latest("edge")
	assert.False(t, cpuOK)
	assert.False(t, memOK)

	assert.Equal(t, DefaultHistorySize, NewHistory(0).size)
}

func TestSortOrder(t *testing.T) {
	assert.Equal(t, "name", SortByName.String())
	assert.Equal(t, "CPU", SortByCPU.String())
	assert.Equal(t, "memory", SortByMemory.String())
	assert.Equal(t, SortByCPU, SortByName.Next())
	assert.Equal(t, SortByMemory, SortByCPU.Next())
	assert.Equal(t, SortByName, SortByMemory.Next())
}

func newTestModel(t *testing.T, names ...string) (Model, *fakeSource) {
	t.Helper()
	src := &fakeSource{snapshots: map[string]telemetry.Snapshot{}}
	m := NewModel(context.Background(), NewCollector(entries(names...), src), time.Second)
	return m, src
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel(t *testing.T) {
	m, _ := newTestModel(t, "edge-a", "edge-b")

	assert.Equal(t, []string{"edge-a", "edge-b"}, m.devices)
	assert.Equal(t, StatusConnecting, m.status["edge-a"])
	assert.Equal(t, "edge-a", m.SelectedDevice())
	assert.True(t, m.collecting)
	assert.Equal(t, time.Second, m.interval)
	assert.Equal(t, 0, m.OnlineCount())

	m2 := NewModel(context.Background(), NewCollector(nil, &fakeSource{}), 0)
	assert.Equal(t, DefaultInterval, m2.interval)
	assert.Equal(t, "", m2.SelectedDevice())
}

func TestModel_CollectCycle(t *testing.T) {
	m, src := newTestModel(t, "edge-a", "edge-b")
	src.snapshots["edge-a"] = online("25%", "40%")

	msg := m.collectCmd()()
	m, _ = update(t, m, msg)

	assert.False(t, m.collecting)
	assert.Equal(t, StatusOnline, m.status["edge-a"])
	assert.Equal(t, StatusOffline, m.status["edge-b"])
	assert.Equal(t, "Can't reach 'edge-b'", m.errors["edge-b"])
	assert.Equal(t, 1, m.OnlineCount())
	assert.Equal(t, []float64{25}, m.history.CPU("edge-a", 5))
	assert.False(t, m.lastUpdate.IsZero())

	// The next reading clears the error.
	src.snapshots["edge-b"] = online("5%", "5%")
	m, _ = update(t, m, m.collectCmd()())
	assert.Equal(t, StatusOnline, m.status["edge-b"])
	assert.NotContains(t, m.errors, "edge-b")
}

func TestModel_TickSkipsWhileCollecting(t *testing.T) {
	m, _ := newTestModel(t, "edge-a")

	require.True(t, m.collecting)
	assert.Nil(t, m.startCollect())

	m.collecting = false
	assert.NotNil(t, m.startCollect())
	assert.True(t, m.collecting)
}

func TestModel_SortKeepsSelection(t *testing.T) {
	m, src := newTestModel(t, "edge-a", "edge-b", "edge-c")
	src.snapshots["edge-a"] = online("10%", "90%")
	src.snapshots["edge-b"] = online("80%", "10%")
	m, _ = update(t, m, m.collectCmd()())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, "edge-b", m.SelectedDevice())

	m, _ = update(t, m, keyRunes("s"))
	assert.Equal(t, SortByCPU, m.sortOrder)
	assert.Equal(t, []string{"edge-b", "edge-a", "edge-c"}, m.devices)
	assert.Equal(t, "edge-b", m.SelectedDevice())

	m, _ = update(t, m, keyRunes("s"))
	assert.Equal(t, []string{"edge-a", "edge-b", "edge-c"}, m.devices)

	m, _ = update(t, m, keyRunes("s"))
	assert.Equal(t, SortByName, m.sortOrder)
	assert.Equal(t, []string{"edge-a", "edge-b", "edge-c"}, m.devices)
}

func TestModel_Navigation(t *testing.T) {
	m, _ := newTestModel(t, "a", "b", "c")

	tests := []struct {
		key  tea.KeyMsg
		want string
	}{
		{tea.KeyMsg{Type: tea.KeyUp}, "a"},
		{keyRunes("j"), "b"},
		{tea.KeyMsg{Type: tea.KeyDown}, "c"},
		{tea.KeyMsg{Type: tea.KeyDown}, "c"},
		{keyRunes("k"), "b"},
		{tea.KeyMsg{Type: tea.KeyHome}, "a"},
		{tea.KeyMsg{Type: tea.KeyEnd}, "c"},
	}
	for _, tt := range tests {
		m, _ = update(t, m, tt.key)
		assert.Equal(t, tt.want, m.SelectedDevice(), "after %s", tt.key)
	}
}

func TestModel_QuitAndHelp(t *testing.T) {
	m, _ := newTestModel(t, "edge-a")

	m, _ = update(t, m, keyRunes("?"))
	assert.True(t, m.showHelp)
	assert.Contains(t, m.View(), "Keyboard Shortcuts")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.showHelp)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestModel_View(t *testing.T) {
	m, src := newTestModel(t, "edge-a", "edge-b", "edge-c")

	out := m.View()
	assert.Contains(t, out, "sedm watch")
	assert.Contains(t, out, "3 devices | 0 online")
	assert.Contains(t, out, "connecting...")

	src.snapshots["edge-a"] = online("50%", "N/A")
	delete(src.snapshots, "edge-b")
	m, _ = update(t, m, m.collectCmd()())

	out = m.View()
	assert.Contains(t, out, "1 online")
	assert.Contains(t, out, "cpu")
	assert.Contains(t, out, " 50%")
	assert.Contains(t, out, "mem N/A")
	assert.Contains(t, out, "linux")
	assert.Contains(t, out, "Can't reach 'edge-b'")

	empty := NewModel(context.Background(), NewCollector(nil, &fakeSource{}), time.Second)
	assert.Contains(t, empty.View(), "No devices registered")
}

func TestModel_DetailView(t *testing.T) {
	m, src := newTestModel(t, "edge-a")
	src.snapshots["edge-a"] = online("50%", "25%")

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewDetail, m.viewMode)
	assert.Contains(t, m.View(), "Waiting for first reading")

	m, _ = update(t, m, m.collectCmd()())
	assert.Contains(t, m.View(), "edge-a is online (linux)")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewList, m.viewMode)
}
