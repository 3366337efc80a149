package ui

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/logs"
	"github.com/NewSmoke38/SED-Manager/internal/telemetry"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	DisableColors()
	os.Exit(m.Run())
}

func TestThresholdColor(t *testing.T) {
	tests := []struct {
		percent float64
		want    lipgloss.Color
	}{
		{0, ColorSuccess},
		{59.9, ColorSuccess},
		{60, ColorWarning},
		{79.9, ColorWarning},
		{80, ColorError},
		{100, ColorError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ThresholdColor(tt.percent), "percent %v", tt.percent)
	}
}

func TestStatusSymbolAndColor(t *testing.T) {
	assert.Equal(t, SymbolComplete, StatusSymbol("online"))
	assert.Equal(t, SymbolFail, StatusSymbol("offline"))
	assert.Equal(t, SymbolPending, StatusSymbol("unknown"))

	assert.Equal(t, ColorSuccess, StatusColor("online"))
	assert.Equal(t, ColorError, StatusColor("offline"))
	assert.Equal(t, ColorMuted, StatusColor(""))
}

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		percent float64
		width   int
		want    string
	}{
		{"half", 50, 10, "[█████░░░░░]  50%"},
		{"empty", 0, 4, "[░░░░]   0%"},
		{"full", 100, 4, "[████] 100%"},
		{"clamped high", 150, 4, "[████] 100%"},
		{"clamped low", -5, 4, "[░░░░]   0%"},
		{"no width", 50, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderProgressBar(tt.percent, tt.width))
		})
	}
}

func TestRenderSparkline(t *testing.T) {
	tests := []struct {
		name  string
		data  []float64
		width int
		want  string
	}{
		{"empty", nil, 10, ""},
		{"zero width", []float64{50}, 0, ""},
		{"scale", []float64{0, 50, 100}, 10, "▁▄█"},
		{"keeps newest", []float64{100, 100, 0, 0}, 2, "▁▁"},
		{"clamps", []float64{-10, 250}, 5, "▁█"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderSparkline(tt.data, tt.width))
		})
	}
}

func TestRenderTable(t *testing.T) {
	assert.Empty(t, RenderTable([]TableColumn{{Title: "NAME", Width: 10}}, nil))

	out := RenderTable(
		[]TableColumn{{Title: "NAME", Width: 10}, {Title: "HOST", Width: 12}},
		[][]string{{"edge-01", "10.0.0.5"}, {"edge-02", "10.0.0.6"}},
	)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "edge-01")
	assert.Contains(t, out, "10.0.0.6")
}

func TestRenderSnapshot_Online(t *testing.T) {
	seen := time.Now()
	snap := telemetry.Snapshot{
		Status: telemetry.Status{Online: true, LastSeen: &seen},
		OS:     telemetry.OSLinux,
		CPU: &telemetry.CPUInfo{
			UsedPercent:   "42.0%",
			UserPercent:   "8.0%",
			SystemPercent: "4.5%",
			LoadAverage:   telemetry.LoadAverage{One: "0.08", Five: "0.12", Fifteen: "0.10"},
			Processes:     []telemetry.Process{{PID: "1021", User: "www", CPU: "3.1", Memory: "1.2", Command: "nginx"}},
		},
		Memory: &telemetry.MemoryInfo{Total: "7.64 GB", Used: "2.05 GB", Free: "3.88 GB", Available: "5.11 GB", UsedPercent: telemetry.NA},
		Disk: &telemetry.DiskInfo{Filesystems: []telemetry.Filesystem{
			{Filesystem: "/dev/sda1", Size: "50G", Used: "20G", Available: "28G", UsedPercent: "42%", MountedOn: "/"},
		}},
		Network: &telemetry.NetworkInfo{Interfaces: []telemetry.Interface{{Name: "eth0", RX: "100.00 MB", TX: "50.00 MB"}}},
	}

	out := RenderSnapshot("edge-01", snap)
	assert.Contains(t, out, "edge-01 is online (linux)")
	assert.Contains(t, out, "░]  42%")
	assert.Contains(t, out, "0.08 0.12 0.10")
	assert.Contains(t, out, "nginx")
	assert.Contains(t, out, "used   N/A")
	assert.Contains(t, out, "/dev/sda1")
	assert.Contains(t, out, "rx 100.00 MB")
}

func TestRenderSnapshot_Offline(t *testing.T) {
	out := RenderSnapshot("edge-02", telemetry.Snapshot{
		Status: telemetry.Status{Online: false, Error: "Can't reach 'edge-02'"},
	})
	assert.Equal(t, "✗ edge-02 is offline\n  Can't reach 'edge-02'\n", out)
}

func TestRenderLogs(t *testing.T) {
	assert.Equal(t, "No log entries\n", RenderLogs(nil))

	out := RenderLogs([]logs.Entry{
		{Level: logs.LevelInfo, Message: "usb 1-1: new device"},
		{Level: logs.LevelError, Message: "EXT4-fs error"},
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "info    usb 1-1: new device", lines[0])
	assert.Equal(t, "error   EXT4-fs error", lines[1])
}

func TestRenderHeader(t *testing.T) {
	out := RenderHeader("v1.2.0", "SSH edge device manager")
	assert.True(t, strings.HasPrefix(out, "sedm v1.2.0\nSSH edge device manager\n"))
	assert.Contains(t, out, strings.Repeat("━", HeaderWidth))
}

func TestSpinner_NoAnimation(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner("Collecting metrics")
	s.SetOutput(&buf, false)

	s.Start()
	assert.Equal(t, SpinnerInProgress, s.State())
	s.Success()

	assert.Equal(t, SpinnerSuccess, s.State())
	assert.True(t, strings.HasPrefix(buf.String(), "✓ Collecting metrics "))
	assert.True(t, strings.HasSuffix(buf.String(), "s\n"))

	// Finishing twice prints nothing more.
	before := buf.Len()
	s.Fail()
	assert.Equal(t, before, buf.Len())
	assert.Equal(t, SpinnerSuccess, s.State())
}

func TestSpinner_Animated(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner("Fetching logs")
	s.SetOutput(&buf, true)

	s.Start()
	time.Sleep(3 * SpinnerFrames.FPS)
	s.Fail()

	out := buf.String()
	assert.Contains(t, out, "Fetching logs...")
	assert.True(t, strings.HasSuffix(out, "s\n"))
	assert.Contains(t, out, "✗ Fetching logs ")
	assert.Equal(t, SpinnerFailed, s.State())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0.05s", formatDuration(50*time.Millisecond))
	assert.Equal(t, "1.2s", formatDuration(1200*time.Millisecond))
}
