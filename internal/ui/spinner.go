package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

// SpinnerFrames is shared by the CLI spinner and the dashboard so both
// animate the same way.
var SpinnerFrames = spinner.Spinner{
	Frames: []string{"◐", "◓", "◑", "◒"},
	FPS:    time.Second / 10,
}

// SpinnerState represents the current state of a spinner.
type SpinnerState int

const (
	SpinnerPending SpinnerState = iota
	SpinnerInProgress
	SpinnerSuccess
	SpinnerFailed
)

// Spinner shows an animated "label..." line while a device is queried,
// then replaces it with a final status line and the elapsed time.
type Spinner struct {
	mu        sync.Mutex
	label     string
	state     SpinnerState
	frame     int
	startTime time.Time
	out       io.Writer
	animate   bool
	stopChan  chan struct{}
	doneChan  chan struct{}
	lastWidth int
}

// NewSpinner creates a spinner writing to stderr.
func NewSpinner(label string) *Spinner {
	return &Spinner{label: label, out: os.Stderr, animate: true}
}

// SetOutput redirects the spinner. Animation frames are skipped when
// animate is false, e.g. when w is not a terminal.
func (s *Spinner) SetOutput(w io.Writer, animate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = w
	s.animate = animate
}

// Start begins the animation. Calling Start twice is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.state == SpinnerInProgress {
		s.mu.Unlock()
		return
	}
	s.state = SpinnerInProgress
	s.startTime = time.Now()
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	animate := s.animate
	s.mu.Unlock()

	if !animate {
		close(s.doneChan)
		return
	}
	s.render()
	go s.loop()
}

// Success stops the spinner and prints a check line.
func (s *Spinner) Success() { s.finish(SpinnerSuccess) }

// Fail stops the spinner and prints a failure line.
func (s *Spinner) Fail() { s.finish(SpinnerFailed) }

// State returns the current spinner state.
func (s *Spinner) State() SpinnerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Spinner) finish(state SpinnerState) {
	s.mu.Lock()
	if s.state != SpinnerInProgress {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.doneChan
	s.mu.Unlock()
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state

	symbol, color := SymbolSuccess, ColorSuccess
	if state == SpinnerFailed {
		symbol, color = SymbolFail, ColorError
	}
	timing := lipgloss.NewStyle().Foreground(ColorMuted).Render(formatDuration(time.Since(s.startTime)))

	s.clearLine()
	fmt.Fprintf(s.out, "%s %s %s\n", lipgloss.NewStyle().Foreground(color).Render(symbol), s.label, timing)
}

func (s *Spinner) loop() {
	ticker := time.NewTicker(SpinnerFrames.FPS)
	defer ticker.Stop()
	defer close(s.doneChan)

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.frame = (s.frame + 1) % len(SpinnerFrames.Frames)
			s.mu.Unlock()
			s.render()
		}
	}
}

func (s *Spinner) render() {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbol := lipgloss.NewStyle().Foreground(ColorSecondary).Render(SpinnerFrames.Frames[s.frame])
	line := symbol + " " + s.label + "..."
	s.clearLine()
	fmt.Fprint(s.out, line)
	s.lastWidth = lipgloss.Width(line)
}

// clearLine blanks the previous frame. Callers hold s.mu.
func (s *Spinner) clearLine() {
	if s.lastWidth == 0 {
		return
	}
	fmt.Fprint(s.out, "\r"+strings.Repeat(" ", s.lastWidth)+"\r")
	s.lastWidth = 0
}

// formatDuration formats a duration for display (e.g., "0.3s", "1.2s").
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.1 {
		return fmt.Sprintf("%.2fs", secs)
	}
	return fmt.Sprintf("%.1fs", secs)
}
