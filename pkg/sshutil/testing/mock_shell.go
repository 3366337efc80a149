package testing

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

// MockShell simulates a remote pseudo-terminal channel.
// Output is fed with Emit; whatever the code under test writes is captured
// and available through Input.
type MockShell struct {
	pr *io.PipeReader
	pw *io.PipeWriter

	mu        sync.Mutex
	input     bytes.Buffer
	resizes   []Size
	resizeErr error
	writeErr  error
	closed    int
}

// Size is a terminal size in character cells.
type Size struct {
	Rows int
	Cols int
}

// NewMockShell creates an open shell with no pending output.
func NewMockShell() *MockShell {
	pr, pw := io.Pipe()
	return &MockShell{pr: pr, pw: pw}
}

// Read returns output previously passed to Emit. It returns io.EOF after
// Hangup and io.ErrClosedPipe after Close.
func (s *MockShell) Read(p []byte) (int, error) {
	return s.pr.Read(p)
}

// Write captures input sent to the shell.
func (s *MockShell) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed > 0 {
		return 0, io.ErrClosedPipe
	}
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	return s.input.Write(p)
}

// Resize records the new size, failing with the error set by SetResizeError.
func (s *MockShell) Resize(rows, cols int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resizeErr != nil {
		return s.resizeErr
	}
	s.resizes = append(s.resizes, Size{Rows: rows, Cols: cols})
	return nil
}

// Close closes the channel. A second Close returns io.EOF, matching what an
// SSH channel reports when it is already gone.
func (s *MockShell) Close() error {
	s.mu.Lock()
	s.closed++
	n := s.closed
	s.mu.Unlock()

	s.pr.Close()
	if n > 1 {
		return io.EOF
	}
	return nil
}

// Emit makes data available to Read. It blocks until the data is read
// or the shell is closed.
func (s *MockShell) Emit(data []byte) error {
	_, err := s.pw.Write(data)
	return err
}

// Hangup simulates the remote shell exiting: pending and later reads
// return io.EOF.
func (s *MockShell) Hangup() {
	s.pw.Close()
}

// SetResizeError makes later Resize calls fail.
func (s *MockShell) SetResizeError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resizeErr = err
}

// SetWriteError makes later Write calls fail.
func (s *MockShell) SetWriteError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// Input returns everything written to the shell so far.
func (s *MockShell) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input.String()
}

// Resizes returns every successful resize, in order.
func (s *MockShell) Resizes() []Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Size, len(s.resizes))
	copy(out, s.resizes)
	return out
}

// CloseCount returns how many times Close was called.
func (s *MockShell) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ErrResize is a convenience error for resize failure tests.
var ErrResize = errors.New("window-change rejected")
