// Package testing provides SSH test doubles for code built on sshutil.
// MockConn answers commands from canned responses, MockShell stands in for a
// pseudo-terminal channel, and Server is a real in-process SSH server for
// tests that need the wire protocol.
package testing

import (
	"context"
	"errors"
	"regexp"
	"sync"

	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
)

// ErrConnClosed is returned by a MockConn used after Close.
var ErrConnClosed = errors.New("connection closed")

// CommandResponse defines a canned response for a specific command pattern.
type CommandResponse struct {
	Stdout string
	Stderr string
	Error  error
}

type patternResponse struct {
	re   *regexp.Regexp
	resp CommandResponse
}

// MockConn simulates an authenticated SSH connection for testing.
// It satisfies sshutil.Conn.
type MockConn struct {
	mu       sync.Mutex
	host     string
	closed   int
	exact    map[string]CommandResponse
	patterns []patternResponse
	history  []string

	shell    *MockShell
	shellErr error
	ptyReq   []PtyRequest
}

// PtyRequest records the arguments of an OpenShell call.
type PtyRequest struct {
	Term string
	Rows int
	Cols int
}

// NewMockConn creates a mock connection with no canned responses.
// Unknown commands succeed with empty output.
func NewMockConn(host string) *MockConn {
	return &MockConn{
		host:  host,
		exact: make(map[string]CommandResponse),
	}
}

// Run returns the response registered for cmd.
// Exact matches win over patterns; patterns are tried in registration order.
func (m *MockConn) Run(ctx context.Context, cmd string) (sshutil.CommandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return sshutil.CommandResult{}, err
	}
	if m.closed > 0 {
		return sshutil.CommandResult{}, ErrConnClosed
	}

	m.history = append(m.history, cmd)

	resp, ok := m.exact[cmd]
	if !ok {
		for _, p := range m.patterns {
			if p.re.MatchString(cmd) {
				resp = p.resp
				break
			}
		}
	}
	if resp.Error != nil {
		return sshutil.CommandResult{}, resp.Error
	}
	return sshutil.CommandResult{Stdout: resp.Stdout, Stderr: resp.Stderr}, nil
}

// OpenShell returns the shell registered with SetShell.
func (m *MockConn) OpenShell(term string, rows, cols int) (sshutil.Shell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed > 0 {
		return nil, ErrConnClosed
	}
	m.ptyReq = append(m.ptyReq, PtyRequest{Term: term, Rows: rows, Cols: cols})
	if m.shellErr != nil {
		return nil, m.shellErr
	}
	if m.shell == nil {
		m.shell = NewMockShell()
	}
	return m.shell, nil
}

// Close marks the connection as closed. Closing twice returns ErrConnClosed,
// like a real connection would.
func (m *MockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	if m.closed > 1 {
		return ErrConnClosed
	}
	return nil
}

// SetCommandResponse registers a canned response for cmd (exact match).
func (m *MockConn) SetCommandResponse(cmd string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exact[cmd] = resp
}

// SetPatternResponse registers a canned response for commands matching the
// regular expression pattern. It panics on an invalid pattern.
func (m *MockConn) SetPatternResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, patternResponse{re: regexp.MustCompile(pattern), resp: resp})
}

// SetShell sets the shell returned by OpenShell, or the error it fails with.
func (m *MockConn) SetShell(shell *MockShell, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shell = shell
	m.shellErr = err
}

// Commands returns every command run so far, in order.
func (m *MockConn) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.history))
	copy(out, m.history)
	return out
}

// PtyRequests returns the arguments of every OpenShell call.
func (m *MockConn) PtyRequests() []PtyRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PtyRequest, len(m.ptyReq))
	copy(out, m.ptyReq)
	return out
}

// CloseCount returns how many times Close was called.
func (m *MockConn) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Host returns the host the mock was created for.
func (m *MockConn) Host() string {
	return m.host
}

// MockDialer hands out MockConns and records every dial.
// It satisfies sshutil.Dialer.
type MockDialer struct {
	mu      sync.Mutex
	conns   []*MockConn
	next    int
	err     error
	targets []sshutil.Target
}

// NewMockDialer returns a dialer that hands out conns in order. Once they
// run out, the last one is returned again.
func NewMockDialer(conns ...*MockConn) *MockDialer {
	return &MockDialer{conns: conns}
}

// SetError makes every later Dial fail with err.
func (d *MockDialer) SetError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// Dial implements sshutil.Dialer.
func (d *MockDialer) Dial(ctx context.Context, target sshutil.Target) (sshutil.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.targets = append(d.targets, target)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.err != nil {
		return nil, d.err
	}
	if len(d.conns) == 0 {
		conn := NewMockConn(target.Host)
		d.conns = append(d.conns, conn)
	}

	idx := d.next
	if idx >= len(d.conns) {
		idx = len(d.conns) - 1
	}
	d.next++
	return d.conns[idx], nil
}

// Dials returns the number of Dial calls.
func (d *MockDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.targets)
}

// Targets returns the target of every Dial call.
func (d *MockDialer) Targets() []sshutil.Target {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]sshutil.Target, len(d.targets))
	copy(out, d.targets)
	return out
}
