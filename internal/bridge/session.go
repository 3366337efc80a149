// Package bridge relays an interactive SSH shell to a message-oriented
// client such as a browser terminal.
//
// A Session moves through Idle, Connecting, Streaming, Closing and Closed.
// It starts Idle and waits for a "connect" message. A failed connect reports
// an "error" event and returns to Idle so the client can retry. Once
// Streaming, shell output flows to the client as "data" events while
// "input" and "resize" messages flow to the shell. The session ends when
// either side goes away, and every resource is released regardless of
// which close calls fail.
package bridge

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"github.com/NewSmoke38/SED-Manager/internal/logger"
	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
)

// ErrAlreadyConnected is reported when a connect arrives mid-stream.
var ErrAlreadyConnected = stderrors.New("session already connected")

// Transport carries JSON messages to and from the client. A
// *websocket.Conn satisfies it. ReadJSON is only called from one
// goroutine; WriteJSON calls are serialized by the session.
//
// ReadJSON should return io.EOF when the client closes normally.
type Transport interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

// State is a session's lifecycle stage.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options configures a session's pseudo-terminal and relay.
type Options struct {
	// PollInterval is how often buffered shell output is flushed.
	PollInterval time.Duration

	// Term, Rows and Cols describe the pseudo-terminal requested on
	// connect. A connect message carrying both rows and cols overrides
	// the size.
	Term string
	Rows int
	Cols int
}

// DefaultOptions returns a 20ms flush interval and an 80x24 xterm.
func DefaultOptions() Options {
	return Options{
		PollInterval: 20 * time.Millisecond,
		Term:         "xterm-256color",
		Rows:         24,
		Cols:         80,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.Term == "" {
		o.Term = d.Term
	}
	if o.Rows <= 0 || o.Cols <= 0 {
		o.Rows, o.Cols = d.Rows, d.Cols
	}
	return o
}

// Session bridges one client transport to at most one shell at a time.
type Session struct {
	transport Transport
	dialer    sshutil.Dialer
	opts      Options
	log       logger.Logger

	mu           sync.Mutex // guards the fields below
	state        State
	conn         sshutil.Conn
	shell        sshutil.Shell
	relayCancel  context.CancelFunc
	relayDone    chan struct{}
	remoteHangup bool

	writeMu       sync.Mutex
	transportOnce sync.Once
	transportErr  error
	teardownOnce  sync.Once
}

// NewSession creates an Idle session. A nil log discards messages.
func NewSession(transport Transport, dialer sshutil.Dialer, opts Options, log logger.Logger) *Session {
	if log == nil {
		log = logger.Noop()
	}
	return &Session{
		transport: transport,
		dialer:    dialer,
		opts:      opts.withDefaults(),
		log:       log,
		state:     StateIdle,
	}
}

// State returns the current lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// Run serves the client until it disconnects, the remote shell exits, or
// ctx is cancelled, then releases everything. It returns nil for a normal
// end and the transport error otherwise.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.teardown()

	// ReadJSON can't observe ctx; closing the transport unblocks it.
	go func() {
		<-ctx.Done()
		s.closeTransport()
	}()

	for {
		var msg Inbound
		if err := s.transport.ReadJSON(&msg); err != nil {
			if isDecodeError(err) {
				s.send(errorEvent("Failed to process request: " + err.Error()))
				continue
			}
			if ctx.Err() != nil || s.hungUp() || isClosed(err) {
				return nil
			}
			return err
		}
		s.handle(ctx, msg)
	}
}

func (s *Session) handle(ctx context.Context, msg Inbound) {
	switch msg.Type {
	case TypeConnect:
		s.connect(ctx, msg)
	case TypeInput:
		s.input(msg.Data)
	case TypeResize:
		s.resize(msg)
	default:
		s.log.Debug("ignoring message type %q", msg.Type)
	}
}

// connect dials the device and opens a shell. On failure the session
// stays Idle and the client gets an error event.
func (s *Session) connect(ctx context.Context, msg Inbound) {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		s.log.Debug("connect ignored while %s", state)
		s.send(errorEvent(ErrAlreadyConnected.Error()))
		return
	}
	s.state = StateConnecting
	s.mu.Unlock()

	target := msg.Target()
	conn, shell, err := s.open(ctx, target, msg)
	if err != nil {
		s.log.Info("connect to %s failed: %s", target.Address(), errors.Message(err))
		s.setState(StateIdle)
		s.send(errorEvent(errors.Message(err)))
		return
	}

	relayCtx, relayCancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.conn = conn
	s.shell = shell
	s.relayCancel = relayCancel
	s.relayDone = make(chan struct{})
	s.state = StateStreaming
	done := s.relayDone
	s.mu.Unlock()

	s.log.Info("shell open on %s", target.Address())

	// The connected event goes out before the relay can send any data.
	s.send(statusEvent(StatusConnected))

	go func() {
		defer close(done)
		s.stream(relayCtx, shell)
	}()
}

func (s *Session) open(ctx context.Context, target sshutil.Target, msg Inbound) (sshutil.Conn, sshutil.Shell, error) {
	conn, err := s.dialer.Dial(ctx, target)
	if err != nil {
		return nil, nil, err
	}

	rows, cols := s.opts.Rows, s.opts.Cols
	if msg.hasSize() {
		rows, cols = msg.Rows, msg.Cols
	}
	shell, err := conn.OpenShell(s.opts.Term, rows, cols)
	if err != nil {
		if cerr := conn.Close(); cerr != nil && !isClosed(cerr) {
			s.log.Warn("close after failed shell: %v", cerr)
		}
		return nil, nil, err
	}
	return conn, shell, nil
}

// stream relays shell output until the relay is cancelled or either end
// goes away. A remote exit tells the client and ends the session.
func (s *Session) stream(ctx context.Context, shell sshutil.Shell) {
	r := newRelay(shell, s.opts.PollInterval)
	err := r.run(ctx, func(data string) error {
		return s.write(dataEvent(data))
	})
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	s.remoteHangup = true
	s.mu.Unlock()

	if err != nil && !isClosed(err) {
		s.log.Warn("relay stopped: %v", err)
	} else {
		s.log.Info("remote shell closed")
	}
	s.send(statusEvent(StatusDisconnected))
	s.closeTransport()
}

func (s *Session) hungUp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remoteHangup
}

// input writes keystrokes to the shell. Before connect it does nothing.
func (s *Session) input(data string) {
	shell := s.activeShell()
	if shell == nil || data == "" {
		return
	}
	if _, err := io.WriteString(shell, data); err != nil {
		s.log.Warn("write to shell: %v", err)
	}
}

// resize changes the terminal size. It needs both dimensions, does
// nothing before connect, and never fails the session.
func (s *Session) resize(msg Inbound) {
	if !msg.hasSize() {
		return
	}
	shell := s.activeShell()
	if shell == nil {
		return
	}
	if err := shell.Resize(msg.Rows, msg.Cols); err != nil {
		s.log.Debug("resize to %dx%d: %v", msg.Cols, msg.Rows, err)
	}
}

func (s *Session) activeShell() sshutil.Shell {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStreaming {
		return nil
	}
	return s.shell
}

// write sends one message; the transport allows a single writer at a time.
func (s *Session) write(msg Outbound) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.transport.WriteJSON(msg)
}

// send is write for messages whose delivery failure only matters to the
// reader, which will see the broken transport itself.
func (s *Session) send(msg Outbound) {
	if err := s.write(msg); err != nil && !isClosed(err) {
		s.log.Debug("send %s event: %v", msg.Type, err)
	}
}

func (s *Session) closeTransport() {
	s.transportOnce.Do(func() {
		s.transportErr = s.transport.Close()
	})
}

// teardown releases the relay, shell, connection and transport. Each is
// closed regardless of how the others went; already-closed errors are
// expected and dropped.
func (s *Session) teardown() {
	s.teardownOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosing
		cancel, done := s.relayCancel, s.relayDone
		shell, conn := s.shell, s.conn
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if shell != nil {
			s.logClose("shell", shell.Close())
		}
		if conn != nil {
			s.logClose("connection", conn.Close())
		}
		s.closeTransport()
		s.logClose("transport", s.transportErr)

		if done != nil {
			<-done
		}

		s.mu.Lock()
		s.state = StateClosed
		s.shell, s.conn = nil, nil
		s.mu.Unlock()
		s.log.Debug("session closed")
	})
}

func (s *Session) logClose(what string, err error) {
	if err != nil && !isClosed(err) {
		s.log.Warn("close %s: %v", what, err)
	}
}

// isClosed reports errors that only say the other end is already gone.
func isClosed(err error) bool {
	return stderrors.Is(err, io.EOF) ||
		stderrors.Is(err, net.ErrClosed) ||
		stderrors.Is(err, io.ErrClosedPipe)
}

// isDecodeError reports a malformed client message, after which the
// transport is still usable.
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return stderrors.As(err, &syntaxErr) || stderrors.As(err, &typeErr)
}
