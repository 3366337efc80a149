package testing

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
)

// ExecReply is what the in-process server answers to an exec request.
type ExecReply struct {
	Stdout     string
	Stderr     string
	ExitStatus uint32
	Delay      time.Duration
}

// ExecHandler produces the reply for one command.
type ExecHandler func(cmd string) ExecReply

// Server is a minimal SSH server listening on 127.0.0.1 for tests.
// It accepts one username/password pair, answers exec requests through an
// ExecHandler, and runs an echo "shell" on pty sessions: every byte written
// to the shell comes straight back, after an optional banner.
type Server struct {
	User     string
	Password string

	listener net.Listener
	config   *ssh.ServerConfig
	handler  ExecHandler
	done     chan struct{}
	wg       sync.WaitGroup

	active atomic.Int32
	mu     sync.Mutex
	banner string
	execs  []string
	sizes  []Size
}

// NewServer starts a server accepting user/password. A nil handler answers
// every command with empty output. The server is closed on test cleanup.
func NewServer(t testing.TB, user, password string, handler ExecHandler) *Server {
	t.Helper()

	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		t.Fatalf("host key signer: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	if handler == nil {
		handler = func(string) ExecReply { return ExecReply{} }
	}

	s := &Server{
		User:     user,
		Password: password,
		listener: ln,
		handler:  handler,
		done:     make(chan struct{}),
	}
	s.config = &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == s.User && string(pass) == s.Password {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %q", c.User())
		},
	}
	s.config.AddHostKey(signer)

	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// SetBanner sets text the echo shell prints before echoing input.
func (s *Server) SetBanner(banner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banner = banner
}

// Host returns the listening IP.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.listener.Addr().String())
	return host
}

// Port returns the listening port.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.listener.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}

// ActiveConns returns the number of SSH connections currently open.
func (s *Server) ActiveConns() int {
	return int(s.active.Load())
}

// Execs returns every command received, in order.
func (s *Server) Execs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.execs))
	copy(out, s.execs)
	return out
}

// WindowSizes returns the sizes from pty-req and window-change requests.
func (s *Server) WindowSizes() []Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Size, len(s.sizes))
	copy(out, s.sizes)
	return out
}

// Close stops accepting connections and waits for the accept loop to exit.
func (s *Server) Close() {
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)
	s.listener.Close()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		nConn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(nConn)
	}
}

func (s *Server) handleConn(nConn net.Conn) {
	sConn, chans, reqs, err := ssh.NewServerConn(nConn, s.config)
	if err != nil {
		nConn.Close()
		return
	}
	s.active.Add(1)
	defer s.active.Add(-1)

	go ssh.DiscardRequests(reqs)
	go func() {
		<-s.done
		sConn.Close()
	}()

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "only sessions")
			continue
		}
		ch, requests, err := newCh.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(ch, requests)
	}
	_ = sConn.Wait()
}

type execPayload struct {
	Command string
}

type ptyPayload struct {
	Term     string
	Cols     uint32
	Rows     uint32
	Width    uint32
	Height   uint32
	Modelist string
}

type windowPayload struct {
	Cols   uint32
	Rows   uint32
	Width  uint32
	Height uint32
}

type exitPayload struct {
	Status uint32
}

func (s *Server) handleSession(ch ssh.Channel, requests <-chan *ssh.Request) {
	defer ch.Close()

	for req := range requests {
		switch req.Type {
		case "exec":
			var p execPayload
			if err := ssh.Unmarshal(req.Payload, &p); err != nil {
				_ = req.Reply(false, nil)
				continue
			}
			_ = req.Reply(true, nil)
			s.mu.Lock()
			s.execs = append(s.execs, p.Command)
			s.mu.Unlock()
			go s.runExec(ch, p.Command)

		case "pty-req":
			var p ptyPayload
			if err := ssh.Unmarshal(req.Payload, &p); err == nil {
				s.recordSize(int(p.Rows), int(p.Cols))
			}
			_ = req.Reply(true, nil)

		case "window-change":
			var p windowPayload
			if err := ssh.Unmarshal(req.Payload, &p); err == nil {
				s.recordSize(int(p.Rows), int(p.Cols))
			}
			if req.WantReply {
				_ = req.Reply(true, nil)
			}

		case "shell":
			_ = req.Reply(true, nil)
			go s.runEcho(ch)

		default:
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
		}
	}
}

func (s *Server) recordSize(rows, cols int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sizes = append(s.sizes, Size{Rows: rows, Cols: cols})
}

func (s *Server) runExec(ch ssh.Channel, cmd string) {
	reply := s.handler(cmd)
	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-s.done:
			ch.Close()
			return
		}
	}
	_, _ = io.WriteString(ch, reply.Stdout)
	_, _ = io.WriteString(ch.Stderr(), reply.Stderr)
	_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(exitPayload{Status: reply.ExitStatus}))
	ch.Close()
}

// runEcho writes the banner and then echoes input until the client goes away.
// Typing "exit\r" ends the shell like a real one would.
func (s *Server) runEcho(ch ssh.Channel) {
	s.mu.Lock()
	banner := s.banner
	s.mu.Unlock()
	if banner != "" {
		_, _ = io.WriteString(ch, banner)
	}
	buf := make([]byte, 1024)
	var line []byte
	for {
		n, err := ch.Read(buf)
		if n > 0 {
			_, _ = ch.Write(buf[:n])
			line = append(line, buf[:n]...)
			if len(line) >= 5 && string(line[len(line)-5:]) == "exit\r" {
				_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(exitPayload{}))
				ch.Close()
				return
			}
			if len(line) > 64 {
				line = line[len(line)-64:]
			}
		}
		if err != nil {
			return
		}
	}
}
