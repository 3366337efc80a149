package sshutil

import (
	"io"

	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"golang.org/x/crypto/ssh"
)

// ptyShell is an interactive login shell running on a remote pseudo-terminal.
// Stdout and stderr share one stream, as they would on a real terminal.
type ptyShell struct {
	session *ssh.Session
	stdin   io.WriteCloser
	out     *io.PipeReader
}

// OpenShell requests a pseudo-terminal of the given size and starts the
// user's login shell on it.
//
// Reads return io.EOF once the remote shell exits or the connection drops.
func (c *Client) OpenShell(term string, rows, cols int) (Shell, error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrProtocol,
			"Failed to open an SSH session",
			"Connection may have been closed. Try reconnecting.")
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}

	if err := session.RequestPty(term, rows, cols, modes); err != nil {
		session.Close()
		return nil, errors.WrapWithCode(err, errors.ErrProtocol,
			"Failed to allocate PTY for shell",
			"The remote host may not support pseudo-terminals.")
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, errors.WrapWithCode(err, errors.ErrProtocol, "Failed to attach shell input", "")
	}

	pr, pw := io.Pipe()
	session.Stdout = pw
	session.Stderr = pw

	if err := session.Shell(); err != nil {
		session.Close()
		return nil, errors.WrapWithCode(err, errors.ErrProtocol,
			"Failed to start shell",
			"Check if the user has shell access on the remote host.")
	}

	go func() {
		err := session.Wait()
		if err == nil || isExitStatus(err) {
			err = io.EOF
		}
		pw.CloseWithError(err)
	}()

	return &ptyShell{session: session, stdin: stdin, out: pr}, nil
}

func (s *ptyShell) Read(p []byte) (int, error) {
	return s.out.Read(p)
}

func (s *ptyShell) Write(p []byte) (int, error) {
	return s.stdin.Write(p)
}

// Resize sends a window-change request for the new terminal size.
func (s *ptyShell) Resize(rows, cols int) error {
	return s.session.WindowChange(rows, cols)
}

// Close closes the shell channel. Pending reads return io.EOF.
func (s *ptyShell) Close() error {
	err := s.session.Close()
	s.out.Close()
	return err
}
