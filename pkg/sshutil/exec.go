package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"golang.org/x/crypto/ssh"
)

// CommandResult holds the captured output of one remote command.
type CommandResult struct {
	Stdout string
	Stderr string
}

// Output returns stdout when it is non-empty, stderr otherwise.
func (r CommandResult) Output() string {
	if r.Stdout != "" {
		return r.Stdout
	}
	return r.Stderr
}

// Run executes cmd on a fresh session of the connection and collects its
// output. A non-zero exit status is not an error: diagnostic commands often
// exit non-zero while still printing something useful.
//
// Output collection is bounded by the client's command timeout. When the
// bound or ctx expires first, the session is closed and a TIMEOUT error is
// returned.
func (c *Client) Run(ctx context.Context, cmd string) (CommandResult, error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return CommandResult{}, errors.WrapWithCode(err, errors.ErrProtocol,
			"Failed to open an SSH session",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	timeout := c.commandTimeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmd)
	}()

	select {
	case <-ctx.Done():
		_ = session.Close()
		return CommandResult{}, errors.WrapWithCode(ctx.Err(), errors.ErrTimeout,
			fmt.Sprintf("Gave up waiting for '%s'", cmd), "")
	case <-timer.C:
		_ = session.Close()
		return CommandResult{}, errors.New(errors.ErrTimeout,
			fmt.Sprintf("No output from '%s' within %s", cmd, timeout),
			"The device may be overloaded, or the command is waiting for input")
	case err := <-done:
		if err != nil && !isExitStatus(err) {
			return CommandResult{}, errors.WrapWithCode(err, errors.ErrProtocol,
				fmt.Sprintf("Failed to execute command: %s", cmd),
				"The SSH channel broke while the command was running.")
		}
	}

	return CommandResult{Stdout: stdoutBuf.String(), Stderr: stderrBuf.String()}, nil
}

// isExitStatus reports whether err only says the command ran and exited
// non-zero (or without reporting a status).
func isExitStatus(err error) bool {
	var exitErr *ssh.ExitError
	if stderrors.As(err, &exitErr) {
		return true
	}
	var missing *ssh.ExitMissingError
	return stderrors.As(err, &missing)
}

// Execute dials target, runs one command, and closes the connection on every
// exit path. It returns stdout if non-empty, else stderr.
//
// Each call pays for its own handshake. Callers running several commands
// against the same device should Dial once and call Run repeatedly.
func Execute(ctx context.Context, target Target, cmd string, opts Options) (string, error) {
	client, err := Dial(ctx, target, opts)
	if err != nil {
		return "", err
	}
	defer client.Close()

	result, err := client.Run(ctx, cmd)
	if err != nil {
		return "", err
	}
	return result.Output(), nil
}
