package sshutil

import (
	"context"
	"io"
)

// Conn is an authenticated connection to one device.
// The real Client and the mocks in pkg/sshutil/testing both satisfy it.
//
// Commands run on independent sessions of the same connection. Callers that
// need strict ordering run them one at a time.
type Conn interface {
	// Run executes a command and collects its stdout and stderr.
	Run(ctx context.Context, cmd string) (CommandResult, error)

	// OpenShell starts an interactive shell on a pseudo-terminal.
	OpenShell(term string, rows, cols int) (Shell, error)

	// Close closes the connection and every session on it.
	Close() error
}

// Shell is a live interactive shell channel.
type Shell interface {
	io.Reader
	io.Writer

	// Resize changes the remote terminal size.
	Resize(rows, cols int) error

	// Close closes the channel.
	Close() error
}

// Dialer opens connections to devices.
type Dialer interface {
	Dial(ctx context.Context, target Target) (Conn, error)
}

// NetDialer dials real SSH connections.
type NetDialer struct {
	Options Options
}

// NewDialer returns a Dialer using the given timeouts.
func NewDialer(opts Options) *NetDialer {
	return &NetDialer{Options: opts}
}

// Dial implements Dialer.
func (d *NetDialer) Dial(ctx context.Context, target Target) (Conn, error) {
	client, err := Dial(ctx, target, d.Options)
	if err != nil {
		return nil, err
	}
	return client, nil
}
