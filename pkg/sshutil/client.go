package sshutil

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"golang.org/x/crypto/ssh"
)

const (
	// DefaultConnectTimeout bounds TCP dial plus SSH handshake.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultCommandTimeout bounds how long a command may take to produce output.
	DefaultCommandTimeout = 20 * time.Second

	// DefaultPort is used when a target leaves the port unset.
	DefaultPort = 22
)

// Target identifies a remote device and the credentials used to reach it.
// Only username/password authentication is supported.
type Target struct {
	Host     string
	Port     int
	User     string
	Password string
}

// Address returns the host:port string for dialing.
func (t Target) Address() string {
	port := t.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(port))
}

// Options tunes dialing and command execution.
type Options struct {
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
}

// DefaultOptions returns the stock connect and command timeouts.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout: DefaultConnectTimeout,
		CommandTimeout: DefaultCommandTimeout,
	}
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = DefaultCommandTimeout
	}
	return o
}

// Client wraps an SSH connection with additional metadata.
type Client struct {
	*ssh.Client
	Host    string // The host used to connect
	Address string // The resolved address (host:port)

	commandTimeout time.Duration
}

// Dial establishes an authenticated SSH connection to the target.
//
// Host keys are accepted on first use: devices are enrolled by address and
// credentials only, so there is no known_hosts store to check against.
// Failures come back as *errors.Error with code CONNECTION (socket level),
// AUTH (credentials rejected), PROTOCOL (handshake broke) or TIMEOUT.
func Dial(ctx context.Context, target Target, opts Options) (*Client, error) {
	opts = opts.withDefaults()
	address := target.Address()

	if target.Host == "" {
		return nil, errors.New(errors.ErrConnection,
			"No host given",
			"Set the device host, e.g. 192.168.1.10")
	}

	dialer := net.Dialer{Timeout: opts.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConnection,
			fmt.Sprintf("Can't reach '%s' at %s", target.Host, address),
			suggestionForDialError(err))
	}

	// ssh.NewClientConn ignores ClientConfig.Timeout, so the handshake is
	// bounded by a deadline on the raw socket instead.
	_ = conn.SetDeadline(time.Now().Add(opts.ConnectTimeout))

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, buildSSHConfig(target, opts.ConnectTimeout))
	if err != nil {
		conn.Close()
		return nil, classifyHandshakeError(err, target)
	}
	_ = conn.SetDeadline(time.Time{})

	return &Client{
		Client:         ssh.NewClient(sshConn, chans, reqs),
		Host:           target.Host,
		Address:        address,
		commandTimeout: opts.CommandTimeout,
	}, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// GetHost returns the host used to connect.
func (c *Client) GetHost() string {
	return c.Host
}

// GetAddress returns the resolved host:port address.
func (c *Client) GetAddress() string {
	return c.Address
}

// buildSSHConfig creates the client config for password authentication.
// Keyboard-interactive is offered as well, answering every prompt with the
// password, since many sshd builds disable plain "password" in favor of it.
func buildSSHConfig(target Target, timeout time.Duration) *ssh.ClientConfig {
	password := target.Password
	answer := func(_, _ string, questions []string, _ []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range answers {
			answers[i] = password
		}
		return answers, nil
	}

	return &ssh.ClientConfig{
		User: target.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(answer),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // trust on first use, no known_hosts store
		Timeout:         timeout,
	}
}

// classifyHandshakeError maps an ssh.NewClientConn failure to a structured error.
func classifyHandshakeError(err error, target Target) *errors.Error {
	var netErr net.Error
	if (stderrors.As(err, &netErr) && netErr.Timeout()) || strings.Contains(err.Error(), "i/o timeout") {
		return errors.WrapWithCode(err, errors.ErrTimeout,
			fmt.Sprintf("SSH handshake with '%s' timed out", target.Host),
			"The host accepted the connection but never finished the handshake. Is it overloaded?")
	}

	if isAuthFailure(err) {
		return errors.WrapWithCode(err, errors.ErrAuth,
			fmt.Sprintf("Credentials for '%s@%s' were rejected", target.User, target.Host),
			"Check the username and password for this device")
	}

	return errors.WrapWithCode(err, errors.ErrProtocol,
		fmt.Sprintf("SSH handshake with '%s' didn't go through", target.Host),
		suggestionForHandshakeError(err))
}

func isAuthFailure(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain")
}

// Classify returns the error code for a dial, handshake or exec failure.
// Structured errors keep their own code; raw errors are sorted by shape.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if code := errors.CodeOf(err); code != "" {
		return code
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.ErrTimeout
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.ErrTimeout
	}
	if isAuthFailure(err) {
		return errors.ErrAuth
	}
	var opErr *net.OpError
	if stderrors.As(err, &opErr) {
		return errors.ErrConnection
	}
	if stderrors.Is(err, io.EOF) || strings.Contains(err.Error(), "handshake failed") {
		return errors.ErrProtocol
	}
	return errors.ErrConnection
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return "Is SSH running on that device? Try: ssh <user>@<host>"
	}
	if strings.Contains(errStr, "no route to host") || strings.Contains(errStr, "network is unreachable") {
		return "Can't route to the host. Check your network connection."
	}
	if strings.Contains(errStr, "no such host") {
		return "The hostname doesn't resolve. Check for typos or use the IP address."
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "i/o timeout") {
		return "Connection timed out. Host might be offline or blocked by a firewall."
	}
	return "Make sure the host is reachable: ping <host>"
}

func suggestionForHandshakeError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "EOF") || strings.Contains(errStr, "connection reset") {
		return "The server closed the connection during the handshake. It may limit connections (MaxStartups) or block this client."
	}
	if strings.Contains(errStr, "no common algorithm") {
		return "The server and client share no key exchange or cipher algorithm. The device's SSH server may be very old."
	}
	return "Something went wrong during SSH setup. Try: ssh <user>@<host>"
}
