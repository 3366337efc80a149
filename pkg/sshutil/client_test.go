package sshutil_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	sederrors "github.com/NewSmoke38/SED-Manager/internal/errors"
	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
	sshtest "github.com/NewSmoke38/SED-Manager/pkg/sshutil/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func targetFor(s *sshtest.Server, password string) sshutil.Target {
	return sshutil.Target{Host: s.Host(), Port: s.Port(), User: s.User, Password: password}
}

func TestDial_Success(t *testing.T) {
	srv := sshtest.NewServer(t, "pi", "raspberry", nil)

	client, err := sshutil.Dial(context.Background(), targetFor(srv, "raspberry"), sshutil.DefaultOptions())
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, srv.Host(), client.GetHost())
	assert.Equal(t, fmt.Sprintf("%s:%d", srv.Host(), srv.Port()), client.GetAddress())
}

func TestDial_WrongPassword(t *testing.T) {
	srv := sshtest.NewServer(t, "pi", "raspberry", nil)

	_, err := sshutil.Dial(context.Background(), targetFor(srv, "wrong"), sshutil.DefaultOptions())
	require.Error(t, err)
	assert.True(t, sederrors.IsCode(err, sederrors.ErrAuth), "got %v", err)
	assert.Equal(t, sederrors.ErrAuth, sshutil.Classify(err))
}

func TestDial_ConnectionRefused(t *testing.T) {
	// Grab a free port, then close it so nothing listens there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	target := sshutil.Target{Host: "127.0.0.1", Port: port, User: "pi", Password: "x"}
	_, err = sshutil.Dial(context.Background(), target, sshutil.Options{ConnectTimeout: time.Second})
	require.Error(t, err)
	assert.True(t, sederrors.IsCode(err, sederrors.ErrConnection), "got %v", err)
	assert.Contains(t, err.Error(), "Is SSH running")
}

func TestDial_HandshakeProtocolError(t *testing.T) {
	// A listener that accepts and immediately hangs up breaks the handshake.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	target := sshutil.Target{Host: "127.0.0.1", Port: port, User: "pi", Password: "x"}
	_, err = sshutil.Dial(context.Background(), target, sshutil.Options{ConnectTimeout: 2 * time.Second})
	require.Error(t, err)
	assert.True(t, sederrors.IsCode(err, sederrors.ErrProtocol), "got %v", err)
}

func TestDial_HandshakeTimeout(t *testing.T) {
	// A listener that accepts but never speaks SSH stalls the handshake.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	var held []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			held = append(held, c)
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	target := sshutil.Target{Host: "127.0.0.1", Port: port, User: "pi", Password: "x"}
	_, err = sshutil.Dial(context.Background(), target, sshutil.Options{ConnectTimeout: 200 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, sederrors.IsCode(err, sederrors.ErrTimeout), "got %v", err)
}

func TestDial_EmptyHost(t *testing.T) {
	_, err := sshutil.Dial(context.Background(), sshutil.Target{}, sshutil.DefaultOptions())
	require.Error(t, err)
	assert.True(t, sederrors.IsCode(err, sederrors.ErrConnection))
}

func TestRun_StdoutAndStderr(t *testing.T) {
	srv := sshtest.NewServer(t, "pi", "pw", func(cmd string) sshtest.ExecReply {
		switch cmd {
		case "echo ping":
			return sshtest.ExecReply{Stdout: "ping\n"}
		case "ver":
			return sshtest.ExecReply{Stderr: "ver: command not found\n", ExitStatus: 127}
		}
		return sshtest.ExecReply{}
	})

	client, err := sshutil.Dial(context.Background(), targetFor(srv, "pw"), sshutil.DefaultOptions())
	require.NoError(t, err)
	defer client.Close()

	res, err := client.Run(context.Background(), "echo ping")
	require.NoError(t, err)
	assert.Equal(t, "ping\n", res.Stdout)
	assert.Equal(t, "ping\n", res.Output())

	// Non-zero exit is not an error; stderr is the output when stdout is empty.
	res, err = client.Run(context.Background(), "ver")
	require.NoError(t, err)
	assert.Empty(t, res.Stdout)
	assert.Equal(t, "ver: command not found\n", res.Output())

	assert.Equal(t, []string{"echo ping", "ver"}, srv.Execs())
}

func TestRun_CommandTimeout(t *testing.T) {
	srv := sshtest.NewServer(t, "pi", "pw", func(string) sshtest.ExecReply {
		return sshtest.ExecReply{Stdout: "late", Delay: 5 * time.Second}
	})

	opts := sshutil.Options{ConnectTimeout: time.Second, CommandTimeout: 100 * time.Millisecond}
	client, err := sshutil.Dial(context.Background(), targetFor(srv, "pw"), opts)
	require.NoError(t, err)
	defer client.Close()

	start := time.Now()
	_, err = client.Run(context.Background(), "top -bn1")
	require.Error(t, err)
	assert.True(t, sederrors.IsCode(err, sederrors.ErrTimeout), "got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRun_ContextCancelled(t *testing.T) {
	srv := sshtest.NewServer(t, "pi", "pw", func(string) sshtest.ExecReply {
		return sshtest.ExecReply{Delay: 5 * time.Second}
	})

	client, err := sshutil.Dial(context.Background(), targetFor(srv, "pw"), sshutil.DefaultOptions())
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Run(ctx, "sleep")
	require.Error(t, err)
	assert.Equal(t, sederrors.ErrTimeout, sshutil.Classify(err))
}

func TestExecute_ClosesConnection(t *testing.T) {
	srv := sshtest.NewServer(t, "pi", "pw", func(cmd string) sshtest.ExecReply {
		return sshtest.ExecReply{Stdout: "Linux\n"}
	})

	out, err := sshutil.Execute(context.Background(), targetFor(srv, "pw"), "uname -s", sshutil.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "Linux\n", out)

	assert.Eventually(t, func() bool { return srv.ActiveConns() == 0 },
		time.Second, 10*time.Millisecond, "connection should be released after Execute")
}

func TestExecute_DialFailure(t *testing.T) {
	srv := sshtest.NewServer(t, "pi", "pw", nil)

	_, err := sshutil.Execute(context.Background(), targetFor(srv, "nope"), "echo ping", sshutil.DefaultOptions())
	require.Error(t, err)
	assert.True(t, sederrors.IsCode(err, sederrors.ErrAuth))
}

func TestOpenShell_EchoResizeClose(t *testing.T) {
	srv := sshtest.NewServer(t, "pi", "pw", nil)
	srv.SetBanner("welcome\r\n")

	client, err := sshutil.Dial(context.Background(), targetFor(srv, "pw"), sshutil.DefaultOptions())
	require.NoError(t, err)
	defer client.Close()

	shell, err := client.OpenShell("xterm-256color", 24, 80)
	require.NoError(t, err)

	got := readAtLeast(t, shell, "welcome")
	assert.Contains(t, got, "welcome")

	_, err = shell.Write([]byte("ls"))
	require.NoError(t, err)
	assert.Contains(t, readAtLeast(t, shell, "ls"), "ls")

	require.NoError(t, shell.Resize(40, 120))
	assert.Eventually(t, func() bool {
		sizes := srv.WindowSizes()
		return len(sizes) == 2 && sizes[1] == sshtest.Size{Rows: 40, Cols: 120}
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, sshtest.Size{Rows: 24, Cols: 80}, srv.WindowSizes()[0])

	require.NoError(t, shell.Close())
	_, err = shell.Read(make([]byte, 8))
	assert.Error(t, err)
}

func TestOpenShell_RemoteExitEndsReads(t *testing.T) {
	srv := sshtest.NewServer(t, "pi", "pw", nil)

	client, err := sshutil.Dial(context.Background(), targetFor(srv, "pw"), sshutil.DefaultOptions())
	require.NoError(t, err)
	defer client.Close()

	shell, err := client.OpenShell("xterm", 24, 80)
	require.NoError(t, err)
	defer shell.Close()

	_, err = shell.Write([]byte("exit\r"))
	require.NoError(t, err)

	_, err = io.ReadAll(shell)
	assert.NoError(t, err, "ReadAll treats io.EOF as a clean end")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"structured", sederrors.New(sederrors.ErrAuth, "denied", ""), sederrors.ErrAuth},
		{"deadline", context.DeadlineExceeded, sederrors.ErrTimeout},
		{"auth text", errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password]"), sederrors.ErrAuth},
		{"op error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, sederrors.ErrConnection},
		{"eof", io.EOF, sederrors.ErrProtocol},
		{"handshake", errors.New("ssh: handshake failed: no common algorithm"), sederrors.ErrProtocol},
		{"other", errors.New("something"), sederrors.ErrConnection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sshutil.Classify(tt.err))
		})
	}
}

func TestCommandResult_Output(t *testing.T) {
	assert.Equal(t, "out", sshutil.CommandResult{Stdout: "out", Stderr: "err"}.Output())
	assert.Equal(t, "err", sshutil.CommandResult{Stderr: "err"}.Output())
	assert.Equal(t, "", sshutil.CommandResult{}.Output())
}

func TestNetDialer(t *testing.T) {
	srv := sshtest.NewServer(t, "pi", "pw", nil)

	var d sshutil.Dialer = sshutil.NewDialer(sshutil.DefaultOptions())
	conn, err := d.Dial(context.Background(), targetFor(srv, "pw"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	_, err = d.Dial(context.Background(), targetFor(srv, "bad"))
	assert.Error(t, err)
}

// readAtLeast reads from r until the accumulated output contains want.
func readAtLeast(t *testing.T, r io.Reader, want string) string {
	t.Helper()
	var sb strings.Builder
	buf := make([]byte, 256)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := r.Read(buf)
		sb.Write(buf[:n])
		if strings.Contains(sb.String(), want) {
			return sb.String()
		}
		if err != nil {
			break
		}
	}
	t.Fatalf("did not read %q, got %q", want, sb.String())
	return ""
}
