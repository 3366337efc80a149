package testing

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ sshutil.Conn   = (*MockConn)(nil)
	_ sshutil.Dialer = (*MockDialer)(nil)
	_ sshutil.Shell  = (*MockShell)(nil)
)

func TestMockConn_Responses(t *testing.T) {
	conn := NewMockConn("edge")
	conn.SetCommandResponse("free -m", CommandResponse{Stdout: "Mem: 1000 400 600"})
	conn.SetPatternResponse(`^tail -50 `, CommandResponse{Stderr: "tail: cannot open"})
	conn.SetPatternResponse(`^tail`, CommandResponse{Stdout: "never reached"})
	conn.SetCommandResponse("boom", CommandResponse{Error: errors.New("channel broke")})

	ctx := context.Background()

	res, err := conn.Run(ctx, "free -m")
	require.NoError(t, err)
	assert.Equal(t, "Mem: 1000 400 600", res.Output())

	res, err = conn.Run(ctx, "tail -50 /var/log/syslog")
	require.NoError(t, err)
	assert.Equal(t, "tail: cannot open", res.Output())

	res, err = conn.Run(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, res.Output())

	_, err = conn.Run(ctx, "boom")
	assert.EqualError(t, err, "channel broke")

	assert.Equal(t, []string{"free -m", "tail -50 /var/log/syslog", "unknown", "boom"}, conn.Commands())
}

func TestMockConn_Close(t *testing.T) {
	conn := NewMockConn("edge")
	require.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.Close(), ErrConnClosed)
	assert.Equal(t, 2, conn.CloseCount())

	_, err := conn.Run(context.Background(), "echo ping")
	assert.ErrorIs(t, err, ErrConnClosed)
}

func TestMockConn_OpenShell(t *testing.T) {
	conn := NewMockConn("edge")
	shell := NewMockShell()
	conn.SetShell(shell, nil)

	got, err := conn.OpenShell("xterm", 24, 80)
	require.NoError(t, err)
	assert.Same(t, shell, got)
	assert.Equal(t, []PtyRequest{{Term: "xterm", Rows: 24, Cols: 80}}, conn.PtyRequests())

	conn.SetShell(nil, errors.New("pty refused"))
	_, err = conn.OpenShell("xterm", 24, 80)
	assert.EqualError(t, err, "pty refused")
}

func TestMockDialer(t *testing.T) {
	first, second := NewMockConn("a"), NewMockConn("b")
	d := NewMockDialer(first, second)
	ctx := context.Background()

	c1, err := d.Dial(ctx, sshutil.Target{Host: "a"})
	require.NoError(t, err)
	c2, err := d.Dial(ctx, sshutil.Target{Host: "b"})
	require.NoError(t, err)
	c3, err := d.Dial(ctx, sshutil.Target{Host: "c"})
	require.NoError(t, err)

	assert.Same(t, first, c1)
	assert.Same(t, second, c2)
	assert.Same(t, second, c3)
	assert.Equal(t, 3, d.Dials())
	assert.Equal(t, "c", d.Targets()[2].Host)

	d.SetError(errors.New("refused"))
	_, err = d.Dial(ctx, sshutil.Target{Host: "a"})
	assert.EqualError(t, err, "refused")
}

func TestMockShell(t *testing.T) {
	shell := NewMockShell()

	go func() { _ = shell.Emit([]byte("hello")) }()
	buf := make([]byte, 16)
	n, err := shell.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	_, err = shell.Write([]byte("ls\n"))
	require.NoError(t, err)
	assert.Equal(t, "ls\n", shell.Input())

	require.NoError(t, shell.Resize(40, 120))
	shell.SetResizeError(ErrResize)
	assert.ErrorIs(t, shell.Resize(1, 1), ErrResize)
	assert.Equal(t, []Size{{Rows: 40, Cols: 120}}, shell.Resizes())

	shell.Hangup()
	_, err = shell.Read(buf)
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, shell.Close())
	assert.ErrorIs(t, shell.Close(), io.EOF)
	assert.Equal(t, 2, shell.CloseCount())
}
