package logs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	sederrors "github.com/NewSmoke38/SED-Manager/internal/errors"
	"github.com/NewSmoke38/SED-Manager/internal/logger"
	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
	sshtest "github.com/NewSmoke38/SED-Manager/pkg/sshutil/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testTarget = sshutil.Target{Host: "10.0.0.5", User: "pi", Password: "raspberry"}
)

func newTestFetcher(dialer sshutil.Dialer) (*Fetcher, *logger.BufferLogger) {
	log := logger.NewBufferLogger()
	f := NewFetcher(dialer, log)
	f.now = func() time.Time { return fixedNow }
	return f, log
}

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want Level
	}{
		{"ERROR: disk full", LevelError},
		{"WARN low memory", LevelWarning},
		{"system nominal", LevelInfo},
		{"usb 1-1: device descriptor read/64, error -71", LevelError},
		{"Failed to start Network Manager", LevelError},
		{"warning: clock skew detected", LevelWarning},
		{"Error and warning in one line", LevelError},
		{"failover complete", LevelError},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.line))
		})
	}
}

func TestParse(t *testing.T) {
	output := "  first line  \r\n\n   \nWARN second\r\nthird error\n"

	entries := Parse(output, fixedNow)

	assert.Equal(t, []Entry{
		{Level: LevelInfo, Message: "first line", Timestamp: fixedNow},
		{Level: LevelWarning, Message: "WARN second", Timestamp: fixedNow},
		{Level: LevelError, Message: "third error", Timestamp: fixedNow},
	}, entries)
}

func TestParse_KeepsLastFifty(t *testing.T) {
	var lines []string
	for i := 1; i <= 80; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}

	entries := Parse(strings.Join(lines, "\n"), fixedNow)

	require.Len(t, entries, MaxEntries)
	assert.Equal(t, "line 31", entries[0].Message)
	assert.Equal(t, "line 80", entries[MaxEntries-1].Message)
	for i := 1; i < len(entries); i++ {
		assert.Equal(t, fmt.Sprintf("line %d", 30+i+1), entries[i].Message)
	}
}

func TestParse_Empty(t *testing.T) {
	entries := Parse("\n \n", fixedNow)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestFetchLogs_FirstCommandWins(t *testing.T) {
	conn := sshtest.NewMockConn("10.0.0.5")
	conn.SetCommandResponse(Commands[0], sshtest.CommandResponse{
		Stdout: "[    0.000000] Linux version 6.1.0\n[    2.100000] EXT4-fs error (device sda1)\n",
	})
	dialer := sshtest.NewMockDialer(conn)
	f, _ := newTestFetcher(dialer)

	res := f.FetchLogs(context.Background(), testTarget)

	require.NoError(t, res.Err)
	require.Len(t, res.Logs, 2)
	assert.Equal(t, LevelInfo, res.Logs[0].Level)
	assert.Equal(t, LevelError, res.Logs[1].Level)
	assert.Equal(t, fixedNow, res.Logs[1].Timestamp)

	assert.Equal(t, []string{Commands[0]}, conn.Commands())
	assert.Equal(t, 1, dialer.Dials())
	assert.Equal(t, 1, conn.CloseCount())
}

func TestFetchLogs_FallsThrough(t *testing.T) {
	conn := sshtest.NewMockConn("win-host")
	conn.SetCommandResponse(Commands[0], sshtest.CommandResponse{
		Stderr: "'dmesg' is not recognized as an internal or external command,\r\noperable program or batch file.\r\n",
	})
	conn.SetCommandResponse(Commands[1], sshtest.CommandResponse{
		Error: sederrors.New(sederrors.ErrProtocol, "Failed to execute command", ""),
	})
	conn.SetCommandResponse(Commands[2], sshtest.CommandResponse{
		Stdout: "   Index Time          EntryType   Source\r\n   ----- ----          ---------   ------\r\n   90210 Mar 01 11:59  Warning     disk\r\n",
	})
	f, _ := newTestFetcher(sshtest.NewMockDialer(conn))

	res := f.FetchLogs(context.Background(), testTarget)

	require.NoError(t, res.Err)
	require.Len(t, res.Logs, 3)
	assert.Equal(t, LevelWarning, res.Logs[2].Level)
	assert.Equal(t, Commands, conn.Commands())
}

func TestFetchLogs_EmptyOutputSkipped(t *testing.T) {
	conn := sshtest.NewMockConn("host")
	conn.SetCommandResponse(Commands[0], sshtest.CommandResponse{Stdout: "  \n"})
	conn.SetCommandResponse(Commands[1], sshtest.CommandResponse{Stdout: "Mar  1 11:00:00 host sshd[1]: Accepted password\n"})
	f, _ := newTestFetcher(sshtest.NewMockDialer(conn))

	res := f.FetchLogs(context.Background(), testTarget)

	require.Len(t, res.Logs, 1)
	assert.Equal(t, []string{Commands[0], Commands[1]}, conn.Commands())
}

func TestFetchLogs_NothingUsable(t *testing.T) {
	conn := sshtest.NewMockConn("host")
	f, log := newTestFetcher(sshtest.NewMockDialer(conn))

	res := f.FetchLogs(context.Background(), testTarget)

	assert.NoError(t, res.Err)
	assert.NotNil(t, res.Logs)
	assert.Empty(t, res.Logs)
	assert.Len(t, conn.Commands(), len(Commands))
	assert.True(t, log.HasLevel("info"))
}

func TestFetchLogs_DialFailure(t *testing.T) {
	dialErr := sederrors.New(sederrors.ErrAuth, "Credentials rejected", "")
	dialer := sshtest.NewMockDialer()
	dialer.SetError(dialErr)
	f, log := newTestFetcher(dialer)

	res := f.FetchLogs(context.Background(), testTarget)

	assert.NotNil(t, res.Logs)
	assert.Empty(t, res.Logs)
	assert.True(t, errors.Is(res.Err, dialErr))
	assert.True(t, log.HasLevel("warn"))
}

func TestFetchLogs_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f, _ := newTestFetcher(sshtest.NewMockDialer(sshtest.NewMockConn("host")))

	res := f.FetchLogs(ctx, testTarget)

	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Empty(t, res.Logs)
}
