package server

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/bridge"
	"github.com/NewSmoke38/SED-Manager/internal/config"
	sshtest "github.com/NewSmoke38/SED-Manager/pkg/sshutil/testing"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) dialTerminal(t *testing.T, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/ws/terminal"
	return websocket.DefaultDialer.Dial(url, header)
}

func readEvent(t *testing.T, ws *websocket.Conn) bridge.Outbound {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg bridge.Outbound
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func TestTerminal_Session(t *testing.T) {
	shell := sshtest.NewMockShell()
	conn := sshtest.NewMockConn("10.0.0.5")
	conn.SetShell(shell, nil)
	dialer := sshtest.NewMockDialer(conn)
	env := newTestEnv(t, dialer, nil)

	ws, _, err := env.dialTerminal(t, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(bridge.Inbound{
		Type:     bridge.TypeConnect,
		Host:     "10.0.0.5",
		Username: "pi",
		Password: "raspberry",
	}))

	assert.Equal(t, bridge.Outbound{Type: bridge.TypeStatus, Status: bridge.StatusConnected}, readEvent(t, ws))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.srv.metrics.bridgeSessions))

	targets := dialer.Targets()
	require.Len(t, targets, 1)
	assert.Equal(t, "10.0.0.5:22", targets[0].Address())
	assert.Equal(t, []sshtest.PtyRequest{{Term: "xterm-256color", Rows: 24, Cols: 80}}, conn.PtyRequests())

	go func() { _ = shell.Emit([]byte("pi@edge-01:~$ ")) }()
	var out strings.Builder
	for !strings.Contains(out.String(), "pi@edge-01:~$ ") {
		msg := readEvent(t, ws)
		require.Equal(t, bridge.TypeData, msg.Type)
		out.WriteString(msg.Data)
	}

	require.NoError(t, ws.WriteJSON(bridge.Inbound{Type: bridge.TypeInput, Data: "uptime\r"}))
	require.NoError(t, ws.WriteJSON(bridge.Inbound{Type: bridge.TypeResize, Rows: 50, Cols: 200}))
	assert.Eventually(t, func() bool { return shell.Input() == "uptime\r" }, 5*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return len(shell.Resizes()) == 1 }, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, sshtest.Size{Rows: 50, Cols: 200}, shell.Resizes()[0])

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	require.NoError(t, ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(env.srv.metrics.bridgeSessions) == 0
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, conn.CloseCount())
	assert.Equal(t, 1, shell.CloseCount())
	assert.False(t, env.log.HasLevel("warn"))
}

func TestTerminal_MalformedMessage(t *testing.T) {
	env := newTestEnv(t, sshtest.NewMockDialer(), nil)

	ws, _, err := env.dialTerminal(t, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":`)))
	msg := readEvent(t, ws)
	assert.Equal(t, bridge.TypeError, msg.Type)
	assert.Contains(t, msg.Error, "Failed to process request")

	// The session is still usable afterwards.
	require.NoError(t, ws.WriteJSON(bridge.Inbound{Type: bridge.TypeConnect, Host: "10.0.0.5", Username: "pi", Password: "x"}))
	assert.Equal(t, bridge.StatusConnected, readEvent(t, ws).Status)
}

func TestTerminal_ConnectFailure(t *testing.T) {
	dialer := sshtest.NewMockDialer()
	dialer.SetError(assert.AnError)
	env := newTestEnv(t, dialer, nil)

	ws, _, err := env.dialTerminal(t, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(bridge.Inbound{Type: bridge.TypeConnect, Host: "10.0.0.9", Username: "pi", Password: "x"}))
	msg := readEvent(t, ws)
	assert.Equal(t, bridge.TypeError, msg.Type)
	assert.NotEmpty(t, msg.Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.srv.metrics.sshDials.WithLabelValues("connection")))
}

func TestTerminal_OriginCheck(t *testing.T) {
	env := newTestEnv(t, sshtest.NewMockDialer(), func(cfg *config.Config) {
		cfg.Server.AllowedOrigins = []string{"http://dashboard.local"}
	})

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"allowed origin", "http://dashboard.local", true},
		{"no origin", "", true},
		{"foreign origin", "http://evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			ws, resp, err := env.dialTerminal(t, header)
			if tt.ok {
				require.NoError(t, err)
				ws.Close()
				return
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}
