package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/bridge"
	"github.com/gorilla/websocket"
)

const closeGracePeriod = time.Second

func (s *Server) newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}
}

// handleTerminal upgrades the request and runs one bridge session on it
// until either side goes away.
func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.log.Debug("websocket upgrade failed: %v", err)
		return
	}
	// Terminals sit idle for long stretches; the server's read and write
	// timeouts only apply to plain HTTP.
	_ = conn.NetConn().SetDeadline(time.Time{})

	s.metrics.bridgeSessions.Inc()
	defer s.metrics.bridgeSessions.Dec()

	s.log.Debug("terminal session opened from %s", r.RemoteAddr)
	session := bridge.NewSession(&wsTransport{conn: conn}, s.dialer, s.bridge, s.log)
	if err := session.Run(r.Context()); err != nil {
		s.log.Warn("terminal session from %s ended: %v", r.RemoteAddr, err)
		return
	}
	s.log.Debug("terminal session from %s closed", r.RemoteAddr)
}

// wsTransport adapts a websocket connection to bridge.Transport. A close
// from the browser, clean or not, reads as io.EOF.
type wsTransport struct {
	conn *websocket.Conn
}

// ReadJSON decodes one whole frame, so a truncated message is a syntax
// error the session can report rather than a broken stream.
func (t *wsTransport) ReadJSON(v interface{}) error {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseNoStatusReceived,
			websocket.CloseAbnormalClosure) {
			return io.EOF
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func (t *wsTransport) WriteJSON(v interface{}) error {
	return t.conn.WriteJSON(v)
}

// Close sends a close frame when it still can, then drops the connection.
func (t *wsTransport) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
	return t.conn.Close()
}
