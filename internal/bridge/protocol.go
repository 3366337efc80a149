package bridge

import "github.com/NewSmoke38/SED-Manager/pkg/sshutil"

// Inbound message types.
const (
	TypeConnect = "connect"
	TypeInput   = "input"
	TypeResize  = "resize"
)

// Outbound message types.
const (
	TypeStatus = "status"
	TypeData   = "data"
	TypeError  = "error"
)

// Values of the status field on TypeStatus messages.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// Inbound is a message from the client. Which fields are meaningful
// depends on Type.
type Inbound struct {
	Type string `json:"type"`

	// connect
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// input
	Data string `json:"data,omitempty"`

	// resize, and optionally connect for the initial size
	Rows int `json:"rows,omitempty"`
	Cols int `json:"cols,omitempty"`
}

// Target returns the device a connect message points at. A missing port
// means 22.
func (m Inbound) Target() sshutil.Target {
	return sshutil.Target{
		Host:     m.Host,
		Port:     m.Port,
		User:     m.Username,
		Password: m.Password,
	}
}

// hasSize reports whether both dimensions are set.
func (m Inbound) hasSize() bool {
	return m.Rows > 0 && m.Cols > 0
}

// Outbound is a message to the client.
type Outbound struct {
	Type   string `json:"type"`
	Status string `json:"status,omitempty"`
	Data   string `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

func statusEvent(status string) Outbound { return Outbound{Type: TypeStatus, Status: status} }
func dataEvent(data string) Outbound     { return Outbound{Type: TypeData, Data: data} }
func errorEvent(msg string) Outbound     { return Outbound{Type: TypeError, Error: msg} }
