package monitor

import (
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/telemetry"
	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
)

// DeviceEntry is one device on the dashboard.
type DeviceEntry struct {
	Name   string
	Target sshutil.Target
}

// DeviceStatus is the dashboard's view of a device's reachability.
type DeviceStatus int

const (
	StatusConnecting DeviceStatus = iota
	StatusOnline
	StatusOffline
)

// String returns a human-readable status string.
func (s DeviceStatus) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// DeviceResult is the outcome of polling one device.
type DeviceResult struct {
	Name     string
	Snapshot telemetry.Snapshot
	Latency  time.Duration
}
