package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
)

// DefaultProbeTimeout bounds one device probe.
const DefaultProbeTimeout = 10 * time.Second

const probeCommand = "echo ping"

// DeviceCheck connects to a registered device, runs a trivial command and
// reports the round trip.
type DeviceCheck struct {
	DeviceName string
	Target     sshutil.Target
	Dialer     sshutil.Dialer
	Timeout    time.Duration
}

func (c *DeviceCheck) Name() string     { return "device_" + c.DeviceName }
func (c *DeviceCheck) Category() string { return CategoryDevices }

func (c *DeviceCheck) Run(ctx context.Context) CheckResult {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	conn, err := c.Dialer.Dial(ctx, c.Target)
	if err != nil {
		return c.unreachable(err)
	}
	defer conn.Close()

	res, err := conn.Run(ctx, probeCommand)
	if err != nil {
		return c.unreachable(err)
	}
	if strings.TrimSpace(res.Output()) != "ping" {
		return CheckResult{
			Status:     StatusWarn,
			Message:    fmt.Sprintf("%s: connected, but %q answered %q", c.DeviceName, probeCommand, strings.TrimSpace(res.Output())),
			Suggestion: "The login shell may print banners; metrics parsing can be affected",
		}
	}

	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%s (%s) reachable in %dms", c.DeviceName, c.Target.Address(), time.Since(start).Milliseconds()),
	}
}

func (c *DeviceCheck) unreachable(err error) CheckResult {
	suggestion := fmt.Sprintf("%s may be offline or firewalled", c.DeviceName)
	switch sshutil.Classify(err) {
	case errors.ErrAuth:
		suggestion = fmt.Sprintf("Check the stored username and password for %s", c.DeviceName)
	case errors.ErrTimeout:
		suggestion = "Device may be offline or blocked by a firewall"
	case errors.ErrProtocol:
		suggestion = "The SSH server dropped the handshake; check its MaxStartups and allowed ciphers"
	}
	return CheckResult{
		Status:     StatusFail,
		Message:    fmt.Sprintf("%s (%s): %s", c.DeviceName, c.Target.Address(), errors.Message(err)),
		Suggestion: suggestion,
	}
}
