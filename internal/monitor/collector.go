package monitor

import (
	"context"
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/telemetry"
	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
	"golang.org/x/sync/errgroup"
)

// Snapshotter collects one snapshot from a device. *telemetry.Collector
// satisfies it.
type Snapshotter interface {
	CollectMetrics(ctx context.Context, target sshutil.Target) telemetry.Snapshot
}

// Default collection settings.
const (
	DefaultTimeout = 15 * time.Second
	DefaultLimit   = 8
)

// Collector polls a fixed set of devices.
type Collector struct {
	devices []DeviceEntry
	source  Snapshotter
	timeout time.Duration
	limit   int
}

// NewCollector creates a collector for the given devices.
func NewCollector(devices []DeviceEntry, source Snapshotter) *Collector {
	return &Collector{
		devices: devices,
		source:  source,
		timeout: DefaultTimeout,
		limit:   DefaultLimit,
	}
}

// SetTimeout sets the per-device collection timeout.
func (c *Collector) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.timeout = timeout
	}
}

// SetLimit caps how many devices are polled at once.
func (c *Collector) SetLimit(limit int) {
	if limit > 0 {
		c.limit = limit
	}
}

// Devices returns the device names in configuration order.
func (c *Collector) Devices() []string {
	names := make([]string, len(c.devices))
	for i, d := range c.devices {
		names[i] = d.Name
	}
	return names
}

// Collect polls every device and returns the results in configuration
// order. Unreachable devices come back with an offline snapshot; Collect
// itself never fails.
func (c *Collector) Collect(ctx context.Context) []DeviceResult {
	results := make([]DeviceResult, len(c.devices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)
	for i, d := range c.devices {
		i, d := i, d
		g.Go(func() error {
			devCtx, cancel := context.WithTimeout(gctx, c.timeout)
			defer cancel()

			start := time.Now()
			snap := c.source.CollectMetrics(devCtx, d.Target)
			results[i] = DeviceResult{Name: d.Name, Snapshot: snap, Latency: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
