package telemetry

import (
	"context"
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"github.com/NewSmoke38/SED-Manager/internal/logger"
	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
)

// Collector gathers snapshots from devices.
type Collector struct {
	dialer sshutil.Dialer
	log    logger.Logger
	now    func() time.Time
}

// NewCollector creates a collector that reaches devices through dialer.
// A nil log discards messages.
func NewCollector(dialer sshutil.Dialer, log logger.Logger) *Collector {
	if log == nil {
		log = logger.Noop()
	}
	return &Collector{
		dialer: dialer,
		log:    log,
		now:    time.Now,
	}
}

// CollectMetrics returns a snapshot of target. It always returns a
// snapshot; unreachable devices come back with Status.Online false and the
// failure in Status.Error.
func (c *Collector) CollectMetrics(ctx context.Context, target sshutil.Target) Snapshot {
	snap, err := c.collect(ctx, target)
	if err != nil {
		c.log.Warn("collect %s: %s", target.Address(), errors.Message(err))
		return Snapshot{
			Status:    Status{Online: false, Error: errors.Message(err)},
			Timestamp: c.now(),
		}
	}
	return snap
}

func (c *Collector) collect(ctx context.Context, target sshutil.Target) (Snapshot, error) {
	conn, err := c.dialer.Dial(ctx, target)
	if err != nil {
		return Snapshot{}, err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			c.log.Debug("close %s: %v", target.Address(), cerr)
		}
	}()

	if _, err := conn.Run(ctx, livenessCommand); err != nil {
		return Snapshot{}, err
	}
	seen := c.now()

	family := Detect(ctx, conn)
	c.log.Debug("%s classified as %s", target.Address(), family)

	cmds := commandsFor(family)
	outputs := make(map[string]string, 6)
	for _, cmd := range cmds.ordered() {
		res, err := conn.Run(ctx, cmd)
		if err != nil {
			return Snapshot{}, err
		}
		outputs[cmd] = res.Output()
	}

	snap := Snapshot{
		Status:    Status{Online: true, LastSeen: &seen},
		OS:        family,
		Timestamp: seen,
	}

	var (
		memory  MemoryInfo
		cpu     CPUInfo
		disk    DiskInfo
		network NetworkInfo
	)
	switch family {
	case OSWindows:
		memory = ParseWindowsMemory(outputs[cmds.Memory])
		cpu = ParseWindowsCPU(outputs[cmds.CPU], outputs[cmds.Processes])
		disk = ParseWindowsDisk(outputs[cmds.Disk])
		network = NetworkInfo{Interfaces: []Interface{}}
	default:
		memory = ParseLinuxMemory(outputs[cmds.Memory])
		cpu = ParseLinuxCPU(outputs[cmds.CPU], outputs[cmds.Load])
		disk = ParseLinuxDisk(outputs[cmds.Disk])
		network = ParseLinuxNetwork(outputs[cmds.Network])
	}

	snap.Memory = &memory
	snap.CPU = &cpu
	snap.Disk = &disk
	snap.Network = &network
	return snap, nil
}
