package cli

import (
	"context"
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/device"
	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"github.com/NewSmoke38/SED-Manager/internal/logger"
	"github.com/NewSmoke38/SED-Manager/internal/monitor"
	"github.com/NewSmoke38/SED-Manager/internal/telemetry"
	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
	"github.com/spf13/cobra"
)

var (
	watchHosts    []string
	watchTarget   targetFlags
	watchInterval time.Duration
	watchTimeout  time.Duration
	watchLimit    int
)

var watchCmd = &cobra.Command{
	Use:   "watch [device...]",
	Short: "Live dashboard of device metrics",
	Long: `Start an interactive dashboard that polls devices and shows CPU and
memory with sparkline history. Without arguments every registered device
is shown.

Examples:
  sedm watch
  sedm watch edge-01 edge-02 --interval 10s
  sedm watch --hosts pi@10.0.0.5,pi@10.0.0.6`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		entries, err := watchEntries(ctx, args, watchHosts, watchTarget, openStore(ctx), terminalPrompt())
		if err != nil {
			return err
		}

		// The dashboard owns the terminal, so pipeline logs are dropped.
		source := telemetry.NewCollector(sshutil.NewDialer(sshOptions(loadedConfig())), logger.Noop())
		collector := monitor.NewCollector(entries, source)
		collector.SetTimeout(watchTimeout)
		collector.SetLimit(watchLimit)
		return monitor.Run(ctx, collector, watchInterval)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringSliceVar(&watchHosts, "hosts", nil, "ad-hoc devices to watch (user@host[:port], comma separated)")
	watchCmd.Flags().StringVarP(&watchTarget.user, "user", "u", "", "SSH username for --hosts entries without user@")
	watchCmd.Flags().StringVar(&watchTarget.password, "password", "", "SSH password for --hosts (default $"+PasswordEnv+", else prompt)")
	watchCmd.Flags().StringVar(&watchTarget.sshConfig, "ssh-config", sshutil.DefaultSSHConfigPath(), "ssh config file used to resolve --hosts aliases")
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", monitor.DefaultInterval, "refresh interval")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", monitor.DefaultTimeout, "per-device collection timeout")
	watchCmd.Flags().IntVar(&watchLimit, "parallel", monitor.DefaultLimit, "devices polled at once")
}

// watchEntries builds the dashboard's device list from --hosts, named
// registry devices, or the whole registry, in that order of preference.
func watchEntries(ctx context.Context, refs, hosts []string, f targetFlags, store func() (device.Store, error), prompt passwordPrompt) ([]monitor.DeviceEntry, error) {
	if len(hosts) > 0 {
		if len(refs) > 0 {
			return nil, errors.New(errors.ErrConfig,
				"Both devices and --hosts were given",
				"Watch registered devices or ad-hoc hosts, not both")
		}
		var entries []monitor.DeviceEntry
		password := f.password
		for _, h := range hosts {
			hf := f
			hf.host = h
			hf.password = password
			sel, err := adHocTarget(hf, prompt)
			if err != nil {
				return nil, err
			}
			// One prompt covers every host.
			password = sel.Target.Password
			entries = append(entries, monitor.DeviceEntry{Name: sel.Name, Target: sel.Target})
		}
		return entries, nil
	}

	s, err := store()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	var devices []device.Device
	if len(refs) == 0 {
		if devices, err = s.List(ctx); err != nil {
			return nil, err
		}
		// List is newest first; the dashboard reads better oldest first.
		for i, j := 0, len(devices)-1; i < j; i, j = i+1, j-1 {
			devices[i], devices[j] = devices[j], devices[i]
		}
	} else {
		for _, ref := range refs {
			d, err := findDevice(ctx, s, ref)
			if err != nil {
				return nil, err
			}
			devices = append(devices, *d)
		}
	}

	if len(devices) == 0 {
		return nil, errors.New(errors.ErrDevice,
			"No devices registered",
			"Add one with 'sedm device add' or pass --hosts")
	}

	entries := make([]monitor.DeviceEntry, len(devices))
	for i, d := range devices {
		entries[i] = monitor.DeviceEntry{Name: d.Name, Target: d.Spec().Target()}
	}
	return entries, nil
}
