package cli

import (
	"context"
	"io"
	"os"

	"github.com/NewSmoke38/SED-Manager/internal/device"
	"github.com/NewSmoke38/SED-Manager/internal/logger"
	"github.com/NewSmoke38/SED-Manager/internal/monitor"
	"github.com/NewSmoke38/SED-Manager/internal/telemetry"
	"github.com/NewSmoke38/SED-Manager/internal/ui"
	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var metricsTarget targetFlags

var metricsCmd = &cobra.Command{
	Use:   "metrics [device]",
	Short: "Collect a telemetry snapshot from a device",
	Long: `Connect to a device, detect its OS, and print CPU, memory, disk and
network readings. Values the device did not report show as N/A.

For registered devices the registry's online/offline status is updated,
the same as the API's metrics endpoint.

Examples:
  sedm metrics edge-01
  sedm metrics --host pi@192.168.1.40
  sedm metrics edge-01 -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sel, err := selectDevice(ctx, metricsTarget, firstArg(args), openStore(ctx), terminalPrompt())
		if err != nil {
			return err
		}

		c := loadedConfig()
		collector := telemetry.NewCollector(sshutil.NewDialer(sshOptions(c)), logger.Default())
		return metricsCommand(ctx, os.Stdout, sel, collector, openStore(ctx), outputFlag, newProgress("Collecting metrics from "+sel.Name))
	},
}

func init() {
	rootCmd.AddCommand(metricsCmd)
	addTargetFlags(metricsCmd, &metricsTarget)
}

// metricsCommand collects one snapshot, records the outcome for registered
// devices, and prints it.
func metricsCommand(ctx context.Context, w io.Writer, sel selection, source monitor.Snapshotter, store func() (device.Store, error), format string, progress *ui.Spinner) error {
	progress.Start()
	snap := source.CollectMetrics(ctx, sel.Target)
	if snap.Status.Online {
		progress.Success()
	} else {
		progress.Fail()
	}

	if sel.DeviceID != "" {
		recordStatus(ctx, store, sel.DeviceID, snap)
	}

	if format != outputText {
		return writeData(w, format, snap)
	}
	_, err := io.WriteString(w, ui.RenderSnapshot(sel.Name, snap))
	return err
}

// recordStatus mirrors the API: online devices get their last-seen time
// bumped, offline ones only change status. Failures are logged, not fatal.
func recordStatus(ctx context.Context, store func() (device.Store, error), id string, snap telemetry.Snapshot) {
	s, err := store()
	if err != nil {
		logger.Default().Warn("open registry: %v", err)
		return
	}
	defer s.Close()

	seen := snap.Timestamp
	if snap.Status.LastSeen != nil {
		seen = *snap.Status.LastSeen
	}
	if err := s.RecordStatus(ctx, id, snap.Status.Online, seen); err != nil {
		logger.Default().Warn("record status for %s: %v", id, err)
	}
}

// newProgress returns a spinner on stderr for text output, animated only
// on a terminal. Machine output gets a silent spinner.
func newProgress(label string) *ui.Spinner {
	s := ui.NewSpinner(label)
	if outputFlag != outputText {
		s.SetOutput(io.Discard, false)
		return s
	}
	s.SetOutput(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())))
	return s
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
