package cli

import (
	"context"
	"io"
	"os"

	"github.com/NewSmoke38/SED-Manager/internal/logger"
	"github.com/NewSmoke38/SED-Manager/internal/logs"
	"github.com/NewSmoke38/SED-Manager/internal/ui"
	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
	"github.com/spf13/cobra"
)

var logsTarget targetFlags

var logsCmd = &cobra.Command{
	Use:   "logs [device]",
	Short: "Show recent log lines from a device",
	Long: `Fetch the most recent log lines from a device. The kernel ring buffer
is tried first, then /var/log, then the Windows event log. Each line is
tagged info, warning or error.

Examples:
  sedm logs edge-01
  sedm logs --host admin@10.0.0.9 -o yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sel, err := selectDevice(ctx, logsTarget, firstArg(args), openStore(ctx), terminalPrompt())
		if err != nil {
			return err
		}

		fetcher := logs.NewFetcher(sshutil.NewDialer(sshOptions(loadedConfig())), logger.Default())
		return logsCommand(ctx, os.Stdout, sel, fetcher, outputFlag, newProgress("Fetching logs from "+sel.Name))
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
	addTargetFlags(logsCmd, &logsTarget)
}

// logFetcher is satisfied by *logs.Fetcher.
type logFetcher interface {
	FetchLogs(ctx context.Context, target sshutil.Target) logs.Result
}

func logsCommand(ctx context.Context, w io.Writer, sel selection, fetcher logFetcher, format string, progress *ui.Spinner) error {
	progress.Start()
	result := fetcher.FetchLogs(ctx, sel.Target)
	if result.Err != nil {
		progress.Fail()
		logger.Default().Warn("fetch logs from %s: %v", sel.Name, result.Err)
	} else {
		progress.Success()
	}

	if format != outputText {
		return writeData(w, format, result)
	}
	_, err := io.WriteString(w, ui.RenderLogs(result.Logs))
	return err
}
