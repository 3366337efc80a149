package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
	"github.com/spf13/cobra"
)

var execTarget targetFlags

var execCmd = &cobra.Command{
	Use:   "exec [device] -- <command>",
	Short: "Run one command on a device",
	Long: `Open a connection, run a single command, print its output and
disconnect. stdout is printed when the command wrote any, else stderr.

Examples:
  sedm exec edge-01 -- uptime
  sedm exec --host pi@10.0.0.5 -- df -h /`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ref, command := splitDashArgs(cmd, args)
		if len(command) == 0 {
			return errors.New(errors.ErrConfig,
				"No command given",
				"Put the command after --, e.g. sedm exec edge-01 -- uptime")
		}

		sel, err := selectDevice(ctx, execTarget, ref, openStore(ctx), terminalPrompt())
		if err != nil {
			return err
		}

		opts := sshOptions(loadedConfig())
		run := func(ctx context.Context, target sshutil.Target, cmd string) (string, error) {
			return sshutil.Execute(ctx, target, cmd, opts)
		}
		return execCommand(ctx, os.Stdout, sel, strings.Join(command, " "), run, outputFlag)
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
	addTargetFlags(execCmd, &execTarget)
}

// executor runs one command against a target.
type executor func(ctx context.Context, target sshutil.Target, cmd string) (string, error)

// execResult is the machine-readable form of an exec.
type execResult struct {
	Device  string `json:"device"`
	Command string `json:"command"`
	Output  string `json:"output"`
}

func execCommand(ctx context.Context, w io.Writer, sel selection, command string, run executor, format string) error {
	out, err := run(ctx, sel.Target, command)
	if err != nil {
		return err
	}

	if format != outputText {
		return writeData(w, format, execResult{Device: sel.Name, Command: command, Output: out})
	}
	if _, err := io.WriteString(w, out); err != nil {
		return err
	}
	if out != "" && !strings.HasSuffix(out, "\n") {
		_, err = io.WriteString(w, "\n")
	}
	return err
}
