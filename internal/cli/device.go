package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/device"
	"github.com/NewSmoke38/SED-Manager/internal/ui"
	"github.com/spf13/cobra"
)

var deviceAddOpts struct {
	device.NewDevice
	noPrompt bool
}

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage the device registry",
	Long: `Add, list and remove the devices that sedm serve, metrics, logs and
watch operate on. The registry is a SQLite file (registry.path).`,
}

var deviceAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a device",
	Long: `Register a device with its SSH address and credentials.

Examples:
  sedm device add edge-01 --host 192.168.1.40 --user pi
  SEDM_PASSWORD=secret sedm device add gw --host 10.0.0.1 --port 2222 --user admin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := deviceAddOpts.NewDevice
		in.Name = args[0]

		var prompt passwordPrompt
		if !deviceAddOpts.noPrompt {
			prompt = terminalPrompt()
		}
		password, err := resolvePassword(in.Password, in.Username+"@"+in.Host, prompt)
		if err != nil {
			return err
		}
		in.Password = password

		return deviceAddCommand(cmd.Context(), os.Stdout, openStore(cmd.Context()), in, outputFlag)
	},
}

var deviceListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered devices",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return deviceListCommand(cmd.Context(), os.Stdout, openStore(cmd.Context()), outputFlag)
	},
}

var deviceRemoveCmd = &cobra.Command{
	Use:     "rm <device>",
	Aliases: []string{"remove"},
	Short:   "Remove a device by ID or name",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return deviceRemoveCommand(cmd.Context(), os.Stdout, openStore(cmd.Context()), args[0], outputFlag)
	},
}

func init() {
	rootCmd.AddCommand(deviceCmd)
	deviceCmd.AddCommand(deviceAddCmd, deviceListCmd, deviceRemoveCmd)

	f := deviceAddCmd.Flags()
	f.StringVar(&deviceAddOpts.Host, "host", "", "device address (hostname or IP)")
	f.IntVar(&deviceAddOpts.Port, "port", 22, "SSH port")
	f.StringVarP(&deviceAddOpts.Username, "user", "u", "", "SSH username")
	f.StringVar(&deviceAddOpts.Password, "password", "", "SSH password (default $"+PasswordEnv+", else prompt)")
	f.StringVarP(&deviceAddOpts.Description, "description", "d", "", "free-form description")
	f.BoolVar(&deviceAddOpts.noPrompt, "no-prompt", false, "fail instead of prompting for a password")
}

func deviceAddCommand(ctx context.Context, w io.Writer, store func() (device.Store, error), in device.NewDevice, format string) error {
	s, err := store()
	if err != nil {
		return err
	}
	defer s.Close()

	d, err := s.Create(ctx, in)
	if err != nil {
		var vErr *device.ValidationError
		if format == outputText && stderrors.As(err, &vErr) {
			for _, f := range vErr.Fields {
				fmt.Fprintf(w, "  %s %s\n", ui.SymbolFail, f.Message)
			}
		}
		return err
	}

	if format != outputText {
		return writeData(w, format, d)
	}
	fmt.Fprintf(w, "%s Added %s (%s)\n", ui.SymbolSuccess, d.Name, d.ID)
	return nil
}

func deviceListCommand(ctx context.Context, w io.Writer, store func() (device.Store, error), format string) error {
	s, err := store()
	if err != nil {
		return err
	}
	defer s.Close()

	devices, err := s.List(ctx)
	if err != nil {
		return err
	}

	if format != outputText {
		return writeData(w, format, devices)
	}
	if len(devices) == 0 {
		_, err := fmt.Fprintln(w, "No devices registered. Add one with 'sedm device add'.")
		return err
	}

	rows := make([][]string, len(devices))
	for i, d := range devices {
		rows[i] = []string{
			d.ID,
			d.Name,
			d.Spec().Target().Address(),
			d.Username,
			ui.StatusSymbol(d.Status) + " " + d.Status,
			formatLastSeen(d.LastSeen),
		}
	}
	_, err = fmt.Fprintln(w, ui.RenderTable([]ui.TableColumn{
		{Title: "ID", Width: 36},
		{Title: "NAME", Width: 16},
		{Title: "ADDRESS", Width: 22},
		{Title: "USER", Width: 10},
		{Title: "STATUS", Width: 10},
		{Title: "LAST SEEN", Width: 20},
	}, rows))
	return err
}

func deviceRemoveCommand(ctx context.Context, w io.Writer, store func() (device.Store, error), ref, format string) error {
	s, err := store()
	if err != nil {
		return err
	}
	defer s.Close()

	d, err := findDevice(ctx, s, ref)
	if err != nil {
		return err
	}
	if err := s.Delete(ctx, d.ID); err != nil {
		return err
	}

	if format != outputText {
		return writeData(w, format, map[string]string{"id": d.ID, "name": d.Name})
	}
	fmt.Fprintf(w, "%s Removed %s (%s)\n", ui.SymbolSuccess, d.Name, d.ID)
	return nil
}

func formatLastSeen(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

