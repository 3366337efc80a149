package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/NewSmoke38/SED-Manager/internal/device"
	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"github.com/NewSmoke38/SED-Manager/internal/logger"
	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// PasswordEnv is checked for a device password when --password is not set.
const PasswordEnv = "SEDM_PASSWORD"

// targetFlags selects an ad-hoc device with --host instead of a registry
// reference.
type targetFlags struct {
	host      string
	port      int
	user      string
	password  string
	sshConfig string
}

func addTargetFlags(cmd *cobra.Command, f *targetFlags) {
	cmd.Flags().StringVar(&f.host, "host", "", "device to reach: host, user@host:port, or an ~/.ssh/config alias")
	cmd.Flags().IntVar(&f.port, "port", 0, "SSH port (default from ssh config, else 22)")
	cmd.Flags().StringVarP(&f.user, "user", "u", "", "SSH username (default from ssh config)")
	cmd.Flags().StringVar(&f.password, "password", "", "SSH password (default $"+PasswordEnv+", else prompt)")
	cmd.Flags().StringVar(&f.sshConfig, "ssh-config", sshutil.DefaultSSHConfigPath(), "ssh config file used to resolve --host aliases")
}

// selection is the device a command will talk to.
type selection struct {
	Name     string
	DeviceID string // empty for --host targets
	Target   sshutil.Target
}

// passwordPrompt asks the operator for a password.
type passwordPrompt func(label string) (string, error)

// selectDevice resolves a registry reference (ID or name) or the --host
// flags into a selection. Exactly one of the two must be given.
func selectDevice(ctx context.Context, f targetFlags, ref string, store func() (device.Store, error), prompt passwordPrompt) (selection, error) {
	switch {
	case ref != "" && f.host != "":
		return selection{}, errors.New(errors.ErrConfig,
			"Both a device and --host were given",
			"Pass a registered device name or ID, or --host, not both")
	case ref == "" && f.host == "":
		return selection{}, errors.New(errors.ErrConfig,
			"No device selected",
			"Pass a registered device name or ID, or --host user@address")
	case f.host != "":
		return adHocTarget(f, prompt)
	}

	s, err := store()
	if err != nil {
		return selection{}, err
	}
	defer s.Close()

	d, err := findDevice(ctx, s, ref)
	if err != nil {
		return selection{}, err
	}
	return selection{Name: d.Name, DeviceID: d.ID, Target: d.Spec().Target()}, nil
}

func adHocTarget(f targetFlags, prompt passwordPrompt) (selection, error) {
	target := sshutil.ResolveTarget(f.host, f.sshConfig)
	if f.port != 0 {
		target.Port = f.port
	}
	if f.user != "" {
		target.User = f.user
	}
	if target.User == "" {
		return selection{}, errors.New(errors.ErrConfig,
			"No username for "+f.host,
			"Use user@host, --user, or set User in your ssh config")
	}

	password, err := resolvePassword(f.password, target.User+"@"+target.Host, prompt)
	if err != nil {
		return selection{}, err
	}
	target.Password = password

	return selection{Name: f.host, Target: target}, nil
}

// findDevice looks a device up by ID, then by exact name.
func findDevice(ctx context.Context, s device.Store, ref string) (*device.Device, error) {
	d, err := s.Get(ctx, ref)
	if err == nil {
		return d, nil
	}
	if !stderrors.Is(err, device.ErrNotFound) {
		return nil, err
	}

	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var matches []device.Device
	for _, d := range all {
		if d.Name == ref {
			matches = append(matches, d)
		}
	}
	switch len(matches) {
	case 0:
		return nil, errors.WrapWithCode(device.ErrNotFound, errors.ErrDevice,
			fmt.Sprintf("No device named or with ID %q", ref),
			"List registered devices with 'sedm device list'")
	case 1:
		return &matches[0], nil
	default:
		return nil, errors.New(errors.ErrDevice,
			fmt.Sprintf("%d devices are named %q", len(matches), ref),
			"Use the device ID instead")
	}
}

// resolvePassword returns the flag value, then $SEDM_PASSWORD, then asks.
func resolvePassword(flag, label string, prompt passwordPrompt) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv(PasswordEnv); env != "" {
		return env, nil
	}
	if prompt == nil {
		return "", errors.New(errors.ErrConfig,
			"No password for "+label,
			"Use --password or set "+PasswordEnv)
	}
	return prompt(label)
}

// terminalPrompt asks on the terminal, or returns nil when stdin is not a
// terminal so callers fail fast instead of hanging.
func terminalPrompt() passwordPrompt {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	return func(label string) (string, error) {
		var password string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Password for " + label).
					EchoMode(huh.EchoModePassword).
					Value(&password),
			),
		)
		if err := form.Run(); err != nil {
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Use --password or set "+PasswordEnv)
		}
		return password, nil
	}
}

// openStore opens the registry named in the configuration.
func openStore(ctx context.Context) func() (device.Store, error) {
	return func() (device.Store, error) {
		s, err := device.Open(ctx, loadedConfig().Registry.Path, logger.Default())
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// splitDashArgs separates "sedm exec edge-01 -- uname -a" into the
// device reference and the remote command.
func splitDashArgs(cmd *cobra.Command, args []string) (ref string, command []string) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		// No "--": the first argument is the device unless --host is set.
		if len(args) > 0 && !cmd.Flags().Changed("host") {
			return args[0], args[1:]
		}
		return "", args
	}
	if dash > 0 {
		ref = args[0]
	}
	return ref, args[dash:]
}
