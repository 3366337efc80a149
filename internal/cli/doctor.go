package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/NewSmoke38/SED-Manager/internal/device"
	"github.com/NewSmoke38/SED-Manager/internal/doctor"
	"github.com/NewSmoke38/SED-Manager/internal/logger"
	"github.com/NewSmoke38/SED-Manager/internal/ui"
	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	doctorSSHConfig string
	doctorOffline   bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration, registry and device connectivity",
	Long: `Run diagnostic checks: the config file, the ssh config used for
--host aliases, the device registry, and an SSH round trip to every
registered device.

Examples:
  sedm doctor
  sedm doctor --offline
  sedm doctor -o json`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationOwnConfigErrors: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c := loadedConfig()
		open := func(ctx context.Context) (device.Store, error) {
			return openStore(ctx)()
		}

		checks := []doctor.Check{
			&doctor.ConfigCheck{Explicit: cfgFile},
			&doctor.SSHConfigCheck{Path: doctorSSHConfig},
			&doctor.RegistryCheck{Path: c.Registry.Path, Open: open},
		}
		if !doctorOffline {
			deviceChecks, err := deviceDoctorChecks(ctx, open, sshutil.NewDialer(sshOptions(c)))
			if err != nil {
				logger.Default().Debug("skip device checks: %v", err)
			}
			checks = append(checks, deviceChecks...)
		}

		return doctorCommand(ctx, os.Stdout, checks, outputFlag)
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().StringVar(&doctorSSHConfig, "ssh-config", sshutil.DefaultSSHConfigPath(), "ssh config file to check")
	doctorCmd.Flags().BoolVar(&doctorOffline, "offline", false, "skip connecting to registered devices")
}

// deviceDoctorChecks builds one reachability check per registered device.
// A registry that won't open yields no checks; RegistryCheck reports why.
func deviceDoctorChecks(ctx context.Context, open func(context.Context) (device.Store, error), dialer sshutil.Dialer) ([]doctor.Check, error) {
	s, err := open(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	devices, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	checks := make([]doctor.Check, len(devices))
	for i, d := range devices {
		checks[i] = &doctor.DeviceCheck{DeviceName: d.Name, Target: d.Spec().Target(), Dialer: dialer}
	}
	return checks, nil
}

// DoctorOutput represents the machine-readable output of doctor.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	AllClear bool `json:"all_clear"`
}

func doctorCommand(ctx context.Context, w io.Writer, checks []doctor.Check, format string) error {
	results := doctor.RunAll(ctx, checks)
	if format != outputText {
		return writeData(w, format, doctorOutput(results))
	}
	writeDoctorText(w, results)
	return nil
}

func doctorOutput(results []doctor.CheckResult) DoctorOutput {
	out := DoctorOutput{Categories: []CategoryOutput{}}
	for _, category := range doctor.Categories {
		var rs []doctor.CheckResult
		for _, r := range results {
			if r.Category == category {
				rs = append(rs, r)
			}
		}
		if len(rs) > 0 {
			out.Categories = append(out.Categories, CategoryOutput{Name: category, Results: rs})
		}
	}

	counts := doctor.CountByStatus(results)
	out.Summary = SummaryOutput{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		AllClear: !doctor.HasIssues(results),
	}
	return out
}

func writeDoctorText(w io.Writer, results []doctor.CheckResult) {
	successStyle := lipgloss.NewStyle().Foreground(ui.ColorSuccess)
	errorStyle := lipgloss.NewStyle().Foreground(ui.ColorError)
	warnStyle := lipgloss.NewStyle().Foreground(ui.ColorWarning)
	mutedStyle := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	headerStyle := lipgloss.NewStyle().Bold(true)

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("sedm Diagnostic Report"))
	fmt.Fprintln(w)

	for _, category := range doctorOutput(results).Categories {
		fmt.Fprintln(w, headerStyle.Render(category.Name))
		for _, r := range category.Results {
			symbol, style := ui.SymbolComplete, successStyle
			switch r.Status {
			case doctor.StatusWarn:
				style = warnStyle
			case doctor.StatusFail:
				symbol, style = ui.SymbolFail, errorStyle
			}
			fmt.Fprintf(w, "  %s %s\n", style.Render(symbol), r.Message)
			if r.Suggestion != "" && r.Status != doctor.StatusPass {
				for _, line := range strings.Split(r.Suggestion, "\n") {
					fmt.Fprintf(w, "    %s\n", mutedStyle.Render(line))
				}
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("━", 60))
	fmt.Fprintln(w)

	symbol, style := ui.SymbolSuccess, successStyle
	if doctor.HasIssues(results) {
		symbol, style = ui.SymbolFail, errorStyle
	}
	fmt.Fprintf(w, "%s %s\n\n", style.Render(symbol), doctor.Summary(results))
}
