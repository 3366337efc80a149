package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/NewSmoke38/SED-Manager/internal/config"
	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"github.com/NewSmoke38/SED-Manager/internal/logger"
	"github.com/NewSmoke38/SED-Manager/internal/ui"
	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile      string
	logLevelFlag string
	noColor      bool
	outputFlag   string
)

// annotationOwnConfigErrors marks commands that report a broken config
// themselves instead of failing in the root pre-run.
const annotationOwnConfigErrors = "sedm/own-config-errors"

// cfg is the configuration loaded by the root PersistentPreRunE.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "sedm",
	Short: "Agentless SSH monitoring and terminal access for edge devices",
	Long: `sedm monitors Linux, macOS and Windows machines over plain SSH.

Nothing is installed on the devices: telemetry and logs come from running
stock diagnostic commands and parsing their output, and the terminal
bridge relays an interactive shell over a websocket.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || os.Getenv("NO_COLOR") != "" {
			ui.DisableColors()
		}
		if !validOutput(outputFlag) {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Unknown output format %q", outputFlag),
				"Use one of: text, json, yaml")
		}

		loaded, _, err := config.LoadOrDefault(cfgFile)
		if err != nil {
			if cmd.Annotations[annotationOwnConfigErrors] == "" {
				return err
			}
			loaded = config.DefaultConfig()
		}
		if logLevelFlag != "" {
			if !logger.ValidLevel(logLevelFlag) {
				return errors.New(errors.ErrConfig,
					fmt.Sprintf("Unknown log level %q", logLevelFlag),
					"Use one of: debug, info, warn, error")
			}
			loaded.Log.Level = logLevelFlag
		}
		cfg = loaded

		logger.SetDefault(logger.New("sedm",
			logger.NewHandler(os.Stderr, cfg.Log.Level, cfg.Log.Format)))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./sedm.yaml or ~/.config/sedm/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", outputText, "output format: text, json, yaml")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if outputFlag == outputJSON {
			_ = WriteJSONFromError(os.Stdout, err)
		} else {
			fmt.Fprintln(os.Stderr, renderError(err))
		}
		stop()
		os.Exit(1)
	}
}

// renderError formats structured errors in their multi-line form and
// everything else as a one-line failure.
func renderError(err error) string {
	var sErr *errors.Error
	if stderrors.As(err, &sErr) {
		return sErr.Error()
	}
	return ui.SymbolFail + " " + err.Error()
}

// loadedConfig returns the configuration, falling back to defaults when a
// command runs without the root pre-run (tests).
func loadedConfig() *config.Config {
	if cfg == nil {
		return config.DefaultConfig()
	}
	return cfg
}

// sshOptions builds dial options from the loaded configuration.
func sshOptions(c *config.Config) sshutil.Options {
	return sshutil.Options{
		ConnectTimeout: c.SSH.ConnectTimeout,
		CommandTimeout: c.SSH.CommandTimeout,
	}
}
