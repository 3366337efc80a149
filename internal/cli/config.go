package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/NewSmoke38/SED-Manager/internal/config"
	"github.com/NewSmoke38/SED-Manager/internal/ui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write or print the configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with the defaults",
	Long: `Write the default configuration as YAML, ready for editing.
The path defaults to ./sedm.yaml.

Examples:
  sedm config init
  sedm config init ~/.config/sedm/config.yaml --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.ConfigFileName
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.WriteDefault(path, configInitForce); err != nil {
			return err
		}
		fmt.Printf("%s Wrote %s\n", ui.SymbolSuccess, path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after applying the config file and SEDM_*
environment overrides.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowCommand(os.Stdout, loadedConfig(), outputFlag)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
}

func configShowCommand(w io.Writer, c *config.Config, format string) error {
	if format == outputJSON {
		return writeData(w, format, c)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
