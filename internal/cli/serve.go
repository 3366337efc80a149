package cli

import (
	"context"
	"os"

	"github.com/NewSmoke38/SED-Manager/internal/config"
	"github.com/NewSmoke38/SED-Manager/internal/device"
	"github.com/NewSmoke38/SED-Manager/internal/logger"
	"github.com/NewSmoke38/SED-Manager/internal/server"
	"github.com/NewSmoke38/SED-Manager/pkg/sshutil"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and terminal websocket",
	Long: `Start the API server: device registry CRUD, metrics and logs per
device, the interactive terminal websocket, and Prometheus metrics.

The server stops gracefully on SIGINT or SIGTERM.

Examples:
  sedm serve
  sedm serve --addr 127.0.0.1:9000
  SEDM_SERVER_RATE_LIMIT=5 sedm serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := *loadedConfig()
		if serveAddr != "" {
			c.Server.Addr = serveAddr
		}
		return serveCommand(cmd.Context(), &c)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

// serveCommand opens the registry, runs the server until ctx is done, and
// closes the registry on the way out.
func serveCommand(ctx context.Context, c *config.Config) error {
	log := logger.New("server", logger.NewHandler(os.Stderr, c.Log.Level, c.Log.Format))

	store, err := device.Open(ctx, c.Registry.Path, logger.New("registry", logger.NewHandler(os.Stderr, c.Log.Level, c.Log.Format)))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("close registry: %v", err)
		}
	}()

	srv := server.New(c, store, sshutil.NewDialer(sshOptions(c)), log)
	log.Info("listening on %s (registry %s)", c.Server.Addr, c.Registry.Path)
	return srv.Run(ctx)
}
