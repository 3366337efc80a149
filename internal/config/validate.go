package config

import (
	"fmt"
	"strings"

	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"github.com/NewSmoke38/SED-Manager/internal/logger"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig, "Config is empty", "Run 'sedm config init' to generate a starting point")
	}

	if err := validateSSH(&cfg.SSH); err != nil {
		return err
	}
	if err := validateBridge(&cfg.Bridge); err != nil {
		return err
	}
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}

	if strings.TrimSpace(cfg.Registry.Path) == "" {
		return errors.New(errors.ErrConfig,
			"'registry.path' is empty",
			"Point it at a writable file, e.g. registry.path: sedm.db")
	}

	if !logger.ValidLevel(cfg.Log.Level) {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown log level '%s'", cfg.Log.Level),
			"Use one of: debug, info, warn, error")
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown log format '%s'", cfg.Log.Format),
			"Use 'text' or 'json'")
	}

	return nil
}

func validateSSH(c *SSHConfig) error {
	if c.ConnectTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("'ssh.connect_timeout' must be positive, got %s", c.ConnectTimeout),
			"Try something like connect_timeout: 10s")
	}
	if c.CommandTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("'ssh.command_timeout' must be positive, got %s", c.CommandTimeout),
			"Try something like command_timeout: 20s")
	}
	return nil
}

func validateBridge(c *BridgeConfig) error {
	if c.PollInterval <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("'bridge.poll_interval' must be positive, got %s", c.PollInterval),
			"Try something like poll_interval: 20ms")
	}
	if c.Rows <= 0 || c.Cols <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Terminal size %dx%d is invalid", c.Cols, c.Rows),
			"bridge.rows and bridge.cols must both be positive")
	}
	if strings.TrimSpace(c.Term) == "" {
		return errors.New(errors.ErrConfig,
			"'bridge.term' is empty",
			"Use a terminal type like xterm-256color")
	}
	return nil
}

func validateServer(c *ServerConfig) error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New(errors.ErrConfig,
			"'server.addr' is empty",
			"Set a listen address like :8080")
	}
	if !strings.HasPrefix(c.WSPath, "/") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("'server.ws_path' must start with '/', got '%s'", c.WSPath),
			"Try ws_path: /ws/terminal")
	}
	if c.APIPrefix != "" && !strings.HasPrefix(c.APIPrefix, "/") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("'server.api_prefix' must start with '/', got '%s'", c.APIPrefix),
			"Try api_prefix: /api")
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			"Server timeouts must be positive",
			"Check read_timeout, write_timeout and shutdown_timeout under 'server'")
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Rate limit %.1f/s with burst %d is invalid", c.RateLimit, c.RateBurst),
			"Both server.rate_limit and server.rate_burst must be positive")
	}
	return nil
}
