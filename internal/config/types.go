package config

import "time"

// Config represents the complete sedm.yaml configuration file.
type Config struct {
	SSH      SSHConfig      `yaml:"ssh" mapstructure:"ssh"`
	Bridge   BridgeConfig   `yaml:"bridge" mapstructure:"bridge"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// SSHConfig controls how remote devices are reached.
type SSHConfig struct {
	// ConnectTimeout bounds TCP dial plus SSH handshake.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`

	// CommandTimeout bounds how long a diagnostic command may take to
	// produce its output before the read is abandoned.
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`
}

// BridgeConfig controls interactive terminal sessions.
type BridgeConfig struct {
	// PollInterval is how often buffered shell output is flushed to the client.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`

	// Term is the TERM value requested for the remote pseudo-terminal.
	Term string `yaml:"term" mapstructure:"term"`

	// Rows and Cols size the pseudo-terminal until the client sends a resize.
	Rows int `yaml:"rows" mapstructure:"rows"`
	Cols int `yaml:"cols" mapstructure:"cols"`
}

// ServerConfig controls the HTTP API and terminal websocket endpoint.
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	APIPrefix       string        `yaml:"api_prefix" mapstructure:"api_prefix"`
	WSPath          string        `yaml:"ws_path" mapstructure:"ws_path"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// RateLimit is the sustained API request rate (requests/second);
	// RateBurst the bucket size. Websocket upgrades are not rate limited.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst"`

	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// RegistryConfig points at the device registry database.
type RegistryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig controls process logging.
type LogConfig struct {
	// Level: "debug", "info", "warn", or "error".
	Level string `yaml:"level" mapstructure:"level"`

	// Format: "text" or "json".
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SSH: SSHConfig{
			ConnectTimeout: 10 * time.Second,
			CommandTimeout: 20 * time.Second,
		},
		Bridge: BridgeConfig{
			PollInterval: 20 * time.Millisecond,
			Term:         "xterm-256color",
			Rows:         24,
			Cols:         80,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			APIPrefix:       "/api",
			WSPath:          "/ws/terminal",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       50,
			RateBurst:       100,
			AllowedOrigins:  []string{"*"},
		},
		Registry: RegistryConfig{
			Path: "sedm.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
