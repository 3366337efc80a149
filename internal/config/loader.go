package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = "sedm.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/sedm"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. SEDM_SERVER_ADDR.
	EnvPrefix = "SEDM"
)

// Load reads config from the specified path. An empty path loads defaults
// plus environment overrides only.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found",
					"Run 'sedm config init' to create one, or specify one with --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+path)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. sedm.yaml in current directory
// 3. ~/.config/sedm/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, ConfigFileName)
		if _, err := os.Stat(local); err == nil {
			return local, nil
		}
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// LoadOrDefault finds and loads the config, falling back to defaults (plus
// environment overrides) when no file exists.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// WriteDefault writes the default configuration as YAML to path.
// Refuses to overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.New(errors.ErrConfig,
				"Config file already exists: "+path,
				"Use --force to overwrite it")
		}
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Failed to render default config", "")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot create config directory "+dir, "Check directory permissions")
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write config file "+path, "Check directory permissions")
	}
	return nil
}

// newViper returns a viper instance with defaults registered for every key,
// so that AutomaticEnv can resolve SEDM_* overrides during Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())
	return v
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("ssh.connect_timeout", d.SSH.ConnectTimeout)
	v.SetDefault("ssh.command_timeout", d.SSH.CommandTimeout)

	v.SetDefault("bridge.poll_interval", d.Bridge.PollInterval)
	v.SetDefault("bridge.term", d.Bridge.Term)
	v.SetDefault("bridge.rows", d.Bridge.Rows)
	v.SetDefault("bridge.cols", d.Bridge.Cols)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.api_prefix", d.Server.APIPrefix)
	v.SetDefault("server.ws_path", d.Server.WSPath)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.rate_burst", d.Server.RateBurst)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)

	v.SetDefault("registry.path", d.Registry.Path)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
