// Package config provides configuration loading for the d1bridge CLI and gateway.
//
// Values are layered: defaults, then an optional YAML file, then
// D1BRIDGE_* environment variables (e.g. D1BRIDGE_LOCAL_DSN).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "D1BRIDGE"

// Config holds the application configuration.
type Config struct {
	// Endpoint is the gateway URL used by the CLI.
	Endpoint string `mapstructure:"endpoint"`

	// Profile overrides the active connection profile of the CLI.
	Profile string `mapstructure:"profile"`

	// Server configuration (for gateway)
	Server ServerConfig `mapstructure:"server"`

	// Local database handle (for gateway)
	Local LocalConfig `mapstructure:"local"`

	// Remote D1 API (for gateway)
	Remote RemoteConfig `mapstructure:"remote"`

	// State store for profiles and audit logs
	State StateConfig `mapstructure:"state"`

	// Keyring holding profile API tokens
	Keyring KeyringConfig `mapstructure:"keyring"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	Prefix       string        `mapstructure:"prefix"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	Compress     bool          `mapstructure:"compress"`
}

// LocalConfig describes the local database binding. An empty DSN means no
// local database is bound.
type LocalConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Name   string `mapstructure:"name"`
}

// Bound reports whether a local database is configured.
func (c LocalConfig) Bound() bool {
	return c.DSN != ""
}

// RemoteConfig holds D1 API configuration.
type RemoteConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Endpoint   string        `mapstructure:"endpoint"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RawResults bool          `mapstructure:"rawResults"`
}

// StateConfig holds state store configuration.
type StateConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// KeyringConfig holds keyring configuration.
type KeyringConfig struct {
	Backend  string `mapstructure:"backend"`
	Dir      string `mapstructure:"dir"`
	Password string `mapstructure:"password"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Format is "json" or "none".
	Format string `mapstructure:"format"`

	// Audit persists operation logs to the state store.
	Audit bool `mapstructure:"audit"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Endpoint: "http://localhost:8787",
		Server: ServerConfig{
			Addr:         ":8787",
			Prefix:       "/api",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0,
			Compress:     true,
		},
		Local: LocalConfig{
			Driver: "sqlite",
			Name:   "local-dev-db",
		},
		Remote: RemoteConfig{
			Enabled:  true,
			Endpoint: "https://api.cloudflare.com/client/v4",
		},
		State: StateConfig{
			Driver: "sqlite",
			DSN:    "~/.d1bridge/state.db",
		},
		Keyring: KeyringConfig{
			Backend: "file",
			Dir:     "~/.d1bridge/keyring",
		},
		Logging: LoggingConfig{
			Format: "json",
		},
	}
}

// Load loads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".d1bridge"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteDefault writes the default configuration as YAML to path. An
// existing file is never overwritten.
func WriteDefault(path string) error {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Local.Driver {
	case "sqlite", "duckdb", "postgres", "mysql":
	default:
		return fmt.Errorf("invalid local.driver %q: must be sqlite, duckdb, postgres or mysql", c.Local.Driver)
	}
	switch c.State.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid state.driver %q: must be sqlite or postgres", c.State.Driver)
	}
	switch c.Logging.Format {
	case "json", "none":
	default:
		return fmt.Errorf("invalid logging.format %q: must be json or none", c.Logging.Format)
	}
	if c.Server.Prefix != "" && !strings.HasPrefix(c.Server.Prefix, "/") {
		return fmt.Errorf("invalid server.prefix %q: must start with /", c.Server.Prefix)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("endpoint", d.Endpoint)
	v.SetDefault("profile", "")
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.prefix", d.Server.Prefix)
	v.SetDefault("server.readTimeout", d.Server.ReadTimeout.String())
	v.SetDefault("server.writeTimeout", d.Server.WriteTimeout.String())
	v.SetDefault("server.compress", d.Server.Compress)
	v.SetDefault("local.driver", d.Local.Driver)
	v.SetDefault("local.dsn", "")
	v.SetDefault("local.name", d.Local.Name)
	v.SetDefault("remote.enabled", d.Remote.Enabled)
	v.SetDefault("remote.endpoint", d.Remote.Endpoint)
	v.SetDefault("remote.timeout", "0s")
	v.SetDefault("remote.rawResults", d.Remote.RawResults)
	v.SetDefault("state.driver", d.State.Driver)
	v.SetDefault("state.dsn", d.State.DSN)
	v.SetDefault("keyring.backend", d.Keyring.Backend)
	v.SetDefault("keyring.dir", d.Keyring.Dir)
	v.SetDefault("keyring.password", "")
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.audit", d.Logging.Audit)
}
