package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/gopherd/pkg/adapter/gopher"
	"github.com/spf13/viper"
)

// Config represents the complete gopherd configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (GOPHERD_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// Cache backends follow the store pattern: the Cache section carries one
// options map per backend and only the one matching Type is decoded.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server"`

	// Cache selects the backend of the gophermap and classification caches
	Cache CacheConfig `mapstructure:"cache"`

	// Adapters contains protocol adapter configurations
	Adapters AdaptersConfig `mapstructure:"adapters"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for adapters to stop
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is only checked when Enabled is true.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
}

// CacheConfig specifies the cache backend.
//
// Every backend keeps its data in memory; the choice only affects how
// entries are stored and encoded.
type CacheConfig struct {
	// Type specifies which store implementation to use
	// Valid values: memory, badger, leveldb
	Type string `mapstructure:"type" validate:"required,oneof=memory badger leveldb"`

	// Badger contains BadgerDB-specific options
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`

	// LevelDB contains LevelDB-specific options
	// Only used when Type = "leveldb"
	LevelDB map[string]any `mapstructure:"leveldb"`
}

// AdaptersConfig contains all protocol adapter configurations.
type AdaptersConfig struct {
	// Gopher uses the adapter's own config type directly.
	Gopher gopher.GopherConfig `mapstructure:"gopher"`
}

// Load loads configuration from file, environment, and defaults.
//
// An empty configPath searches the default location. A missing file is not
// an error; defaults and environment variables are used instead.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: GOPHERD_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("GOPHERD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows about.
	bindEnvKeys(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// $XDG_CONFIG_HOME/gopherd/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// bindEnvKeys registers the scalar keys that may come from the environment
// only.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"logging.level",
		"logging.format",
		"logging.output",
		"server.shutdown_timeout",
		"server.metrics.enabled",
		"server.metrics.port",
		"cache.type",
		"adapters.gopher.enabled",
		"adapters.gopher.root",
		"adapters.gopher.host",
		"adapters.gopher.port",
		"adapters.gopher.advertised_port",
		"adapters.gopher.max_connections",
		"adapters.gopher.read_timeout",
		"adapters.gopher.write_timeout",
		"adapters.gopher.shutdown_timeout",
		"adapters.gopher.metrics_log_interval",
		"adapters.gopher.rate_limit.requests_per_second",
		"adapters.gopher.rate_limit.burst",
	} {
		_ = v.BindEnv(key)
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		// An explicit path that does not exist is treated the same way.
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "gopherd")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "gopherd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
