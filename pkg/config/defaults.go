package config

import (
	"strings"
	"time"

	"github.com/marmos91/gopherd/pkg/adapter/gopher"
)

const (
	// DefaultGopherPort is the IANA-assigned Gopher port.
	DefaultGopherPort = 70

	// DefaultMetricsPort is where /metrics is served when enabled.
	DefaultMetricsPort = 9070

	// DefaultRoot is the served directory when none is configured.
	DefaultRoot = "/var/gopher"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced with defaults; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyCacheDefaults(&cfg.Cache)
	applyAdaptersDefaults(&cfg.Adapters)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = DefaultMetricsPort
	}
}

// applyCacheDefaults sets cache defaults.
func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.LevelDB == nil {
		cfg.LevelDB = make(map[string]any)
	}

	// Defaults for every backend, so generated config files show them.
	if _, ok := cfg.Badger["block_cache_size_mb"]; !ok {
		cfg.Badger["block_cache_size_mb"] = int64(32)
	}
	if _, ok := cfg.Badger["index_cache_size_mb"]; !ok {
		cfg.Badger["index_cache_size_mb"] = int64(16)
	}
	if _, ok := cfg.LevelDB["write_buffer_mb"]; !ok {
		cfg.LevelDB["write_buffer_mb"] = 4
	}
	if _, ok := cfg.LevelDB["block_cache_mb"]; !ok {
		cfg.LevelDB["block_cache_mb"] = 8
	}
}

// applyAdaptersDefaults sets adapter defaults.
func applyAdaptersDefaults(cfg *AdaptersConfig) {
	// A freshly loaded config with no gopher section gets the adapter
	// enabled. An explicit port marks the section as configured, so
	// enabled: false is then respected.
	if !cfg.Gopher.Enabled && cfg.Gopher.Port == 0 {
		cfg.Gopher.Enabled = true
	}

	applyGopherDefaults(&cfg.Gopher)
}

// applyGopherDefaults sets Gopher adapter defaults.
//
// Read and write timeouts stay at 0 (no timeout) unless configured.
func applyGopherDefaults(cfg *gopher.GopherConfig) {
	if cfg.Root == "" {
		cfg.Root = DefaultRoot
	}

	if len(cfg.Hosts) == 0 {
		cfg.Hosts = []string{"localhost"}
	}

	if cfg.Port == 0 {
		cfg.Port = DefaultGopherPort
	}

	// MaxConnections defaults to 0 (unlimited)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	if cfg.MetricsLogInterval == 0 {
		cfg.MetricsLogInterval = 5 * time.Minute
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Adapters: AdaptersConfig{
			Gopher: gopher.GopherConfig{
				Enabled: true,
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
