package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# gopherd Configuration File
#
# Every key can be overridden with an environment variable named after its
# path, e.g. GOPHERD_LOGGING_LEVEL=DEBUG or GOPHERD_ADAPTERS_GOPHER_PORT=7070.
#
# Only the options of the selected cache.type are used.

`

// InitConfig writes the default configuration to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the default configuration to path, creating parent
// directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := renderConfig(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// renderConfig serializes cfg as YAML using the same keys Load reads.
func renderConfig(cfg *Config) ([]byte, error) {
	g := cfg.Adapters.Gopher

	doc := map[string]any{
		"logging": map[string]any{
			"level":  cfg.Logging.Level,
			"format": cfg.Logging.Format,
			"output": cfg.Logging.Output,
		},
		"server": map[string]any{
			"shutdown_timeout": cfg.Server.ShutdownTimeout.String(),
			"metrics": map[string]any{
				"enabled": cfg.Server.Metrics.Enabled,
				"port":    cfg.Server.Metrics.Port,
			},
		},
		"cache": map[string]any{
			"type":    cfg.Cache.Type,
			"badger":  cfg.Cache.Badger,
			"leveldb": cfg.Cache.LevelDB,
		},
		"adapters": map[string]any{
			"gopher": map[string]any{
				"enabled":              g.Enabled,
				"root":                 g.Root,
				"hosts":                g.Hosts,
				"host":                 g.Host,
				"port":                 g.Port,
				"advertised_port":      g.AdvertisedPort,
				"max_connections":      g.MaxConnections,
				"read_timeout":         g.ReadTimeout.String(),
				"write_timeout":        g.WriteTimeout.String(),
				"shutdown_timeout":     g.ShutdownTimeout.String(),
				"metrics_log_interval": g.MetricsLogInterval.String(),
				"rate_limit": map[string]any{
					"requests_per_second": g.RateLimit.RequestsPerSecond,
					"burst":               g.RateLimit.Burst,
				},
			},
		},
	}

	body, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return append([]byte(configHeader), body...), nil
}
