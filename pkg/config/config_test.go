package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeConfig writes content to a fresh temp directory and returns its path.
func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configPath
}

func TestLoad_DefaultConfig(t *testing.T) {
	root := t.TempDir()
	configPath := writeConfig(t, "config.yaml", fmt.Sprintf(`
logging:
  level: "info"

adapters:
  gopher:
    root: %q
`, root))

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Cache.Type != "memory" {
		t.Errorf("Expected default cache type 'memory', got %q", cfg.Cache.Type)
	}
	if !cfg.Adapters.Gopher.Enabled {
		t.Error("Expected gopher adapter enabled by default")
	}
	if cfg.Adapters.Gopher.Port != 70 {
		t.Errorf("Expected default gopher port 70, got %d", cfg.Adapters.Gopher.Port)
	}
	if cfg.Adapters.Gopher.Root != root {
		t.Errorf("Expected root %q, got %q", root, cfg.Adapters.Gopher.Root)
	}
	if len(cfg.Adapters.Gopher.Hosts) != 1 || cfg.Adapters.Gopher.Hosts[0] != "localhost" {
		t.Errorf("Expected default hosts [localhost], got %v", cfg.Adapters.Gopher.Hosts)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	root := t.TempDir()
	configPath := writeConfig(t, "config.yaml", fmt.Sprintf(`
logging:
  level: DEBUG
  format: json
  output: stderr

server:
  shutdown_timeout: 10s
  metrics:
    enabled: true
    port: 9100

cache:
  type: leveldb
  leveldb:
    write_buffer_mb: 2

adapters:
  gopher:
    enabled: true
    root: %q
    hosts: [gopher.example.org, 10.0.0.1]
    host: 0.0.0.0
    port: 7070
    advertised_port: 70
    max_connections: 64
    read_timeout: 5s
    write_timeout: 1m
    shutdown_timeout: 15s
    rate_limit:
      requests_per_second: 100
      burst: 20
`, root))

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	g := cfg.Adapters.Gopher
	if len(g.Hosts) != 2 || g.Hosts[0] != "gopher.example.org" || g.Hosts[1] != "10.0.0.1" {
		t.Errorf("Unexpected hosts: %v", g.Hosts)
	}
	if g.Port != 7070 || g.AdvertisedPort != 70 {
		t.Errorf("Expected port 7070 advertised as 70, got %d/%d", g.Port, g.AdvertisedPort)
	}
	if g.ReadTimeout != 5*time.Second || g.WriteTimeout != time.Minute {
		t.Errorf("Unexpected timeouts: read=%v write=%v", g.ReadTimeout, g.WriteTimeout)
	}
	if g.ShutdownTimeout != 15*time.Second {
		t.Errorf("Expected gopher shutdown timeout 15s, got %v", g.ShutdownTimeout)
	}
	if g.RateLimit.RequestsPerSecond != 100 || g.RateLimit.Burst != 20 {
		t.Errorf("Unexpected rate limit: %+v", g.RateLimit)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected server shutdown timeout 10s, got %v", cfg.Server.ShutdownTimeout)
	}
	if !cfg.Server.Metrics.Enabled || cfg.Server.Metrics.Port != 9100 {
		t.Errorf("Unexpected metrics config: %+v", cfg.Server.Metrics)
	}
	if cfg.Cache.Type != "leveldb" {
		t.Errorf("Expected cache type 'leveldb', got %q", cfg.Cache.Type)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	t.Setenv("GOPHERD_ADAPTERS_GOPHER_ROOT", t.TempDir())

	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Cache.Type != "memory" {
		t.Errorf("Expected default cache type 'memory', got %q", cfg.Cache.Type)
	}
}

func TestLoad_MissingRoot(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", fmt.Sprintf(`
adapters:
  gopher:
    root: %q
`, filepath.Join(t.TempDir(), "does-not-exist")))

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for a root that does not exist")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid.yaml", `
logging:
  level: INFO
  invalid yaml here [[[
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_TOML(t *testing.T) {
	root := t.TempDir()
	configPath := writeConfig(t, "config.toml", fmt.Sprintf(`
[logging]
level = "WARN"
format = "json"

[adapters.gopher]
enabled = true
root = %q
port = 7070
`, root))

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Adapters.Gopher.Port != 7070 {
		t.Errorf("Expected port 7070, got %d", cfg.Adapters.Gopher.Port)
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.Metrics.Enabled {
		t.Error("Expected metrics disabled by default")
	}
	if cfg.Server.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Expected default metrics port %d, got %d", DefaultMetricsPort, cfg.Server.Metrics.Port)
	}
	if cfg.Cache.Type != "memory" {
		t.Errorf("Expected default cache type 'memory', got %q", cfg.Cache.Type)
	}
	if !cfg.Adapters.Gopher.Enabled {
		t.Error("Expected gopher adapter enabled by default")
	}
	if cfg.Adapters.Gopher.Root != DefaultRoot {
		t.Errorf("Expected default root %q, got %q", DefaultRoot, cfg.Adapters.Gopher.Root)
	}
	if cfg.Adapters.Gopher.ReadTimeout != 0 || cfg.Adapters.Gopher.WriteTimeout != 0 {
		t.Error("Expected no read/write timeouts by default")
	}
}

func TestConfigExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if ConfigExists() {
		t.Fatal("Expected no config in a fresh config dir")
	}

	if _, err := InitConfig(false); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	if !ConfigExists() {
		t.Error("Expected config to exist after InitConfig")
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("Expected absolute path, got %q", path)
	}
	if path != filepath.Join(xdg, "gopherd", "config.yaml") {
		t.Errorf("Unexpected default config path %q", path)
	}
}

func TestGetConfigDir(t *testing.T) {
	dir := GetConfigDir()

	if filepath.Base(dir) != "gopherd" {
		t.Errorf("Expected directory name 'gopherd', got %q", filepath.Base(dir))
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("GOPHERD_LOGGING_LEVEL", "ERROR")
	t.Setenv("GOPHERD_ADAPTERS_GOPHER_PORT", "7071")
	t.Setenv("GOPHERD_ADAPTERS_GOPHER_READ_TIMEOUT", "3s")

	root := t.TempDir()
	configPath := writeConfig(t, "config.yaml", fmt.Sprintf(`
logging:
  level: "INFO"

adapters:
  gopher:
    enabled: true
    root: %q
    port: 70
`, root))

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Adapters.Gopher.Port != 7071 {
		t.Errorf("Expected port 7071 from env var, got %d", cfg.Adapters.Gopher.Port)
	}
	if cfg.Adapters.Gopher.ReadTimeout != 3*time.Second {
		t.Errorf("Expected read timeout 3s from env var, got %v", cfg.Adapters.Gopher.ReadTimeout)
	}
}
