package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// validConfig returns the default config pointed at an existing root.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := GetDefaultConfig()
	cfg.Adapters.Gopher.Root = t.TempDir()
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig(t)

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := validConfig(t)
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := validConfig(t)
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidCacheType(t *testing.T) {
	cfg := validConfig(t)
	cfg.Cache.Type = "redis"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for unknown cache type")
	}
}

func TestValidate_RootMustExist(t *testing.T) {
	cfg := validConfig(t)
	cfg.Adapters.Gopher.Root = filepath.Join(t.TempDir(), "missing")

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for missing root")
	}
	if !strings.Contains(err.Error(), "Root") {
		t.Errorf("Expected error about Root, got: %v", err)
	}
}

func TestValidate_RootMustBeDirectory(t *testing.T) {
	cfg := validConfig(t)
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	cfg.Adapters.Gopher.Root = file

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for a root that is a file")
	}
}

func TestValidate_NoHosts(t *testing.T) {
	cfg := validConfig(t)
	cfg.Adapters.Gopher.Hosts = nil

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error with no hosts")
	}
}

func TestValidate_EmptyHost(t *testing.T) {
	cfg := validConfig(t)
	cfg.Adapters.Gopher.Hosts = []string{"localhost", ""}

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for an empty host name")
	}
}

func TestValidate_DuplicateHosts(t *testing.T) {
	cfg := validConfig(t)
	cfg.Adapters.Gopher.Hosts = []string{"localhost", "localhost"}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for duplicate hosts")
	}
	if !strings.Contains(err.Error(), "duplicate host") {
		t.Errorf("Expected 'duplicate host' error, got: %v", err)
	}
}

func TestValidate_InvalidGopherPort(t *testing.T) {
	cfg := validConfig(t)
	cfg.Adapters.Gopher.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for port out of range")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}
}

func TestValidate_NegativePort(t *testing.T) {
	cfg := validConfig(t)
	cfg.Adapters.Gopher.Port = -1

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for negative port")
	}
}

func TestValidate_NegativeMaxConnections(t *testing.T) {
	cfg := validConfig(t)
	cfg.Adapters.Gopher.MaxConnections = -1

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for negative max_connections")
	}
}

func TestValidate_InvalidShutdownTimeout(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.ShutdownTimeout = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for zero shutdown timeout")
	}
	if !strings.Contains(err.Error(), "required") && !strings.Contains(err.Error(), "gt") {
		t.Errorf("Expected 'required' or 'gt' validation error, got: %v", err)
	}
}

func TestValidate_NegativeTimeout(t *testing.T) {
	cfg := validConfig(t)
	cfg.Adapters.Gopher.ReadTimeout = -1 * time.Second

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for negative timeout")
	}
}

func TestValidate_NoAdaptersEnabled(t *testing.T) {
	cfg := validConfig(t)
	cfg.Adapters.Gopher.Enabled = false

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error when no adapters are enabled")
	}
	if !strings.Contains(err.Error(), "at least one adapter") {
		t.Errorf("Expected 'at least one adapter' error, got: %v", err)
	}
}

func TestValidate_MetricsPortConflict(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.Metrics.Enabled = true
	cfg.Server.Metrics.Port = cfg.Adapters.Gopher.Port

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for metrics port clashing with gopher")
	}
	if !strings.Contains(err.Error(), "server.metrics.port") {
		t.Errorf("Expected error about server.metrics.port, got: %v", err)
	}
}

func TestValidate_BurstWithoutRate(t *testing.T) {
	cfg := validConfig(t)
	cfg.Adapters.Gopher.RateLimit.Burst = 10

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for burst without a rate")
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	testCases := []string{"info", "INFO", "debug", "DEBUG", "warn", "WARN", "error", "ERROR"}

	for _, level := range testCases {
		cfg := validConfig(t)
		cfg.Logging.Level = level

		if err := Validate(cfg); err != nil {
			t.Errorf("Validation failed for level %q: %v", level, err)
		}

		// Validation does not normalize.
		if cfg.Logging.Level != level {
			t.Errorf("Expected level to remain %q after validation, got %q", level, cfg.Logging.Level)
		}
	}

	cfg := &Config{Logging: LoggingConfig{Level: "info"}}
	ApplyDefaults(cfg)
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected ApplyDefaults to normalize 'info' to 'INFO', got %q", cfg.Logging.Level)
	}
}
