package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Log level normalization is handled in ApplyDefaults; validation accepts
// both cases.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs validation that cannot be expressed in tags.
func validateCustomRules(cfg *Config) error {
	if !cfg.Adapters.Gopher.Enabled {
		return fmt.Errorf("adapters: at least one adapter must be enabled")
	}

	// The root itself is checked by the dir tag.
	g := cfg.Adapters.Gopher

	seen := make(map[string]bool, len(g.Hosts))
	for i, host := range g.Hosts {
		if seen[host] {
			return fmt.Errorf("adapters.gopher.hosts[%d]: duplicate host %q", i, host)
		}
		seen[host] = true
	}

	if cfg.Server.Metrics.Enabled {
		if cfg.Server.Metrics.Port == 0 {
			return fmt.Errorf("server.metrics.port: required when metrics are enabled")
		}
		if cfg.Server.Metrics.Port == g.Port {
			return fmt.Errorf("server.metrics.port: %d is already used by the gopher adapter", g.Port)
		}
	}

	if g.RateLimit.Burst > 0 && g.RateLimit.RequestsPerSecond == 0 {
		return fmt.Errorf("adapters.gopher.rate_limit: burst is set but requests_per_second is 0")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
