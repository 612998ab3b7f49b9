package config

import (
	"fmt"

	"github.com/marmos91/gopherd/pkg/adapter"
	"github.com/marmos91/gopherd/pkg/adapter/gopher"
	"github.com/marmos91/gopherd/pkg/metrics"
)

// CreateAdapters creates all enabled protocol adapters from the configuration.
//
// gopherMetrics may be nil (no metrics).
func CreateAdapters(cfg *Config, gopherMetrics metrics.GopherMetrics) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if cfg.Adapters.Gopher.Enabled {
		gopherAdapter, err := gopher.New(cfg.Adapters.Gopher, gopherMetrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create gopher adapter: %w", err)
		}
		adapters = append(adapters, gopherAdapter)
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters enabled in configuration")
	}

	return adapters, nil
}
