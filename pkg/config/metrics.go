package config

import (
	"github.com/marmos91/gopherd/pkg/cache"
	"github.com/marmos91/gopherd/pkg/metrics"
	promMetrics "github.com/marmos91/gopherd/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// GopherMetrics is the collector for the Gopher adapter (never nil, uses noop if disabled)
	GopherMetrics metrics.GopherMetrics

	// CacheMetrics observes the caches (nil if disabled)
	CacheMetrics cache.Metrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// When metrics are disabled it returns no-op implementations and no server.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{
			GopherMetrics: metrics.NewNoopGopherMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Server.Metrics.Port,
	})

	return &MetricsResult{
		Server:        server,
		GopherMetrics: promMetrics.NewGopherMetrics(),
		CacheMetrics:  promMetrics.NewCacheMetrics(),
	}
}
