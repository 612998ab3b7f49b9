package config

import (
	"errors"
	"fmt"

	"github.com/marmos91/gopherd/internal/logger"
	gopher "github.com/marmos91/gopherd/internal/protocol/gopher"
	"github.com/marmos91/gopherd/pkg/cache"
	"github.com/marmos91/gopherd/pkg/gophermap"
	"github.com/marmos91/gopherd/pkg/registry"
)

// InitializeRegistry creates the Registry holding the gophermap and
// classification caches, both on the configured backend.
//
// cacheMetrics may be nil, in which case the caches are not instrumented.
//
// Example:
//
//	cfg, _ := config.Load("config.yaml")
//	reg, err := config.InitializeRegistry(cfg, nil)
//	if err != nil {
//	    log.Fatalf("Failed to initialize registry: %v", err)
//	}
func InitializeRegistry(cfg *Config, cacheMetrics cache.Metrics) (*registry.Registry, error) {
	logger.Debug("Initializing registry with %s cache backend", cfg.Cache.Type)

	mapStore, err := CreateStore[*gophermap.Index](&cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create gophermap cache: %w", err)
	}

	classStore, err := CreateStore[bool](&cfg.Cache)
	if err != nil {
		return nil, errors.Join(
			fmt.Errorf("failed to create classification cache: %w", err),
			mapStore.Close(),
		)
	}

	gophermaps := cache.NewGophermapCache(
		cache.Instrument(cache.GophermapCacheName, mapStore, cacheMetrics),
	)
	classifier := gopher.NewClassifier(
		cache.Instrument(gopher.ClassificationCacheName, classStore, cacheMetrics),
	)

	reg, err := registry.New(gophermaps, classifier)
	if err != nil {
		return nil, errors.Join(err, gophermaps.Close(), classifier.Close())
	}

	logger.Debug("Registry initialized")
	return reg, nil
}
