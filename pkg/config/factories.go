package config

import (
	"fmt"

	"github.com/marmos91/gopherd/pkg/cache"
	"github.com/mitchellh/mapstructure"
)

// CreateStore creates a cache store based on configuration.
//
// The Type field selects the implementation; the matching options map is
// decoded into that backend's config struct and passed to its constructor.
//
// Supported types:
//   - "memory": Uses cache.MemoryStore (plain map)
//   - "badger": Uses cache.BadgerStore (in-memory BadgerDB)
//   - "leveldb": Uses cache.LevelDBStore (LevelDB on memory storage)
func CreateStore[V any](cfg *CacheConfig) (cache.Store[V], error) {
	switch cfg.Type {
	case "memory", "":
		return cache.NewMemoryStore[V](), nil
	case "badger":
		return createBadgerStore[V](cfg.Badger)
	case "leveldb":
		return createLevelDBStore[V](cfg.LevelDB)
	default:
		return nil, fmt.Errorf("unknown cache type: %q (supported: memory, badger, leveldb)", cfg.Type)
	}
}

func createBadgerStore[V any](options map[string]any) (cache.Store[V], error) {
	var storeCfg cache.BadgerStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger cache options: %w", err)
	}

	store, err := cache.NewBadgerStore[V](storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger cache: %w", err)
	}
	return store, nil
}

func createLevelDBStore[V any](options map[string]any) (cache.Store[V], error) {
	var storeCfg cache.LevelDBStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode leveldb cache options: %w", err)
	}

	store, err := cache.NewLevelDBStore[V](storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create leveldb cache: %w", err)
	}
	return store, nil
}

// decodeOptions decodes a backend options map, rejecting unknown keys and
// accepting numbers written as strings (as they arrive from the environment).
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(options)
}
