package cache

import (
	"fmt"
	"os"

	"github.com/marmos91/gopherd/internal/logger"
	"github.com/marmos91/gopherd/pkg/gophermap"
)

// GophermapCacheName labels the gophermap cache in metrics and logs.
const GophermapCacheName = "gophermap"

// GophermapCache memoizes parsed gophermaps by canonical path.
//
// Callers must pass canonical (symlink-free, absolute) paths: two textual paths
// reaching the same file then share one entry and one parse.
type GophermapCache struct {
	store    Store[*gophermap.Index]
	readFile func(string) ([]byte, error)
}

// GophermapCacheOption customizes a GophermapCache.
type GophermapCacheOption func(*GophermapCache)

// WithReadFile replaces os.ReadFile as the source of gophermap bytes.
func WithReadFile(fn func(string) ([]byte, error)) GophermapCacheOption {
	return func(c *GophermapCache) {
		c.readFile = fn
	}
}

// NewGophermapCache creates a cache on top of store.
func NewGophermapCache(store Store[*gophermap.Index], opts ...GophermapCacheOption) *GophermapCache {
	c := &GophermapCache{
		store:    store,
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the parsed gophermap at canonicalPath, reading and parsing it on
// the first request only.
//
// Read errors are returned wrapped; they are not cached, so a gophermap that
// appears later is picked up on the next request.
func (c *GophermapCache) Get(canonicalPath string) (*gophermap.Index, error) {
	if idx, ok := c.store.Get(canonicalPath); ok {
		return idx, nil
	}

	data, err := c.readFile(canonicalPath)
	if err != nil {
		return nil, fmt.Errorf("read gophermap %s: %w", canonicalPath, err)
	}

	idx, err := gophermap.ParseIndex(canonicalPath, data)
	if err != nil {
		return nil, fmt.Errorf("parse gophermap %s: %w", canonicalPath, err)
	}

	c.store.Put(canonicalPath, idx)
	logger.Debug("Cached gophermap %s (%d entries)", canonicalPath, idx.Len())

	return idx, nil
}

// Len returns the number of cached gophermaps.
func (c *GophermapCache) Len() int {
	return c.store.Len()
}

// Close releases the underlying store.
func (c *GophermapCache) Close() error {
	return c.store.Close()
}
