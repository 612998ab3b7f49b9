package registry

import (
	"errors"
	"fmt"

	"github.com/marmos91/gopherd/internal/protocol/gopher"
	"github.com/marmos91/gopherd/pkg/cache"
)

// Registry holds the process-wide resources shared by every adapter: the
// gophermap cache and the selector classifier.
//
// Both are created empty at startup, filled lazily by request handlers and
// never invalidated. The Registry owns them and closes them on shutdown.
//
// Example usage:
//
//	reg, err := registry.New(
//	    cache.NewGophermapCache(cache.NewMemoryStore[*gophermap.Index]()),
//	    gopher.NewClassifier(cache.NewMemoryStore[bool]()),
//	)
//	srv := server.New(reg)
type Registry struct {
	gophermaps *cache.GophermapCache
	classifier *gopher.Classifier
}

// Stats is a point-in-time view of the shared caches.
type Stats struct {
	Gophermaps      int
	Classifications int
}

// New creates a Registry. Both arguments are required.
func New(gophermaps *cache.GophermapCache, classifier *gopher.Classifier) (*Registry, error) {
	if gophermaps == nil {
		return nil, fmt.Errorf("cannot create registry with nil gophermap cache")
	}
	if classifier == nil {
		return nil, fmt.Errorf("cannot create registry with nil classifier")
	}

	return &Registry{
		gophermaps: gophermaps,
		classifier: classifier,
	}, nil
}

// Gophermaps returns the shared gophermap cache.
func (r *Registry) Gophermaps() *cache.GophermapCache {
	return r.gophermaps
}

// Classifier returns the shared selector classifier.
func (r *Registry) Classifier() *gopher.Classifier {
	return r.classifier
}

// Stats reports the current size of both caches.
func (r *Registry) Stats() Stats {
	return Stats{
		Gophermaps:      r.gophermaps.Len(),
		Classifications: r.classifier.Len(),
	}
}

// Close releases both caches, returning every error encountered.
func (r *Registry) Close() error {
	var errs []error
	if err := r.gophermaps.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close gophermap cache: %w", err))
	}
	if err := r.classifier.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close classification cache: %w", err))
	}
	return errors.Join(errs...)
}
