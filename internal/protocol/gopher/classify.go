package gopher

import (
	"github.com/marmos91/gopherd/pkg/cache"
	"github.com/marmos91/gopherd/pkg/gophermap"
)

// ClassificationCacheName labels the classification cache in metrics and logs.
const ClassificationCacheName = "classification"

// Classifier decides whether a selector is served as binary or as text.
//
// Answers are memoized by selector alone. If two directories list the same
// selector string with different item types, whichever gophermap is consulted
// first wins for the lifetime of the process.
type Classifier struct {
	cache cache.Store[bool]
}

// NewClassifier creates a Classifier memoizing into store.
func NewClassifier(store cache.Store[bool]) *Classifier {
	return &Classifier{cache: store}
}

// IsBinary reports whether selector must be streamed without the text
// sentinel.
//
// The first entry of index advertising selector on one of hosts at port
// decides: item types 5 and 9 are binary, everything else is text. A selector
// the gophermap does not list is refused with KindNoEntryInGophermap, even if
// the file exists on disk.
func (c *Classifier) IsBinary(index *gophermap.Index, hosts map[string]struct{}, port, selector string) (bool, error) {
	if binary, ok := c.cache.Get(selector); ok {
		return binary, nil
	}

	entry, ok := index.Find(hosts, port, selector)
	if !ok {
		return false, ErrNoEntryInGophermap(selector)
	}

	binary := entry.Type.IsBinary()
	c.cache.Put(selector, binary)
	return binary, nil
}

// Len returns the number of memoized selectors.
func (c *Classifier) Len() int {
	return c.cache.Len()
}

// Close releases the underlying store.
func (c *Classifier) Close() error {
	return c.cache.Close()
}
