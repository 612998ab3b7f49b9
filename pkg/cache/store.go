// Package cache provides the process-wide memoization layers of the request
// path.
//
// Two caches exist: parsed gophermaps keyed by canonical path, and selector
// classifications (binary or text) keyed by selector. Both are populated lazily
// and never invalidated while the process runs; restarting the process is the
// only way to pick up edited gophermaps.
//
// Every cache sits on a Store. Stores are interchangeable (in-memory map,
// in-memory BadgerDB, in-memory LevelDB) and callers only see the Store
// interface, so a bounded or LRU variant can be dropped in later.
package cache

// Store is a concurrency-safe key-value store.
//
// Concurrent Puts for the same key are allowed: the values are deterministic,
// so whichever write lands last is as good as any other.
type Store[V any] interface {
	// Get returns the value stored under key.
	Get(key string) (V, bool)

	// Put stores value under key, replacing any previous value.
	Put(key string, value V)

	// Len returns the number of stored keys.
	Len() int

	// Close releases resources held by the store.
	Close() error
}

// Metrics observes cache effectiveness.
//
// Implemented by pkg/metrics; a no-op is used when metrics are disabled.
type Metrics interface {
	RecordHit(cache string)
	RecordMiss(cache string)
	SetEntries(cache string, n int)
}

type noopMetrics struct{}

func (noopMetrics) RecordHit(string)       {}
func (noopMetrics) RecordMiss(string)      {}
func (noopMetrics) SetEntries(string, int) {}

// instrumentedStore reports hits and misses of the wrapped store.
type instrumentedStore[V any] struct {
	Store[V]
	name    string
	metrics Metrics
}

// Instrument wraps s so that every Get is reported to m under name.
// A nil m returns s unchanged.
func Instrument[V any](name string, s Store[V], m Metrics) Store[V] {
	if m == nil {
		return s
	}
	return &instrumentedStore[V]{Store: s, name: name, metrics: m}
}

func (s *instrumentedStore[V]) Get(key string) (V, bool) {
	v, ok := s.Store.Get(key)
	if ok {
		s.metrics.RecordHit(s.name)
	} else {
		s.metrics.RecordMiss(s.name)
	}
	return v, ok
}

func (s *instrumentedStore[V]) Put(key string, value V) {
	s.Store.Put(key, value)
	s.metrics.SetEntries(s.name, s.Store.Len())
}
