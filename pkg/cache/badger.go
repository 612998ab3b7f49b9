package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/marmos91/gopherd/internal/logger"
)

// BadgerStoreConfig configures the BadgerDB-backed store.
//
// The database always runs in in-memory mode: nothing is written to disk, so a
// process restart still empties the cache.
type BadgerStoreConfig struct {
	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 32)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 16)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`
}

// BadgerStore keeps JSON-encoded values in an in-memory BadgerDB.
type BadgerStore[V any] struct {
	db *badger.DB

	// writeMu serializes Puts so the key count stays exact and concurrent
	// writers never hit transaction conflicts.
	writeMu sync.Mutex
	count   int
}

// NewBadgerStore opens an in-memory BadgerDB.
func NewBadgerStore[V any](config BadgerStoreConfig) (*BadgerStore[V], error) {
	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 32
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 16
	}

	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.WARNING).
		WithBlockCacheSize(blockCacheMB << 20).
		WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory BadgerDB: %w", err)
	}

	return &BadgerStore[V]{db: db}, nil
}

func (s *BadgerStore[V]) Get(key string) (V, bool) {
	var value V
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &value); err != nil {
				return fmt.Errorf("decode %q: %w", key, err)
			}
			found = true
			return nil
		})
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		logger.Warn("Badger cache read failed for %q: %v", key, err)
	}

	return value, found
}

func (s *BadgerStore[V]) Put(key string, value V) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn("Badger cache encode failed for %q: %v", key, err)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	isNew := false
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		isNew = errors.Is(err, badger.ErrKeyNotFound)
		if err != nil && !isNew {
			return err
		}
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		logger.Warn("Badger cache write failed for %q: %v", key, err)
		return
	}
	if isNew {
		s.count++
	}
}

func (s *BadgerStore[V]) Len() int {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.count
}

func (s *BadgerStore[V]) Close() error {
	return s.db.Close()
}
