package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/marmos91/gopherd/internal/logger"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// LevelDBStoreConfig configures the LevelDB-backed store.
//
// Like the Badger store, it runs on memory storage only.
type LevelDBStoreConfig struct {
	// WriteBufferMB is the memtable size in MB (default: 4)
	WriteBufferMB int `mapstructure:"write_buffer_mb"`

	// BlockCacheMB is the block cache capacity in MB (default: 8)
	BlockCacheMB int `mapstructure:"block_cache_mb"`
}

// LevelDBStore keeps JSON-encoded values in a LevelDB on memory storage.
type LevelDBStore[V any] struct {
	db *leveldb.DB

	writeMu sync.Mutex
	count   int
}

// NewLevelDBStore opens a LevelDB on memory storage.
func NewLevelDBStore[V any](config LevelDBStoreConfig) (*LevelDBStore[V], error) {
	writeBuffer := config.WriteBufferMB
	if writeBuffer <= 0 {
		writeBuffer = 4
	}
	blockCache := config.BlockCacheMB
	if blockCache <= 0 {
		blockCache = 8
	}

	db, err := leveldb.Open(storage.NewMemStorage(), &opt.Options{
		WriteBuffer:        writeBuffer * opt.MiB,
		BlockCacheCapacity: blockCache * opt.MiB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory LevelDB: %w", err)
	}

	return &LevelDBStore[V]{db: db}, nil
}

func (s *LevelDBStore[V]) Get(key string) (V, bool) {
	var value V

	data, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if !errors.Is(err, leveldb.ErrNotFound) {
			logger.Warn("LevelDB cache read failed for %q: %v", key, err)
		}
		return value, false
	}

	if err := json.Unmarshal(data, &value); err != nil {
		logger.Warn("LevelDB cache decode failed for %q: %v", key, err)
		return value, false
	}
	return value, true
}

func (s *LevelDBStore[V]) Put(key string, value V) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn("LevelDB cache encode failed for %q: %v", key, err)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	exists, err := s.db.Has([]byte(key), nil)
	if err != nil {
		logger.Warn("LevelDB cache read failed for %q: %v", key, err)
		return
	}
	if err := s.db.Put([]byte(key), data, nil); err != nil {
		logger.Warn("LevelDB cache write failed for %q: %v", key, err)
		return
	}
	if !exists {
		s.count++
	}
}

func (s *LevelDBStore[V]) Len() int {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.count
}

func (s *LevelDBStore[V]) Close() error {
	return s.db.Close()
}
