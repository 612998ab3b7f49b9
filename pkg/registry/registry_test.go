package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/gopherd/internal/protocol/gopher"
	"github.com/marmos91/gopherd/pkg/cache"
	"github.com/marmos91/gopherd/pkg/gophermap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := New(
		cache.NewGophermapCache(cache.NewMemoryStore[*gophermap.Index]()),
		gopher.NewClassifier(cache.NewMemoryStore[bool]()),
	)
	require.NoError(t, err)
	return reg
}

func TestNew_RequiresBothCaches(t *testing.T) {
	_, err := New(nil, gopher.NewClassifier(cache.NewMemoryStore[bool]()))
	assert.Error(t, err)

	_, err = New(cache.NewGophermapCache(cache.NewMemoryStore[*gophermap.Index]()), nil)
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	reg := newRegistry(t)
	assert.Equal(t, Stats{}, reg.Stats())

	path := filepath.Join(t.TempDir(), "gophermap")
	require.NoError(t, os.WriteFile(path, []byte("9Bin\t/b.bin\tlocalhost\t70\n"), 0644))

	idx, err := reg.Gophermaps().Get(path)
	require.NoError(t, err)

	hosts := map[string]struct{}{"localhost": {}}
	binary, err := reg.Classifier().IsBinary(idx, hosts, "70", "/b.bin")
	require.NoError(t, err)
	assert.True(t, binary)

	assert.Equal(t, Stats{Gophermaps: 1, Classifications: 1}, reg.Stats())
}

func TestClose(t *testing.T) {
	store, err := cache.NewLevelDBStore[bool](cache.LevelDBStoreConfig{})
	require.NoError(t, err)

	reg, err := New(
		cache.NewGophermapCache(cache.NewMemoryStore[*gophermap.Index]()),
		gopher.NewClassifier(store),
	)
	require.NoError(t, err)

	assert.NoError(t, reg.Close())
}
