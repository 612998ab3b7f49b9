package cache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/marmos91/gopherd/pkg/gophermap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGophermap = "iHello\t(NULL)\t(NULL)\t0\n0About me\t/me_txt\t127.0.0.1\t7071\n"

// countingReader wraps os.ReadFile and counts calls.
type countingReader struct {
	calls atomic.Int32
}

func (r *countingReader) ReadFile(path string) ([]byte, error) {
	r.calls.Add(1)
	return os.ReadFile(path)
}

func writeGophermap(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "gophermap")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGophermapCache_ReadsOnce(t *testing.T) {
	path := writeGophermap(t, t.TempDir(), testGophermap)
	reader := &countingReader{}
	c := NewGophermapCache(NewMemoryStore[*gophermap.Index](), WithReadFile(reader.ReadFile))

	first, err := c.Get(path)
	require.NoError(t, err)
	require.Equal(t, 2, first.Len())
	assert.Equal(t, path, first.Path)

	second, err := c.Get(path)
	require.NoError(t, err)
	assert.Same(t, first, second)

	assert.Equal(t, int32(1), reader.calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestGophermapCache_MissingFile(t *testing.T) {
	reader := &countingReader{}
	c := NewGophermapCache(NewMemoryStore[*gophermap.Index](), WithReadFile(reader.ReadFile))

	missing := filepath.Join(t.TempDir(), "gophermap")
	_, err := c.Get(missing)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	// Failures are not memoized.
	writeGophermap(t, filepath.Dir(missing), testGophermap)
	idx, err := c.Get(missing)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, int32(2), reader.calls.Load())
}

func TestGophermapCache_MalformedFile(t *testing.T) {
	path := writeGophermap(t, t.TempDir(), "\tno type\tlocalhost\t70\n")
	c := NewGophermapCache(NewMemoryStore[*gophermap.Index]())

	_, err := c.Get(path)
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestGophermapCache_ConcurrentFirstAccess(t *testing.T) {
	path := writeGophermap(t, t.TempDir(), testGophermap)
	c := NewGophermapCache(NewMemoryStore[*gophermap.Index]())

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			idx, err := c.Get(path)
			if err != nil {
				errs <- err
				return
			}
			if idx.Len() != 2 {
				errs <- errors.New("unexpected entry count")
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, 1, c.Len())
}

func TestGophermapCache_BadgerBackend(t *testing.T) {
	path := writeGophermap(t, t.TempDir(), testGophermap)
	store, err := NewBadgerStore[*gophermap.Index](BadgerStoreConfig{})
	require.NoError(t, err)

	reader := &countingReader{}
	c := NewGophermapCache(store, WithReadFile(reader.ReadFile))
	defer func() { _ = c.Close() }()

	first, err := c.Get(path)
	require.NoError(t, err)
	second, err := c.Get(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), reader.calls.Load())
}
