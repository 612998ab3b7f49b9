package gopher

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnboundedDispatcher(t *testing.T) {
	d := NewDispatcher(0)
	done := make(chan struct{})

	var wg sync.WaitGroup
	var ran atomic.Int32
	for i := 0; i < 100; i++ {
		require.True(t, d.Reserve(done))
		wg.Add(1)
		d.Go(func() {
			defer wg.Done()
			ran.Add(1)
		})
	}
	wg.Wait()
	assert.Equal(t, int32(100), ran.Load())

	close(done)
	assert.False(t, d.Reserve(done))
}

func TestBoundedDispatcher_LimitsConcurrency(t *testing.T) {
	const limit = 3
	d := NewDispatcher(limit)
	done := make(chan struct{})
	defer close(done)

	release := make(chan struct{})
	var running, peak atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < limit; i++ {
		require.True(t, d.Reserve(done))
		wg.Add(1)
		d.Go(func() {
			defer wg.Done()
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			running.Add(-1)
		})
	}

	// All slots are taken: the next Reserve must block.
	reserved := make(chan bool, 1)
	go func() { reserved <- d.Reserve(done) }()

	select {
	case <-reserved:
		t.Fatal("Reserve should block while all slots are in use")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	wg.Wait()

	select {
	case ok := <-reserved:
		assert.True(t, ok)
		d.Release()
	case <-time.After(time.Second):
		t.Fatal("Reserve should succeed once a slot frees up")
	}

	assert.LessOrEqual(t, peak.Load(), int32(limit))
}

func TestBoundedDispatcher_ReserveAbortsOnDone(t *testing.T) {
	d := NewDispatcher(1)
	done := make(chan struct{})

	require.True(t, d.Reserve(done))

	result := make(chan bool, 1)
	go func() { result <- d.Reserve(done) }()

	close(done)
	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Reserve should return once done is closed")
	}
}
