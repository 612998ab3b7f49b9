package gopher

// Dispatcher decides where and how many connection handlers run.
//
// The accept loop reserves a slot before accepting, so a full dispatcher
// applies backpressure at the listener instead of queueing accepted sockets.
type Dispatcher interface {
	// Reserve blocks until a slot is free. It returns false if done is
	// closed first.
	Reserve(done <-chan struct{}) bool

	// Release frees a reserved slot that was never handed to Go.
	Release()

	// Go runs task on its own goroutine and frees the slot when it returns.
	Go(task func())
}

// NewDispatcher returns an unbounded dispatcher for maxConnections <= 0 and
// a semaphore-bounded one otherwise.
func NewDispatcher(maxConnections int) Dispatcher {
	if maxConnections <= 0 {
		return unboundedDispatcher{}
	}
	return &boundedDispatcher{slots: make(chan struct{}, maxConnections)}
}

// unboundedDispatcher starts one goroutine per connection, without limit.
type unboundedDispatcher struct{}

func (unboundedDispatcher) Reserve(done <-chan struct{}) bool {
	select {
	case <-done:
		return false
	default:
		return true
	}
}

func (unboundedDispatcher) Release() {}

func (unboundedDispatcher) Go(task func()) {
	go task()
}

// boundedDispatcher caps concurrent handlers with a counting semaphore.
type boundedDispatcher struct {
	slots chan struct{}
}

func (d *boundedDispatcher) Reserve(done <-chan struct{}) bool {
	select {
	case <-done:
		return false
	default:
	}

	select {
	case d.slots <- struct{}{}:
		return true
	case <-done:
		return false
	}
}

func (d *boundedDispatcher) Release() {
	<-d.slots
}

func (d *boundedDispatcher) Go(task func()) {
	go func() {
		defer d.Release()
		task()
	}()
}
