package adapter

import (
	"context"

	"github.com/marmos91/gopherd/pkg/registry"
)

// Adapter represents a protocol-specific listener managed by server.Server.
//
// Lifecycle:
//  1. Creation: Adapter is created with protocol-specific configuration
//  2. Registry injection: SetRegistry() provides the shared caches
//  3. Startup: Serve() starts the listener and blocks until shutdown
//  4. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. SetRegistry() is called
// once before Serve(), but Stop() may be called concurrently with Serve().
type Adapter interface {
	// Serve starts the protocol server and blocks until the context is cancelled
	// or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must initiate graceful shutdown:
	//   - Stop accepting new connections
	//   - Wait for active connections to complete (with timeout)
	//   - Return nil, or an error if connections had to be force-closed
	//
	// If Serve returns before context cancellation, the server treats it as
	// a fatal error and stops all other adapters.
	Serve(ctx context.Context) error

	// SetRegistry injects the shared caches. Called exactly once, before Serve().
	SetRegistry(reg *registry.Registry)

	// Stop initiates graceful shutdown. It must be idempotent, safe to call
	// concurrently with Serve(), and respect ctx as the shutdown deadline.
	Stop(ctx context.Context) error

	// Protocol returns the human-readable protocol name for logging and metrics.
	Protocol() string

	// Port returns the TCP port the adapter listens on. Before Serve() binds,
	// this is the configured port (0 means an OS-assigned port).
	Port() int
}
