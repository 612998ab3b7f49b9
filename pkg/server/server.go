package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/gopherd/internal/logger"
	"github.com/marmos91/gopherd/pkg/adapter"
	"github.com/marmos91/gopherd/pkg/metrics"
	"github.com/marmos91/gopherd/pkg/registry"
)

// DefaultStopTimeout bounds how long Serve waits for adapters to stop.
const DefaultStopTimeout = 30 * time.Second

// Server manages the lifecycle of protocol adapters that share one registry
// of caches, plus the optional metrics HTTP server.
//
// Lifecycle:
//  1. Creation: New() with the shared registry
//  2. Registration: AddAdapter() for each listener
//  3. Startup: Serve() starts all adapters concurrently
//  4. Shutdown: Context cancellation stops every adapter, then the registry is closed
//
// Example usage:
//
//	srv := server.New(reg)
//	srv.SetMetricsServer(metrics.NewServer(metrics.ServerConfig{Port: 9070}))
//	if err := srv.AddAdapter(gopherAdapter); err != nil {
//	    return err
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//	return srv.Serve(ctx)
type Server struct {
	registry      *registry.Registry
	metricsServer *metrics.Server
	stopTimeout   time.Duration

	// mu protects adapters and served
	mu       sync.RWMutex
	adapters []adapter.Adapter
	served   bool
}

// New creates a Server around reg.
//
// Panics if reg is nil (indicates programmer error).
func New(reg *registry.Registry) *Server {
	if reg == nil {
		panic("registry cannot be nil")
	}

	return &Server{
		registry:    reg,
		stopTimeout: DefaultStopTimeout,
		adapters:    make([]adapter.Adapter, 0, 1),
	}
}

// SetMetricsServer runs ms alongside the adapters. Optional.
func (s *Server) SetMetricsServer(ms *metrics.Server) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metricsServer = ms
}

// SetStopTimeout overrides DefaultStopTimeout.
func (s *Server) SetStopTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimeout = d
}

// AddAdapter injects the registry into a and registers it.
//
// Returns an error if another adapter already serves the same protocol on
// the same port. Panics if a is nil or Serve() has already been called.
func (s *Server) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		panic("cannot add adapter after Serve() has been called")
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		// Port 0 means OS-assigned, which never conflicts.
		if port != 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	a.SetRegistry(s.registry)
	s.adapters = append(s.adapters, a)

	logger.Info("Registered %s adapter on port %d", protocol, port)
	return nil
}

// Serve starts all adapters and blocks until the context is cancelled or an
// adapter fails. Every adapter is stopped and the registry closed before it
// returns.
//
// Returns:
//   - nil on graceful shutdown after cancellation
//   - error if no adapter is registered, an adapter failed, or shutdown was
//     not clean
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return fmt.Errorf("server is already serving or has stopped")
	}
	s.served = true
	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	metricsServer := s.metricsServer
	stopTimeout := s.stopTimeout
	s.mu.Unlock()

	logger.Info("Starting gopherd with %d adapter(s)", len(adapters))

	// Buffered so that failing adapters never block.
	errChan := make(chan adapterError, len(adapters)+1)
	var wg sync.WaitGroup

	serveCtx, cancelServe := context.WithCancel(ctx)
	defer cancelServe()

	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			if err := a.Serve(serveCtx); err != nil {
				if serveCtx.Err() == nil {
					logger.Error("%s adapter failed: %v", protocol, err)
				}
				errChan <- adapterError{protocol: protocol, err: err}
				return
			}
			logger.Info("%s adapter stopped", protocol)
		}(adp)
	}

	if metricsServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metricsServer.Start(serveCtx); err != nil {
				errChan <- adapterError{protocol: "metrics", err: err}
			}
		}()
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())

	case adapterErr := <-errChan:
		logger.Error("%s failed: %v - initiating shutdown", adapterErr.protocol, adapterErr.err)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}

	cancelServe()
	s.stopAllAdapters(adapters, stopTimeout)

	logger.Debug("Waiting for all adapters to complete shutdown")
	wg.Wait()
	close(errChan)

	// Errors reported while shutting down (force-closed connections).
	for adapterErr := range errChan {
		if shutdownErr == nil {
			shutdownErr = fmt.Errorf("%s shutdown: %w", adapterErr.protocol, adapterErr.err)
		}
	}

	if err := s.registry.Close(); err != nil {
		logger.Warn("Error closing registry: %v", err)
		shutdownErr = errors.Join(shutdownErr, err)
	}

	logger.Info("gopherd stopped")
	return shutdownErr
}

// adapterError pairs an adapter protocol name with its error.
type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters calls Stop() on every adapter in reverse registration order.
func (s *Server) stopAllAdapters(adapters []adapter.Adapter, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		if err := adp.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", adp.Protocol(), err)
		}
	}
}

// Adapters returns a snapshot of the registered adapters.
func (s *Server) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}
