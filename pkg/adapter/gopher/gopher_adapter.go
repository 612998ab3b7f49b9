package gopher

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/gopherd/internal/logger"
	gopher "github.com/marmos91/gopherd/internal/protocol/gopher"
	"github.com/marmos91/gopherd/internal/ratelimiter"
	"github.com/marmos91/gopherd/pkg/adapter"
	"github.com/marmos91/gopherd/pkg/metrics"
	"github.com/marmos91/gopherd/pkg/registry"
)

var _ adapter.Adapter = (*GopherAdapter)(nil)

// GopherAdapter implements the adapter.Adapter interface for the Gopher
// protocol (RFC 1436).
//
// Architecture:
// GopherAdapter owns the TCP listener and the connection lifecycle. Each
// accepted connection is handed to the Dispatcher, which runs a
// GopherConnection for exactly one request. Handlers share nothing but the
// caches held by the registry.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Listener closed (no new connections)
//  3. shutdownCtx cancelled (handlers that have not started yet bail out)
//  4. Wait for active connections to complete (up to ShutdownTimeout)
//  5. Force-close any remaining connections after timeout
//
// Thread safety:
// All methods are safe for concurrent use. The shutdown mechanism uses sync.Once
// to ensure idempotent behavior even if Stop() is called multiple times.
type GopherAdapter struct {
	// config holds the listener configuration (root, hosts, ports, limits)
	config GopherConfig

	// root is the canonical form of config.Root
	root string

	// hosts is config.Hosts as a set, for gophermap entry matching
	hosts map[string]struct{}

	// registry provides the shared gophermap cache and classifier
	registry *registry.Registry

	// metrics provides optional Prometheus metrics collection
	metrics metrics.GopherMetrics

	// dispatcher runs connection handlers (bounded by MaxConnections if set)
	dispatcher Dispatcher

	// limiter throttles accepts; nil when rate limiting is off
	limiter *ratelimiter.RateLimiter

	// listener is closed during shutdown to stop accepting new connections.
	// Protected by mu: Stop() may run before Serve() has bound it.
	listener net.Listener
	mu       sync.Mutex

	// boundPort is the port actually bound, known once Serve() has started
	boundPort atomic.Int32

	// advertisedPort is the port gophermap entries must carry to match
	advertisedPort atomic.Value

	// activeConns tracks all currently active connections for graceful shutdown
	activeConns sync.WaitGroup

	// shutdownOnce ensures shutdown is only initiated once
	shutdownOnce sync.Once

	// shutdown is closed by initiateShutdown(), monitored by Serve()
	shutdown chan struct{}

	// listening is closed once the listener is bound
	listening chan struct{}

	// connCount tracks the current number of active connections
	connCount atomic.Int32

	// shutdownCtx is passed to every connection and cancelled on shutdown
	shutdownCtx    context.Context
	cancelRequests context.CancelFunc

	// activeConnections maps connection id to net.Conn for forced closure
	activeConnections sync.Map
}

// GopherConfig holds configuration parameters for the Gopher listener.
//
// Default values (applied by New if zero):
//   - AdvertisedPort: the bound port
//   - MaxConnections: 0 (unlimited)
//   - ReadTimeout: 0 (none)
//   - WriteTimeout: 0 (none)
//   - ShutdownTimeout: 30s
//   - MetricsLogInterval: 0 (disabled)
//
// Port is not defaulted here: 0 asks the OS for a free port. The standard
// port 70 is applied by pkg/config.
type GopherConfig struct {
	// Enabled controls whether the Gopher adapter is active.
	Enabled bool `mapstructure:"enabled"`

	// Root is the directory served. It must exist.
	Root string `mapstructure:"root" validate:"required,dir"`

	// Hosts lists the host names and addresses this server answers for.
	// A gophermap entry is only servable if its host field is one of them.
	Hosts []string `mapstructure:"hosts" validate:"required,min=1,dive,required"`

	// Host is the address to bind. Empty binds all interfaces.
	Host string `mapstructure:"host"`

	// Port is the TCP port to listen on.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// AdvertisedPort is the port gophermap entries must carry to match.
	// Set it when the server sits behind a port mapping. 0 uses the bound port.
	AdvertisedPort int `mapstructure:"advertised_port" validate:"min=0,max=65535"`

	// MaxConnections limits the number of concurrent connections.
	// When reached, the listener stops accepting until one closes.
	// 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"min=0"`

	// ReadTimeout bounds reading the request line. 0 means no timeout.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds writing the whole response. 0 means no timeout.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`

	// ShutdownTimeout is the maximum duration to wait for active connections
	// during graceful shutdown. Remaining connections are then force-closed.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// RateLimit throttles accepted connections.
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// MetricsLogInterval is the interval at which to log server metrics.
	// 0 disables periodic metrics logging.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" validate:"min=0"`
}

// RateLimitConfig configures the accept throttle.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained accept rate. 0 disables throttling.
	RequestsPerSecond uint `mapstructure:"requests_per_second"`

	// Burst is the number of connections accepted back to back before
	// throttling kicks in. 0 defaults to RequestsPerSecond.
	Burst uint `mapstructure:"burst"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *GopherConfig) applyDefaults() {
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// validate checks the fields New relies on.
func (c *GopherConfig) validate() error {
	if c.Root == "" {
		return fmt.Errorf("root is required")
	}
	if len(c.Hosts) == 0 {
		return fmt.Errorf("at least one host alias is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.AdvertisedPort < 0 || c.AdvertisedPort > 65535 {
		return fmt.Errorf("invalid advertised port %d: must be 0-65535", c.AdvertisedPort)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid MaxConnections %d: must be >= 0", c.MaxConnections)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("invalid ReadTimeout %v: must be >= 0", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("invalid WriteTimeout %v: must be >= 0", c.WriteTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	return nil
}

// New creates a new GopherAdapter.
//
// The adapter is created in a stopped state. Call SetRegistry() to inject the
// shared caches, then Serve() to start accepting connections.
//
// Returns an error if the configuration is invalid or the root directory
// cannot be canonicalized.
func New(config GopherConfig, gopherMetrics metrics.GopherMetrics) (*GopherAdapter, error) {
	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid Gopher config: %w", err)
	}

	root, err := gopher.CanonicalRoot(config.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid Gopher root: %w", err)
	}

	hosts := make(map[string]struct{}, len(config.Hosts))
	for _, h := range config.Hosts {
		hosts[h] = struct{}{}
	}

	if config.MaxConnections > 0 {
		logger.Debug("Gopher connection limit: %d", config.MaxConnections)
	} else {
		logger.Debug("Gopher connection limit: unlimited")
	}

	if gopherMetrics == nil {
		gopherMetrics = metrics.NewNoopGopherMetrics()
	}

	shutdownCtx, cancelRequests := context.WithCancel(context.Background())

	s := &GopherAdapter{
		config:         config,
		root:           root,
		hosts:          hosts,
		metrics:        gopherMetrics,
		dispatcher:     NewDispatcher(config.MaxConnections),
		limiter:        ratelimiter.New(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst),
		shutdown:       make(chan struct{}),
		listening:      make(chan struct{}),
		shutdownCtx:    shutdownCtx,
		cancelRequests: cancelRequests,
	}
	s.boundPort.Store(int32(config.Port))
	return s, nil
}

// SetRegistry injects the shared caches.
//
// Called exactly once by server.Server before Serve().
func (s *GopherAdapter) SetRegistry(reg *registry.Registry) {
	s.registry = reg
	logger.Debug("Gopher registry configured")
}

// Serve binds the listener and accepts connections until the context is
// cancelled.
//
// Accept errors are logged and the loop continues with a short backoff; a
// single bad accept never stops the listener.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the listener fails to start or connections had to be force-closed
func (s *GopherAdapter) Serve(ctx context.Context) error {
	if s.registry == nil {
		return fmt.Errorf("gopher adapter: SetRegistry() must be called before Serve()")
	}

	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create Gopher listener on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.boundPort.Store(int32(tcpAddr.Port))
	}
	advertised := s.config.AdvertisedPort
	if advertised == 0 {
		advertised = s.Port()
	}
	s.advertisedPort.Store(strconv.Itoa(advertised))
	close(s.listening)

	logger.Info("Gopher server listening on %s (root=%s hosts=%v advertised_port=%d)",
		listener.Addr(), s.root, s.config.Hosts, advertised)
	logger.Debug("Gopher config: max_connections=%d read_timeout=%v write_timeout=%v rate_limit=%d/s",
		s.config.MaxConnections, s.config.ReadTimeout, s.config.WriteTimeout, s.config.RateLimit.RequestsPerSecond)

	// A Stop() that raced ahead of the bind had no listener to close.
	select {
	case <-s.shutdown:
		_ = listener.Close()
		return s.gracefulShutdown()
	default:
	}

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("Gopher shutdown signal received: %v", ctx.Err())
			s.initiateShutdown()
		case <-s.shutdown:
		}
	}()

	if s.config.MetricsLogInterval > 0 {
		go s.logMetrics(ctx)
	}

	var backoff time.Duration
	for {
		if !s.dispatcher.Reserve(s.shutdown) {
			return s.gracefulShutdown()
		}

		throttled, err := s.limiter.Throttle(s.shutdownCtx)
		if throttled {
			s.metrics.RecordConnectionThrottled()
		}
		if err != nil {
			s.dispatcher.Release()
			return s.gracefulShutdown()
		}

		tcpConn, err := listener.Accept()
		if err != nil {
			s.dispatcher.Release()

			select {
			case <-s.shutdown:
				return s.gracefulShutdown()
			default:
			}

			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff *= 2; backoff > time.Second {
				backoff = time.Second
			}
			logger.Warn("Error accepting Gopher connection: %v; retrying in %v", err, backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		s.handle(tcpConn)
	}
}

// handle registers tcpConn and hands it to the dispatcher.
func (s *GopherAdapter) handle(tcpConn net.Conn) {
	conn := NewGopherConnection(s, tcpConn)

	s.activeConns.Add(1)
	s.connCount.Add(1)
	s.activeConnections.Store(conn.id, tcpConn)

	s.metrics.RecordConnectionAccepted()
	currentConns := s.connCount.Load()
	s.metrics.SetActiveConnections(currentConns)

	logger.Debug("Gopher connection %s accepted from %s (active: %d)",
		conn.id, tcpConn.RemoteAddr(), currentConns)

	s.dispatcher.Go(func() {
		defer func() {
			s.activeConnections.Delete(conn.id)
			s.activeConns.Done()
			s.connCount.Add(-1)

			s.metrics.RecordConnectionClosed()
			currentConns := s.connCount.Load()
			s.metrics.SetActiveConnections(currentConns)

			logger.Debug("Gopher connection %s closed (active: %d)", conn.id, currentConns)
		}()

		conn.Serve(s.shutdownCtx)
	})
}

// initiateShutdown closes the shutdown channel and the listener and cancels
// shutdownCtx. Safe to call multiple times.
func (s *GopherAdapter) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("Gopher shutdown initiated")

		close(s.shutdown)

		s.mu.Lock()
		listener := s.listener
		s.mu.Unlock()

		if listener != nil {
			if err := listener.Close(); err != nil {
				logger.Debug("Error closing Gopher listener: %v", err)
			}
		}

		s.cancelRequests()
	})
}

// gracefulShutdown waits for active connections up to ShutdownTimeout, then
// force-closes whatever is left.
func (s *GopherAdapter) gracefulShutdown() error {
	activeCount := s.connCount.Load()
	logger.Info("Gopher graceful shutdown: waiting for %d active connection(s) (timeout: %v)",
		activeCount, s.config.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Gopher graceful shutdown complete: all connections closed")
		return nil

	case <-time.After(s.config.ShutdownTimeout):
		remaining := s.connCount.Load()
		logger.Warn("Gopher shutdown timeout exceeded: %d connection(s) still active after %v - forcing closure",
			remaining, s.config.ShutdownTimeout)

		s.forceCloseConnections()

		return fmt.Errorf("gopher shutdown timeout: %d connections force-closed", remaining)
	}
}

// forceCloseConnections closes every tracked socket so that handlers blocked
// in I/O fail and exit.
func (s *GopherAdapter) forceCloseConnections() {
	closedCount := 0
	s.activeConnections.Range(func(key, value any) bool {
		id := key.(string)
		conn := value.(net.Conn)

		if err := conn.Close(); err != nil {
			logger.Debug("Error force-closing connection %s: %v", id, err)
		} else {
			closedCount++
			s.metrics.RecordConnectionForceClosed()
		}
		return true
	})

	if closedCount > 0 {
		logger.Info("Force-closed %d connection(s)", closedCount)
	}
}

// Stop initiates graceful shutdown and waits for active connections until
// ctx is done.
//
// Safe to call multiple times and concurrently with Serve().
func (s *GopherAdapter) Stop(ctx context.Context) error {
	s.initiateShutdown()

	if ctx == nil {
		return s.gracefulShutdown()
	}

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		remaining := s.connCount.Load()
		logger.Warn("Gopher shutdown context cancelled: %d connection(s) still active: %v",
			remaining, ctx.Err())
		return ctx.Err()
	}
}

// logMetrics periodically logs connection and cache counters until ctx is
// cancelled.
func (s *GopherAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(s.config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-ticker.C:
			stats := s.registry.Stats()
			logger.Info("Gopher metrics: active_connections=%d cached_gophermaps=%d cached_classifications=%d",
				s.connCount.Load(), stats.Gophermaps, stats.Classifications)
		}
	}
}

// WaitListening blocks until the listener is bound or ctx is done, and
// returns its address.
func (s *GopherAdapter) WaitListening(ctx context.Context) (net.Addr, error) {
	select {
	case <-s.listening:
		return s.listener.Addr(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetActiveConnections returns the current number of active connections.
func (s *GopherAdapter) GetActiveConnections() int32 {
	return s.connCount.Load()
}

// Root returns the canonical root directory.
func (s *GopherAdapter) Root() string {
	return s.root
}

// Port returns the bound port once Serve() has started, the configured port
// before that.
func (s *GopherAdapter) Port() int {
	return int(s.boundPort.Load())
}

// Protocol returns "Gopher" as the protocol identifier.
func (s *GopherAdapter) Protocol() string {
	return "Gopher"
}

// port returns the advertised port as gophermap entries spell it.
func (s *GopherAdapter) port() string {
	if p, ok := s.advertisedPort.Load().(string); ok {
		return p
	}
	return strconv.Itoa(s.Port())
}
