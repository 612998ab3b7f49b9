package gopher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/gopherd/internal/logger"
	gopher "github.com/marmos91/gopherd/internal/protocol/gopher"
	"github.com/marmos91/gopherd/pkg/gophermap"
	"github.com/marmos91/gopherd/pkg/metrics"
)

// GophermapName is the file that indexes each served directory.
const GophermapName = "gophermap"

// pathKind is what the resolved selector turned out to be on disk.
type pathKind int

const (
	pathUnknown pathKind = iota
	pathDirectory
	pathFile
)

func (k pathKind) String() string {
	switch k {
	case pathDirectory:
		return "directory"
	case pathFile:
		return "file"
	default:
		return "unknown"
	}
}

// requestContext accumulates what each step of a request learns.
type requestContext struct {
	raw      string
	selector string

	// resolved is the canonical path the selector maps to.
	resolved string
	kind     pathKind

	// file is the opened target for pathFile. Closed by Serve.
	file *os.File

	// gophermap is the canonical path of the governing gophermap.
	gophermap string

	binary bool
	sent   int64
}

// outcome labels the request for metrics.
func (rc *requestContext) outcome(err error) string {
	switch {
	case err != nil:
		return gopher.KindOf(err).String()
	case rc.kind == pathDirectory:
		return metrics.OutcomeDirectory
	case rc.binary:
		return metrics.OutcomeBinary
	default:
		return metrics.OutcomeText
	}
}

// GopherConnection serves exactly one request on one client connection.
type GopherConnection struct {
	server *GopherAdapter
	conn   net.Conn
	id     string
}

// NewGopherConnection wraps conn for server.
func NewGopherConnection(server *GopherAdapter, conn net.Conn) *GopherConnection {
	return &GopherConnection{
		server: server,
		conn:   conn,
		id:     uuid.NewString(),
	}
}

// Serve runs the request state machine and closes the connection.
//
// Recoverable failures are answered with an info line and the sentinel.
// Path injection gets no bytes at all. Anything else, panics included, is
// logged and the connection is dropped; the listener is never affected.
func (c *GopherConnection) Serve(ctx context.Context) {
	start := time.Now()
	rc := &requestContext{}
	var err error

	defer func() {
		if r := recover(); r != nil {
			logger.Error("[%s] Panic in connection handler from %s: %v", c.id, c.conn.RemoteAddr(), r)
			err = fmt.Errorf("panic: %v", r)
		}
		if rc.file != nil {
			_ = rc.file.Close()
		}
		_ = c.conn.Close()

		outcome := rc.outcome(err)
		c.server.metrics.RecordRequest(outcome, time.Since(start))
		c.server.metrics.RecordBytesSent(outcome, rc.sent)
	}()

	select {
	case <-ctx.Done():
		logger.Debug("[%s] Connection from %s dropped: server shutting down", c.id, c.conn.RemoteAddr())
		err = ctx.Err()
		return
	default:
	}

	err = c.handleRequest(rc)
	c.finish(rc, err)
}

// handleRequest walks RequestRead, PathResolved, GophermapLocated, Classified
// and Streaming in order, stopping at the first failure.
func (c *GopherConnection) handleRequest(rc *requestContext) error {
	if err := c.readRequest(rc); err != nil {
		return err
	}

	resolved, err := gopher.Resolve(c.server.root, rc.selector)
	if err != nil {
		return err
	}
	rc.resolved = resolved

	if err := c.locateGophermap(rc); err != nil {
		return err
	}

	if err := c.classify(rc); err != nil {
		return err
	}

	return c.stream(rc)
}

func (c *GopherConnection) readRequest(rc *requestContext) error {
	if timeout := c.server.config.ReadTimeout; timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
	}

	req, err := gopher.ReadRequest(c.conn)
	if err != nil {
		return err
	}

	rc.raw = req.Raw
	rc.selector = req.Selector
	logger.Debug("[%s] Request from %s: %q", c.id, c.conn.RemoteAddr(), rc.raw)
	return nil
}

// locateGophermap decides the path kind and finds the governing gophermap:
// <dir>/gophermap for a directory, <parent>/gophermap for a regular file.
func (c *GopherConnection) locateGophermap(rc *requestContext) error {
	info, err := os.Stat(rc.resolved)
	if err != nil {
		return gopher.ErrResourceNotFound(rc.selector, err)
	}

	var candidate string
	switch {
	case info.IsDir():
		rc.kind = pathDirectory
		candidate = filepath.Join(rc.resolved, GophermapName)

	case info.Mode().IsRegular():
		f, err := os.Open(rc.resolved)
		if err != nil {
			return gopher.ErrResourceNotFound(rc.selector, err)
		}
		rc.kind = pathFile
		rc.file = f
		candidate = filepath.Join(filepath.Dir(rc.resolved), GophermapName)

	default:
		return gopher.ErrResourceNotFound(rc.selector, fmt.Errorf("%s is not a regular file", rc.resolved))
	}

	canonical, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return gopher.ErrNoGophermap(rc.selector, err)
	}
	if !gopher.Within(c.server.root, canonical) {
		return gopher.ErrPathInjection(rc.selector, canonical)
	}

	rc.gophermap = canonical
	return nil
}

// classify decides binary vs text. Directories are always their gophermap,
// served as text.
func (c *GopherConnection) classify(rc *requestContext) error {
	if rc.kind == pathDirectory {
		rc.binary = false
		return nil
	}

	index, err := c.gophermapIndex(rc)
	if err != nil {
		return err
	}

	binary, err := c.server.registry.Classifier().IsBinary(index, c.server.hosts, c.server.port(), rc.selector)
	if err != nil {
		return err
	}
	rc.binary = binary
	return nil
}

func (c *GopherConnection) gophermapIndex(rc *requestContext) (*gophermap.Index, error) {
	index, err := c.server.registry.Gophermaps().Get(rc.gophermap)
	if err != nil {
		return nil, gopher.ErrNoGophermap(rc.selector, err)
	}
	return index, nil
}

func (c *GopherConnection) stream(rc *requestContext) error {
	if timeout := c.server.config.WriteTimeout; timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}

	var src io.Reader = rc.file
	if rc.kind == pathDirectory {
		f, err := os.Open(rc.gophermap)
		if err != nil {
			return gopher.ErrNoGophermap(rc.selector, err)
		}
		rc.file = f
		src = f
	}

	var err error
	if rc.binary {
		rc.sent, err = gopher.CopyBinary(c.conn, src)
	} else {
		rc.sent, err = gopher.CopyText(c.conn, src)
	}
	if err != nil {
		return fmt.Errorf("stream %s: %w", rc.selector, err)
	}
	return nil
}

// finish maps the request outcome to what the client sees.
func (c *GopherConnection) finish(rc *requestContext, err error) {
	if err == nil {
		logger.Debug("[%s] Served %q as %s (%d bytes)", c.id, rc.selector, rc.outcome(nil), rc.sent)
		return
	}

	switch kind := gopher.KindOf(err); kind {
	case gopher.KindPathInjection:
		logger.Warn("[%s] Rejected request from %s: %v", c.id, c.conn.RemoteAddr(), err)

	case gopher.KindBadRequest, gopher.KindResourceNotFound, gopher.KindNoGophermap, gopher.KindNoEntryInGophermap:
		logger.Debug("[%s] Request %q from %s failed: %v", c.id, rc.selector, c.conn.RemoteAddr(), err)
		if werr := gopher.WriteError(c.conn, err); werr != nil {
			logger.Debug("[%s] Failed to write error response: %v", c.id, werr)
		}

	default:
		if isDisconnect(err) {
			logger.Debug("[%s] Connection from %s dropped: %v", c.id, c.conn.RemoteAddr(), err)
			return
		}
		logger.Error("[%s] Request %q from %s aborted: %v", c.id, rc.selector, c.conn.RemoteAddr(), err)
	}
}

// isDisconnect reports errors caused by the client going away or timing out.
func isDisconnect(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
