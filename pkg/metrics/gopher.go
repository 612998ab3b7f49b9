package metrics

import "time"

// Request outcomes reported by the Gopher adapter besides the error kinds.
const (
	OutcomeText      = "text"
	OutcomeBinary    = "binary"
	OutcomeDirectory = "directory"
)

// GopherMetrics provides observability for Gopher adapter operations.
//
// This interface is optional - if not provided to the Gopher adapter, a no-op
// implementation is used with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewGopherMetrics()
//	adapter, err := gopher.New(config, m)
//
//	// Without metrics (no-op)
//	adapter, err := gopher.New(config, nil)
type GopherMetrics interface {
	// RecordRequest records a completed request.
	//
	// Parameters:
	//   - outcome: "text", "binary", "directory", or the error kind label
	//     (e.g. "no_entry_in_gophermap", "path_injection")
	//   - duration: Time from accept to the last byte written
	RecordRequest(outcome string, duration time.Duration)

	// RecordBytesSent records response bytes written to a client.
	RecordBytesSent(outcome string, bytes int64)

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted increments the total accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the total closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed counts connections closed by the shutdown timeout.
	RecordConnectionForceClosed()

	// RecordConnectionThrottled counts accepts delayed by the rate limiter.
	RecordConnectionThrottled()
}

// NewNoopGopherMetrics returns a GopherMetrics that discards everything.
func NewNoopGopherMetrics() GopherMetrics {
	return noopGopherMetrics{}
}

type noopGopherMetrics struct{}

func (noopGopherMetrics) RecordRequest(string, time.Duration) {}
func (noopGopherMetrics) RecordBytesSent(string, int64)       {}
func (noopGopherMetrics) SetActiveConnections(int32)          {}
func (noopGopherMetrics) RecordConnectionAccepted()           {}
func (noopGopherMetrics) RecordConnectionClosed()             {}
func (noopGopherMetrics) RecordConnectionForceClosed()        {}
func (noopGopherMetrics) RecordConnectionThrottled()          {}
