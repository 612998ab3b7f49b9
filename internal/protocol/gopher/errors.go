package gopher

import (
	"errors"
	"fmt"
)

// Kind classifies the per-request outcomes that the connection handler maps to
// a protocol-visible (or deliberately invisible) response.
type Kind int

const (
	// KindUnknown is any failure outside the taxonomy (disk error mid-stream,
	// broken client connection, ...). It is logged, never rendered.
	KindUnknown Kind = iota

	// KindBadRequest: nothing could be read from the client.
	KindBadRequest

	// KindResourceNotFound: the resolved path is neither a directory nor a
	// readable regular file.
	KindResourceNotFound

	// KindNoGophermap: the governing gophermap is missing or unreadable.
	KindNoGophermap

	// KindNoEntryInGophermap: the governing gophermap does not list the
	// selector for this server's host and port.
	KindNoEntryInGophermap

	// KindPathInjection: the canonical path escapes the root. Answered with
	// silence.
	KindPathInjection
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindResourceNotFound:
		return "resource_not_found"
	case KindNoGophermap:
		return "no_gophermap"
	case KindNoEntryInGophermap:
		return "no_entry_in_gophermap"
	case KindPathInjection:
		return "path_injection"
	default:
		return "unknown"
	}
}

// Visible reports whether the client receives an informational line for this
// kind of failure.
func (k Kind) Visible() bool {
	switch k {
	case KindBadRequest, KindResourceNotFound, KindNoGophermap, KindNoEntryInGophermap:
		return true
	default:
		return false
	}
}

// Error is a classified request failure.
type Error struct {
	Kind Kind

	// Message is the client-facing text. It never contains filesystem paths.
	Message string

	// Err is the underlying cause, if any. Only logged.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the Kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return KindUnknown
}

// MessageOf returns the client-facing message of err.
func MessageOf(err error) string {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Message
	}
	return "Internal server error"
}

func newError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
	}
}

// ErrBadRequest builds a KindBadRequest error.
func ErrBadRequest(cause error) *Error {
	return newError(KindBadRequest, cause, "Bad request")
}

// ErrResourceNotFound builds a KindResourceNotFound error for selector.
func ErrResourceNotFound(selector string, cause error) *Error {
	return newError(KindResourceNotFound, cause, "Resource not found: %s", selector)
}

// ErrNoGophermap builds a KindNoGophermap error for selector.
func ErrNoGophermap(selector string, cause error) *Error {
	return newError(KindNoGophermap, cause, "No gophermap for: %s", selector)
}

// ErrNoEntryInGophermap builds a KindNoEntryInGophermap error for selector.
func ErrNoEntryInGophermap(selector string) *Error {
	return newError(KindNoEntryInGophermap, nil, "No entry in gophermap for: %s", selector)
}

// ErrPathInjection builds a KindPathInjection error. The message is only ever
// logged.
func ErrPathInjection(selector, resolved string) *Error {
	return newError(KindPathInjection, nil, "selector %q resolves outside root (%s)", selector, resolved)
}
