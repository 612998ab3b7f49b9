package gopher

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxRequestLineLength bounds the request line, terminator included.
const MaxRequestLineLength = 4096

// RootSelector is used when the client sends an empty line.
const RootSelector = "/"

// Request is a parsed Gopher request line.
//
// Search strings (the optional tab-separated suffix of a type 7 request) are
// not split off: the whole line is the selector.
type Request struct {
	// Raw is the line as received, without its terminator.
	Raw string

	// Selector is Raw, or RootSelector when Raw is empty.
	Selector string
}

// ReadRequest reads one CRLF- or LF-terminated request line from r.
//
// A line that ends at EOF without a terminator is accepted. Reading nothing at
// all, an over-long line, or a read error before the terminator yields a
// KindBadRequest error.
func ReadRequest(r io.Reader) (*Request, error) {
	br := bufio.NewReaderSize(r, MaxRequestLineLength)

	line, err := br.ReadSlice('\n')
	if err != nil {
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			return nil, ErrBadRequest(fmt.Errorf("request line exceeds %d bytes", MaxRequestLineLength))
		case errors.Is(err, io.EOF) && len(line) > 0:
			// Client half-closed after sending an unterminated line.
		default:
			return nil, ErrBadRequest(err)
		}
	}

	raw := strings.TrimSuffix(string(line), "\n")
	raw = strings.TrimSuffix(raw, "\r")

	req := &Request{Raw: raw, Selector: raw}
	if raw == "" {
		req.Selector = RootSelector
	}
	return req, nil
}
