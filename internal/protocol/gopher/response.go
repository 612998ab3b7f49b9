package gopher

import (
	"io"
	"strings"
)

const (
	// CRLF terminates every line the server generates.
	CRLF = "\r\n"

	// Terminator is the end-of-response sentinel of text responses.
	Terminator = "." + CRLF
)

var infoSanitizer = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

// WriteInfo writes a single informational menu line carrying message.
//
// The record has an empty selector, the (NULL) host placeholder and port 0,
// so clients render it but cannot follow it.
func WriteInfo(w io.Writer, message string) error {
	_, err := io.WriteString(w, "i"+infoSanitizer.Replace(message)+"\t\t(NULL)\t0"+CRLF)
	return err
}

// WriteError renders a client-visible failure: one info line, then the
// sentinel.
func WriteError(w io.Writer, err error) error {
	if werr := WriteInfo(w, MessageOf(err)); werr != nil {
		return werr
	}
	_, werr := io.WriteString(w, Terminator)
	return werr
}

// CopyBinary streams r to w untouched. End of data is signalled by closing the
// connection, so nothing is appended.
func CopyBinary(w io.Writer, r io.Reader) (int64, error) {
	return io.Copy(w, r)
}

// CopyText streams r to w and appends the sentinel line.
//
// When the content does not end with a newline a CRLF is inserted first so
// that the dot stands on a line of its own.
func CopyText(w io.Writer, r io.Reader) (int64, error) {
	tw := &tailWriter{w: w}
	n, err := io.Copy(tw, r)
	if err != nil {
		return n, err
	}

	tail := Terminator
	if n > 0 && tw.last != '\n' {
		tail = CRLF + Terminator
	}

	m, err := io.WriteString(w, tail)
	return n + int64(m), err
}

// tailWriter remembers the last byte written through it.
type tailWriter struct {
	w    io.Writer
	last byte
}

func (t *tailWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if n > 0 {
		t.last = p[n-1]
	}
	return n, err
}
