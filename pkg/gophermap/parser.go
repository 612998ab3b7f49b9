package gophermap

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxFields is the number of tab-separated fields in a gophermap record.
const maxFields = 4

// FormatError reports a gophermap line that cannot be turned into an entry
// without guessing.
type FormatError struct {
	// Line is the 1-based line number in the source text.
	Line int

	// Text is the offending line, terminators stripped.
	Text string

	// Reason describes what is missing.
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("gophermap line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// Parse converts gophermap text into its ordered sequence of entries.
//
// Parsing is lenient: lines with missing trailing fields yield entries with
// empty selector, host or port rather than failing the whole map. Empty lines
// are skipped. The only rejected line is one whose first field is empty, since
// it has no type character.
//
// Fields are copied verbatim. Any tabs beyond the fourth field stay in Port.
func Parse(text string) ([]Entry, error) {
	var entries []Entry

	lineNo := 0
	for len(text) > 0 {
		lineNo++

		var line string
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			line, text = text[:i], text[i+1:]
		} else {
			line, text = text, ""
		}
		line = strings.TrimSuffix(line, "\r")

		if line == "" {
			continue
		}

		entry, err := parseLine(line)
		if err != nil {
			return nil, &FormatError{Line: lineNo, Text: line, Reason: err.Error()}
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// parseLine splits a single non-empty record.
func parseLine(line string) (Entry, error) {
	fields := strings.SplitN(line, "\t", maxFields)

	head := fields[0]
	if head == "" {
		return Entry{}, fmt.Errorf("missing item type")
	}

	r, size := utf8.DecodeRuneInString(head)
	entry := Entry{
		Type:        ItemType(r),
		Description: head[size:],
	}

	if len(fields) > 1 {
		entry.Selector = fields[1]
	}
	if len(fields) > 2 {
		entry.Host = fields[2]
	}
	if len(fields) > 3 {
		entry.Port = fields[3]
	}

	return entry, nil
}
