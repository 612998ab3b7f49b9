// Package gophermap parses the per-directory gophermap index files.
//
// A gophermap is a tab-separated, line-oriented file. Every line declares one
// menu entry:
//
//	<type><description>\t<selector>\t<host>\t<port>
//
// The gophermap is both the human-facing menu of a directory and the source of
// truth for which selectors the server is allowed to serve, and how (binary or
// text). The filesystem alone cannot answer either question.
package gophermap

import (
	"strings"
)

// ItemType is the single-character RFC 1436 classification of an entry.
//
// Unknown characters are preserved as-is: a map author may use any type code
// and the parser never rejects it.
type ItemType rune

// RFC 1436 item types, plus the widely used non-canonical ones.
const (
	TypeTextFile      ItemType = '0'
	TypeDirectory     ItemType = '1'
	TypeCSOSearch     ItemType = '2'
	TypeError         ItemType = '3'
	TypeBinHex        ItemType = '4'
	TypeBinaryArchive ItemType = '5'
	TypeUUEncoded     ItemType = '6'
	TypeSearch        ItemType = '7'
	TypeTelnet        ItemType = '8'
	TypeBinaryFile    ItemType = '9'
	TypeMirror        ItemType = '+'
	TypeTN3270        ItemType = 'T'
	TypeGIF           ItemType = 'g'
	TypeImage         ItemType = 'I'

	TypeInfo  ItemType = 'i'
	TypeHTML  ItemType = 'h'
	TypeSound ItemType = 's'
)

// NullSelector is the placeholder selector used by informational lines.
const NullSelector = "(NULL)"

// IsBinary reports whether content of this type must be streamed without the
// text end-of-response sentinel.
//
// Only the binary archive (5) and binary file (9) types qualify. Everything
// else, including images and unknown codes, is served as text.
func (t ItemType) IsBinary() bool {
	return t == TypeBinaryArchive || t == TypeBinaryFile
}

// String returns the type character.
func (t ItemType) String() string {
	return string(rune(t))
}

// Entry is one line of a gophermap.
type Entry struct {
	Type        ItemType `json:"type"`
	Description string   `json:"description"`
	Selector    string   `json:"selector"`
	Host        string   `json:"host"`
	Port        string   `json:"port"`
}

// String renders the entry back into its gophermap wire form.
func (e Entry) String() string {
	var b strings.Builder
	b.WriteRune(rune(e.Type))
	b.WriteString(e.Description)
	b.WriteByte('\t')
	b.WriteString(e.Selector)
	b.WriteByte('\t')
	b.WriteString(e.Host)
	b.WriteByte('\t')
	b.WriteString(e.Port)
	return b.String()
}

// Matches reports whether the entry advertises selector on one of hosts at port.
func (e Entry) Matches(hosts map[string]struct{}, port, selector string) bool {
	if e.Selector != selector || e.Port != port {
		return false
	}
	_, ok := hosts[e.Host]
	return ok
}
