package gophermap

// Index is a parsed gophermap bound to the canonical path of its file.
//
// An Index is never modified after ParseIndex returns it, so it can be shared
// freely between connections.
type Index struct {
	// Path is the canonical (symlink-free, absolute) path of the gophermap.
	Path string `json:"path"`

	// Entries holds the records in file order.
	Entries []Entry `json:"entries"`
}

// ParseIndex parses data read from the gophermap at path.
func ParseIndex(path string, data []byte) (*Index, error) {
	entries, err := Parse(string(data))
	if err != nil {
		return nil, err
	}
	return &Index{Path: path, Entries: entries}, nil
}

// Find returns the first entry, in file order, that advertises selector on
// one of hosts at port.
//
// Entries pointing at other servers are never returned: this server can only
// vouch for what it serves itself.
func (idx *Index) Find(hosts map[string]struct{}, port, selector string) (Entry, bool) {
	for _, e := range idx.Entries {
		if e.Matches(hosts, port, selector) {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	return len(idx.Entries)
}
