package ecosystem

import (
	"fmt"
	"net/url"
	"strings"
)

// Table routes document identifiers to adapters by manifest filename.
// It is built once at startup and read-only afterwards, so lookups need
// no locking.
type Table struct {
	byFilename map[string]Adapter
	adapters   []Adapter
}

// NewTable returns an empty dispatch table.
func NewTable() *Table {
	return &Table{byFilename: make(map[string]Adapter)}
}

// Register adds an adapter and claims its manifest filenames. A filename
// already claimed by another adapter is a startup configuration error.
func (t *Table) Register(a Adapter) error {
	for _, name := range a.ManifestFilenames() {
		if prev, taken := t.byFilename[name]; taken {
			return fmt.Errorf("filename %q claimed by both %s and %s", name, prev.ID(), a.ID())
		}
		t.byFilename[name] = a
	}
	t.adapters = append(t.adapters, a)
	return nil
}

// Resolve returns the adapter for a document URI, or nil when no adapter
// claims its filename. A nil result means the document is inert, not an
// error.
func (t *Table) Resolve(uri string) Adapter {
	return t.byFilename[Filename(uri)]
}

// Adapters returns all registered adapters in registration order.
func (t *Table) Adapters() []Adapter {
	return t.adapters
}

// Filename extracts the final path segment from a document URI.
func Filename(uri string) string {
	path := uri
	if parsed, err := url.Parse(uri); err == nil && parsed.Path != "" {
		path = parsed.Path
	}
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}
	return path
}
