// Package position maps byte offsets in manifest text to protocol
// coordinates. An Index is immutable and rebuilt from scratch on every
// text change.
package position

import (
	"sort"
	"unicode/utf16"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"depls/internal/manifest"
)

// Index holds the line-start offsets of one version of a document.
type Index struct {
	text       string
	lineStarts []int
}

// NewIndex scans the text once and records where every line begins.
func NewIndex(text string) *Index {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Index{text: text, lineStarts: starts}
}

// Position resolves a byte offset to a line and UTF-16 column. Offsets
// on a line boundary belong to the start of the new line. Out-of-range
// offsets clamp to the last valid position instead of failing.
func (idx *Index) Position(offset int) protocol.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(idx.text) {
		offset = len(idx.text)
	}

	// First line whose start is beyond the offset; the offset lives on
	// the line before it.
	line := sort.Search(len(idx.lineStarts), func(i int) bool {
		return idx.lineStarts[i] > offset
	}) - 1

	col := utf16Len(idx.text[idx.lineStarts[line]:offset])
	return protocol.Position{Line: uint32(line), Character: uint32(col)}
}

// Range materializes a byte span into a protocol range.
func (idx *Index) Range(span manifest.Span) protocol.Range {
	return protocol.Range{
		Start: idx.Position(span.Start),
		End:   idx.Position(span.End),
	}
}

// Offset converts a protocol position back to a byte offset, clamped to
// the document. Columns are interpreted as UTF-16 code units.
func (idx *Index) Offset(pos protocol.Position) int {
	line := int(pos.Line)
	if line >= len(idx.lineStarts) {
		return len(idx.text)
	}
	start := idx.lineStarts[line]
	end := len(idx.text)
	if line+1 < len(idx.lineStarts) {
		end = idx.lineStarts[line+1]
	}

	remaining := int(pos.Character)
	for i, r := range idx.text[start:end] {
		if remaining <= 0 {
			return start + i
		}
		remaining -= utf16.RuneLen(r)
	}
	return end
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
