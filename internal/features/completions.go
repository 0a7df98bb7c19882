package features

import (
	"fmt"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"depls/internal/session"
)

// Completions suggests versions when the cursor sits inside a
// requirement span. Items replace the whole span via FormatVersion and
// are ranked stable first, then prereleases, then yanked releases,
// newest first within each group.
func Completions(snap *session.Snapshot, pos protocol.Position) []protocol.CompletionItem {
	if snap == nil {
		return nil
	}
	offset := snap.Index.Offset(pos)

	for _, dep := range snap.Result.Dependencies {
		if dep.RequirementSpan == nil {
			continue
		}
		span := *dep.RequirementSpan
		if offset < span.Start || offset > span.End {
			continue
		}

		prefix := completionPrefix(snap.Content, span.Start, offset)
		rng := snap.Index.Range(span)

		var items []protocol.CompletionItem
		for i, v := range snap.Versions[dep.Name] {
			if prefix != "" && !strings.HasPrefix(v.Value, prefix) {
				continue
			}
			kind := protocol.CompletionItemKindValue
			item := protocol.CompletionItem{
				Label:    v.Value,
				Kind:     &kind,
				SortText: sortKey(v.Yanked, v.Prerelease, i),
				TextEdit: protocol.TextEdit{
					Range:   rng,
					NewText: snap.Adapter.FormatVersion(v.Value),
				},
			}
			switch {
			case v.Yanked:
				detail := v.Value + " (yanked)"
				item.Detail = &detail
				item.Tags = []protocol.CompletionItemTag{protocol.CompletionItemTagDeprecated}
			case v.Prerelease:
				detail := v.Value + " (pre-release)"
				item.Detail = &detail
			}
			items = append(items, item)
		}
		return items
	}
	return nil
}

// completionPrefix is the text typed between the span start and the
// cursor, stripped of quoting and constraint operators so it compares
// against bare version strings.
func completionPrefix(content string, start, cursor int) string {
	if start < 0 || cursor > len(content) || start > cursor {
		return ""
	}
	typed := content[start:cursor]
	typed = strings.Trim(typed, `"' `)
	return strings.TrimLeft(typed, "=^~><!")
}

// sortKey groups stable ahead of prerelease ahead of yanked. Adapters
// list versions newest first, so the running index keeps that order
// inside each group.
func sortKey(yanked, prerelease bool, index int) *string {
	group := "1"
	switch {
	case yanked:
		group = "3"
	case prerelease:
		group = "2"
	}
	key := fmt.Sprintf("%s_%06d", group, index)
	return &key
}
