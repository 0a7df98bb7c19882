package features

import (
	"fmt"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"depls/internal/session"
)

const maxActionCandidates = 5

// CodeActions offers version updates for the dependencies intersecting
// the requested range. Each action rewrites the requirement span to one
// of the newest non-yanked versions; the newest is marked preferred.
func CodeActions(snap *session.Snapshot, rng protocol.Range) []protocol.CodeAction {
	if snap == nil {
		return nil
	}
	start := snap.Index.Offset(rng.Start)
	end := snap.Index.Offset(rng.End)

	var actions []protocol.CodeAction
	for _, dep := range snap.Result.Dependencies {
		if dep.RequirementSpan == nil {
			continue
		}
		span := *dep.RequirementSpan
		if end < dep.NameSpan.Start || start > span.End {
			continue
		}

		count := 0
		for _, v := range snap.Versions[dep.Name] {
			if v.Yanked || v.Prerelease {
				continue
			}
			newText := snap.Adapter.FormatVersion(v.Value)
			kind := protocol.CodeActionKindQuickFix
			preferred := count == 0
			actions = append(actions, protocol.CodeAction{
				Title:       fmt.Sprintf("Update %s to %s", dep.Name, v.Value),
				Kind:        &kind,
				IsPreferred: &preferred,
				Edit: &protocol.WorkspaceEdit{
					Changes: map[protocol.DocumentUri][]protocol.TextEdit{
						snap.URI: {{
							Range:   snap.Index.Range(span),
							NewText: newText,
						}},
					},
				},
			})
			count++
			if count == maxActionCandidates {
				break
			}
		}
	}
	return actions
}
