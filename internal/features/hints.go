// Package features turns document snapshots into LSP results. Every
// generator is a pure function over a snapshot and the configuration,
// so the handlers stay thin and the behavior is testable without a
// client.
package features

import (
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"depls/internal/config"
	"depls/internal/manifest"
	"depls/internal/session"
)

// MethodTextDocumentInlayHint is the request method, part of LSP 3.17.
// The protocol package stops at 3.16 so the wire types live here.
const MethodTextDocumentInlayHint = "textDocument/inlayHint"

// InlayHintParams mirrors the 3.17 request parameters.
type InlayHintParams struct {
	TextDocument protocol.TextDocumentIdentifier `json:"textDocument"`
	Range        protocol.Range                  `json:"range"`
}

// InlayHint mirrors the 3.17 response item.
type InlayHint struct {
	Position    protocol.Position `json:"position"`
	Label       string            `json:"label"`
	PaddingLeft bool              `json:"paddingLeft,omitempty"`
}

// InlayHints annotates every dependency with cached versions: an
// up-to-date marker when the requirement admits the newest stable
// version, otherwise the update template with "{}" replaced by it.
// Dependencies whose versions are not cached yet produce nothing.
func InlayHints(snap *session.Snapshot, cfg *config.Config) []InlayHint {
	if !cfg.InlayHints.Enabled || snap == nil {
		return nil
	}

	var hints []InlayHint
	for _, dep := range snap.Result.Dependencies {
		if dep.RequirementSpan == nil {
			continue
		}
		versions, cached := snap.Versions[dep.Name]
		if !cached {
			continue
		}
		latest, ok := manifest.LatestStable(versions)
		if !ok {
			continue
		}

		label := cfg.InlayHints.UpToDateText
		if !snap.Adapter.Matches(dep.Requirement, latest.Value) {
			label = strings.ReplaceAll(cfg.InlayHints.NeedsUpdateText, "{}", latest.Value)
		}
		hints = append(hints, InlayHint{
			Position:    snap.Index.Position(dep.RequirementSpan.End),
			Label:       label,
			PaddingLeft: true,
		})
	}
	return hints
}
