package features

import (
	"fmt"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"depls/internal/manifest"
	"depls/internal/session"
)

const hoverVersionCount = 8

// Hover describes the dependency under the cursor: registry link,
// declared requirement, locked and latest versions, and the newest few
// known versions. Returns nil when the position is not on a
// dependency.
func Hover(snap *session.Snapshot, pos protocol.Position) *protocol.Hover {
	if snap == nil {
		return nil
	}
	dep := snap.Dependency(snap.Index.Offset(pos))
	if dep == nil {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** — [%s](%s)\n\n", dep.Name, snap.Adapter.DisplayName(), snap.Adapter.PackageURL(dep.Name))
	if dep.Requirement != "" {
		fmt.Fprintf(&b, "Requirement: `%s`\n\n", dep.Requirement)
	}
	if dep.WorkspaceInherited {
		b.WriteString("Version inherited from the workspace\n\n")
	}
	if locked, ok := snap.Resolved[dep.Name]; ok {
		fmt.Fprintf(&b, "Locked: `%s`", locked)
		if isYanked(snap.Versions[dep.Name], locked) {
			b.WriteString(" ⚠️ yanked")
		}
		b.WriteString("\n\n")
	}

	versions := snap.Versions[dep.Name]
	if latest, ok := manifest.LatestStable(versions); ok {
		fmt.Fprintf(&b, "Latest: `%s`\n\n", latest.Value)
	}
	if matching, ok := snap.Latest[dep.Name]; ok {
		fmt.Fprintf(&b, "Latest matching: `%s`\n\n", matching)
	}
	if len(versions) > 0 {
		b.WriteString("Versions:\n")
		for i, v := range versions {
			if i == hoverVersionCount {
				fmt.Fprintf(&b, "- … %d more\n", len(versions)-i)
				break
			}
			b.WriteString("- `" + v.Value + "`")
			if v.Yanked {
				b.WriteString(" (yanked)")
			}
			b.WriteString("\n")
		}
	}

	rng := snap.Index.Range(dep.NameSpan)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: strings.TrimRight(b.String(), "\n"),
		},
		Range: &rng,
	}
}

func isYanked(versions []manifest.Version, value string) bool {
	for _, v := range versions {
		if v.Value == value {
			return v.Yanked
		}
	}
	return false
}
