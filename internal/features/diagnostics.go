package features

import (
	"fmt"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"depls/internal/config"
	"depls/internal/manifest"
	"depls/internal/session"
)

const diagnosticSource = "depls"

// Diagnostics reports per-dependency problems: packages the registry
// does not know, requirements that shut out the newest stable version,
// and locked versions that were yanked. Dependencies still waiting on
// their first fetch produce nothing.
func Diagnostics(snap *session.Snapshot, cfg *config.Config) []protocol.Diagnostic {
	if snap == nil {
		return nil
	}

	diagnostics := []protocol.Diagnostic{}
	if snap.ParseErr != nil {
		diagnostics = append(diagnostics, diagnostic(
			protocol.Range{},
			protocol.DiagnosticSeverityError,
			fmt.Sprintf("manifest parse failed: %v", snap.ParseErr),
		))
		return diagnostics
	}

	for _, dep := range snap.Result.Dependencies {
		versions, cached := snap.Versions[dep.Name]
		if !cached {
			continue
		}

		if len(versions) == 0 {
			diagnostics = append(diagnostics, diagnostic(
				snap.Index.Range(dep.NameSpan),
				config.Severity(cfg.Diagnostics.UnknownSeverity),
				fmt.Sprintf("package %q not found in the registry", dep.Name),
			))
			continue
		}

		rng := snap.Index.Range(dep.NameSpan)
		if dep.RequirementSpan != nil {
			rng = snap.Index.Range(*dep.RequirementSpan)
		}

		if latest, ok := manifest.LatestStable(versions); ok && dep.RequirementSpan != nil {
			if !snap.Adapter.Matches(dep.Requirement, latest.Value) {
				diagnostics = append(diagnostics, diagnostic(
					rng,
					config.Severity(cfg.Diagnostics.OutdatedSeverity),
					fmt.Sprintf("%s %s is available", dep.Name, latest.Value),
				))
			}
		}

		if locked, ok := snap.Resolved[dep.Name]; ok && isYanked(versions, locked) {
			diagnostics = append(diagnostics, diagnostic(
				rng,
				config.Severity(cfg.Diagnostics.YankedSeverity),
				fmt.Sprintf("locked version %s of %s was yanked", locked, dep.Name),
			))
		}
	}
	return diagnostics
}

func diagnostic(rng protocol.Range, severity protocol.DiagnosticSeverity, message string) protocol.Diagnostic {
	source := diagnosticSource
	return protocol.Diagnostic{
		Range:    rng,
		Severity: &severity,
		Source:   &source,
		Message:  message,
	}
}
