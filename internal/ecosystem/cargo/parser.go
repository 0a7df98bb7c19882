package cargo

import (
	sitter "github.com/smacker/go-tree-sitter"

	"depls/internal/manifest"
	"depls/internal/tomlscan"
)

// sectionFor maps Cargo table names onto the uniform section set.
func sectionFor(table string) (manifest.Section, bool) {
	switch table {
	case "dependencies", "workspace.dependencies":
		return manifest.SectionRuntime, true
	case "dev-dependencies":
		return manifest.SectionDev, true
	case "build-dependencies":
		return manifest.SectionBuild, true
	default:
		return manifest.SectionOther, false
	}
}

// Parse extracts dependencies from Cargo.toml text. Both plain string
// requirements and inline tables with a version key are understood;
// workspace-inherited entries are flagged and carry no requirement.
func (a *Adapter) Parse(text string, uri string) (*manifest.ParseResult, error) {
	src := []byte(text)
	tree, err := tomlscan.Parse(src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	result := &manifest.ParseResult{URI: uri}

	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		table := root.NamedChild(i)
		if table.Type() != "table" {
			continue
		}
		if table.NamedChildCount() == 0 {
			continue
		}
		section, ok := sectionFor(tomlscan.KeyText(table.NamedChild(0), src))
		if !ok {
			continue
		}
		for _, pair := range tomlscan.Pairs(table) {
			if dep, ok := parseDependency(pair, src, section); ok {
				result.Dependencies = append(result.Dependencies, dep)
			}
		}
	}

	return result, nil
}

func parseDependency(pair *sitter.Node, src []byte, section manifest.Section) (manifest.Dependency, bool) {
	key, value := tomlscan.PairParts(pair)
	if key == nil || value == nil {
		return manifest.Dependency{}, false
	}

	dep := manifest.Dependency{
		Name:     tomlscan.KeyText(key, src),
		NameSpan: tomlscan.Span(key),
		Section:  section,
	}
	if dep.Name == "" {
		return manifest.Dependency{}, false
	}

	switch value.Type() {
	case "string":
		// serde = "1.0" — the span keeps the quotes so a code action
		// can replace the whole literal.
		span := tomlscan.Span(value)
		dep.Requirement = tomlscan.Unquote(value.Content(src))
		dep.RequirementSpan = &span
	case "inline_table":
		// tokio = { version = "1.0", features = [...] }
		for _, inner := range tomlscan.Pairs(value) {
			ikey, ivalue := tomlscan.PairParts(inner)
			if ikey == nil || ivalue == nil {
				continue
			}
			switch tomlscan.KeyText(ikey, src) {
			case "version":
				if ivalue.Type() == "string" {
					span := tomlscan.Span(ivalue)
					dep.Requirement = tomlscan.Unquote(ivalue.Content(src))
					dep.RequirementSpan = &span
				}
			case "workspace":
				if ivalue.Content(src) == "true" {
					dep.WorkspaceInherited = true
				}
			case "path", "git":
				// Local and git dependencies have no registry
				// versions to offer.
				return manifest.Dependency{}, false
			}
		}
	default:
		return manifest.Dependency{}, false
	}

	return dep, true
}
