package pypi

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"depls/internal/manifest"
	"depls/internal/tomlscan"
)

// Parse extracts PEP 621 dependencies from pyproject.toml text. The
// [project] dependencies array and every [project.optional-dependencies]
// group are read; each entry is a PEP 508 requirement string split into
// a name span and a specifier span inside the literal.
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
		if table.Type() != "table" || table.NamedChildCount() == 0 {
			continue
		}
		switch tomlscan.KeyText(table.NamedChild(0), src) {
		case "project":
			for _, pair := range tomlscan.Pairs(table) {
				key, value := tomlscan.PairParts(pair)
				if key == nil || value == nil {
					continue
				}
				switch tomlscan.KeyText(key, src) {
				case "dependencies":
					collectRequirements(value, src, manifest.SectionRuntime, result)
				case "optional-dependencies":
					collectGroups(value, src, result)
				}
			}
		case "project.optional-dependencies":
			for _, pair := range tomlscan.Pairs(table) {
				_, value := tomlscan.PairParts(pair)
				if value != nil {
					collectRequirements(value, src, manifest.SectionOther, result)
				}
			}
		}
	}

	return result, nil
}

// collectGroups walks an inline optional-dependencies table whose
// values are requirement arrays.
func collectGroups(node *sitter.Node, src []byte, result *manifest.ParseResult) {
	if node.Type() != "inline_table" {
		return
	}
	for _, pair := range tomlscan.Pairs(node) {
		_, value := tomlscan.PairParts(pair)
		if value != nil {
			collectRequirements(value, src, manifest.SectionOther, result)
		}
	}
}

func collectRequirements(array *sitter.Node, src []byte, section manifest.Section, result *manifest.ParseResult) {
	if array.Type() != "array" {
		return
	}
	for i := 0; i < int(array.NamedChildCount()); i++ {
		item := array.NamedChild(i)
		if item.Type() != "string" {
			continue
		}
		if dep, ok := parseRequirement(item, src, section); ok {
			result.Dependencies = append(result.Dependencies, dep)
		}
	}
}

// parseRequirement splits a PEP 508 requirement string literal into
// name and specifier spans. The spans address the characters inside
// the quotes, so edits rewrite the specifier without touching them.
func parseRequirement(node *sitter.Node, src []byte, section manifest.Section) (manifest.Dependency, bool) {
	literal := node.Content(src)
	inner := tomlscan.Unquote(literal)
	if inner == literal || inner == "" {
		return manifest.Dependency{}, false
	}
	base := int(node.StartByte()) + 1

	// Environment markers after ";" are never part of the edit range.
	body := inner
	if idx := strings.IndexByte(body, ';'); idx >= 0 {
		body = body[:idx]
	}

	nameEnd := len(body)
	for i, r := range body {
		if !isNameRune(r) {
			nameEnd = i
			break
		}
	}
	name := strings.TrimSpace(body[:nameEnd])
	if name == "" {
		return manifest.Dependency{}, false
	}

	dep := manifest.Dependency{
		Name:     name,
		NameSpan: manifest.Span{Start: base, End: base + nameEnd},
		Section:  section,
	}

	rest := body[nameEnd:]
	// Skip extras such as [security] before the specifier.
	specStart := nameEnd
	if idx := strings.IndexByte(rest, ']'); idx >= 0 && strings.HasPrefix(strings.TrimSpace(rest), "[") {
		specStart = nameEnd + idx + 1
		rest = body[specStart:]
	}
	spec := strings.TrimSpace(rest)
	if spec != "" {
		lead := len(rest) - len(strings.TrimLeft(rest, " \t"))
		trail := len(rest) - lead - len(spec)
		span := manifest.Span{
			Start: base + specStart + lead,
			End:   base + len(body) - trail,
		}
		dep.Requirement = spec
		dep.RequirementSpan = &span
	}

	return dep, true
}

func isNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == '.':
		return true
	}
	return false
}
