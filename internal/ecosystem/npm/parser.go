package npm

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"depls/internal/ecosystem"
	"depls/internal/manifest"
)

// dependency sections of package.json, in scan order.
var sections = []struct {
	key     string
	section manifest.Section
}{
	{"dependencies", manifest.SectionRuntime},
	{"devDependencies", manifest.SectionDev},
	{"optionalDependencies", manifest.SectionOther},
	{"peerDependencies", manifest.SectionOther},
}

// Parse extracts dependencies from package.json text. gjson reports
// the byte index of every key and value, which becomes the spans.
func (a *Adapter) Parse(text string, uri string) (*manifest.ParseResult, error) {
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("%w: invalid JSON in %s", ecosystem.ErrParse, uri)
	}

	doc := gjson.Parse(text)
	result := &manifest.ParseResult{URI: uri}

	for _, sec := range sections {
		field := doc.Get(sec.key)
		if !field.IsObject() {
			continue
		}
		field.ForEach(func(key, value gjson.Result) bool {
			name := key.String()
			if name == "" || value.Type != gjson.String {
				return true
			}

			dep := manifest.Dependency{
				Name: name,
				// key.Index points at the opening quote.
				NameSpan: manifest.Span{
					Start: int(key.Index) + 1,
					End:   int(key.Index) + 1 + len(name),
				},
				Requirement:        value.String(),
				Section:            sec.section,
				WorkspaceInherited: strings.HasPrefix(value.String(), "workspace:"),
			}
			span := manifest.Span{
				Start: int(value.Index),
				End:   int(value.Index) + len(value.Raw),
			}
			dep.RequirementSpan = &span

			result.Dependencies = append(result.Dependencies, dep)
			return true
		})
	}

	return result, nil
}

// ResolveLocked reads the resolved version of a dependency out of
// package-lock.json, understanding both the v2/v3 packages layout and
// the legacy dependencies layout.
func (a *Adapter) ResolveLocked(lockText, name string) (string, bool) {
	if !gjson.Valid(lockText) {
		return "", false
	}
	doc := gjson.Parse(lockText)

	if v := doc.Get("packages.node_modules/" + escapePath(name) + ".version"); v.Exists() {
		return v.String(), true
	}
	if v := doc.Get("dependencies." + escapePath(name) + ".version"); v.Exists() {
		return v.String(), true
	}
	return "", false
}

// escapePath protects dots in scoped package names from gjson path
// syntax.
func escapePath(name string) string {
	return strings.ReplaceAll(name, ".", `\.`)
}
