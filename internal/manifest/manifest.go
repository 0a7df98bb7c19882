// Package manifest defines the ecosystem-agnostic dependency model that
// every parser produces and every feature generator consumes.
package manifest

// Span is a half-open byte range [Start, End) into the original manifest
// text. Spans stay valid for the lifetime of one parse; protocol
// coordinates are derived from them on demand.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether the byte offset falls inside the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// Section classifies where in the manifest a dependency was declared.
// Ecosystem-specific sections map onto this small fixed set; anything
// that does not fit is SectionOther.
type Section int

const (
	SectionRuntime Section = iota
	SectionDev
	SectionBuild
	SectionOther
)

func (s Section) String() string {
	switch s {
	case SectionRuntime:
		return "runtime"
	case SectionDev:
		return "dev"
	case SectionBuild:
		return "build"
	default:
		return "other"
	}
}

// Dependency is one declaration extracted from a manifest.
type Dependency struct {
	// Name is the package name as written. Never empty.
	Name string
	// NameSpan covers the name in the manifest text.
	NameSpan Span
	// Requirement is the declared version requirement, opaque to the
	// core. Empty when the manifest declares none.
	Requirement string
	// RequirementSpan covers the region an adapter's FormatVersion
	// output replaces: the whole literal including quotes for quoted
	// formats, the specifier alone for requirement strings. Nil when
	// there is no requirement to edit.
	RequirementSpan *Span
	// Section the dependency was declared in.
	Section Section
	// WorkspaceInherited is set when the version is inherited from a
	// workspace root rather than declared here.
	WorkspaceInherited bool
}

// ParseResult is the ordered outcome of parsing one manifest. It is
// replaced wholesale on re-parse, never mutated.
type ParseResult struct {
	URI          string
	Dependencies []Dependency
}

// Version is one published version as reported by a registry client.
// Clients return versions newest-first in ecosystem ordering.
type Version struct {
	// Value is the version string, opaque to the core.
	Value string
	// Yanked marks versions withdrawn by their publisher.
	Yanked bool
	// Prerelease marks pre-release or pseudo versions, excluded from
	// "newest stable" comparisons.
	Prerelease bool
}

// LatestStable returns the newest non-yanked, non-prerelease version
// from a newest-first list, or false when there is none.
func LatestStable(versions []Version) (Version, bool) {
	for _, v := range versions {
		if !v.Yanked && !v.Prerelease {
			return v, true
		}
	}
	return Version{}, false
}
