package gomod

import (
	"fmt"
	"strings"

	"golang.org/x/mod/modfile"

	"depls/internal/ecosystem"
	"depls/internal/manifest"
)

// Parse extracts require directives from go.mod text. Indirect
// requirements land in the Other section so features can treat them
// with less weight.
func (a *Adapter) Parse(text string, uri string) (*manifest.ParseResult, error) {
	file, err := modfile.Parse("go.mod", []byte(text), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ecosystem.ErrParse, err)
	}

	result := &manifest.ParseResult{URI: uri}
	for _, req := range file.Require {
		if req.Syntax == nil {
			continue
		}
		nameSpan, reqSpan, ok := tokenSpans(text, req.Syntax.Start.Byte, req.Syntax.End.Byte, req.Mod.Path, req.Mod.Version)
		if !ok {
			continue
		}
		section := manifest.SectionRuntime
		if req.Indirect {
			section = manifest.SectionOther
		}
		span := reqSpan
		result.Dependencies = append(result.Dependencies, manifest.Dependency{
			Name:            req.Mod.Path,
			NameSpan:        nameSpan,
			Requirement:     req.Mod.Version,
			RequirementSpan: &span,
			Section:         section,
		})
	}

	return result, nil
}

// tokenSpans locates the path and version tokens inside a require
// line's byte range. The version is searched after the path so a path
// that happens to contain the version text cannot shift it.
func tokenSpans(text string, start, end int, path, version string) (nameSpan, reqSpan manifest.Span, ok bool) {
	if start < 0 || end > len(text) || start >= end {
		return manifest.Span{}, manifest.Span{}, false
	}
	line := text[start:end]

	pathIdx := strings.Index(line, path)
	if pathIdx < 0 {
		return manifest.Span{}, manifest.Span{}, false
	}
	afterPath := pathIdx + len(path)
	verIdx := strings.Index(line[afterPath:], version)
	if verIdx < 0 {
		return manifest.Span{}, manifest.Span{}, false
	}
	verIdx += afterPath

	nameSpan = manifest.Span{Start: start + pathIdx, End: start + afterPath}
	reqSpan = manifest.Span{Start: start + verIdx, End: start + verIdx + len(version)}
	return nameSpan, reqSpan, true
}
