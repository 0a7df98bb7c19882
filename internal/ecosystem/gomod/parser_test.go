package gomod_test

import (
	"testing"

	"depls/internal/ecosystem/gomod"
	"depls/internal/manifest"
)

const modText = `module example.com/demo

go 1.23

require (
	github.com/stretchr/testify v1.9.0
	golang.org/x/sync v0.19.0 // indirect
)

require github.com/tliron/glsp v0.2.2
`

func parseMod(t *testing.T, text string) *manifest.ParseResult {
	t.Helper()
	result, err := gomod.New(nil).Parse(text, "file:///work/go.mod")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return result
}

func find(t *testing.T, result *manifest.ParseResult, name string) manifest.Dependency {
	t.Helper()
	for _, dep := range result.Dependencies {
		if dep.Name == name {
			return dep
		}
	}
	t.Fatalf("dependency %q not found in %+v", name, result.Dependencies)
	return manifest.Dependency{}
}

func TestParseRequireBlockSpans(t *testing.T) {
	result := parseMod(t, modText)

	testify := find(t, result, "github.com/stretchr/testify")
	if testify.Requirement != "v1.9.0" {
		t.Fatalf("expected v1.9.0, got %q", testify.Requirement)
	}
	if got := modText[testify.RequirementSpan.Start:testify.RequirementSpan.End]; got != "v1.9.0" {
		t.Fatalf("version span covers %q", got)
	}
	if got := modText[testify.NameSpan.Start:testify.NameSpan.End]; got != "github.com/stretchr/testify" {
		t.Fatalf("name span covers %q", got)
	}

	glsp := find(t, result, "github.com/tliron/glsp")
	if got := modText[glsp.RequirementSpan.Start:glsp.RequirementSpan.End]; got != "v0.2.2" {
		t.Fatalf("standalone require span covers %q", got)
	}
}

func TestParseIndirectSection(t *testing.T) {
	result := parseMod(t, modText)

	if find(t, result, "golang.org/x/sync").Section != manifest.SectionOther {
		t.Fatal("indirect requirement must land in other")
	}
	if find(t, result, "github.com/stretchr/testify").Section != manifest.SectionRuntime {
		t.Fatal("direct requirement must land in runtime")
	}
}

func TestMatchesMinimumVersion(t *testing.T) {
	adapter := gomod.New(nil)
	if !adapter.Matches("v1.9.0", "v1.10.0") {
		t.Fatal("newer version satisfies a minimum requirement")
	}
	if adapter.Matches("v1.9.0", "v1.8.0") {
		t.Fatal("older version does not")
	}
	if !adapter.Matches("v1.9.0", "v1.9.0") {
		t.Fatal("same version satisfies")
	}
}

func TestFormatVersionIdentity(t *testing.T) {
	if got := gomod.New(nil).FormatVersion("v1.10.0"); got != "v1.10.0" {
		t.Fatalf("expected identity, got %q", got)
	}
}
