package pypi_test

import (
	"testing"

	"depls/internal/ecosystem/pypi"
	"depls/internal/manifest"
)

const pyprojectText = `[project]
name = "demo"
dependencies = [
    "requests>=2.28,<3",
    "flask",
    "uvicorn[standard]>=0.23",
]

[project.optional-dependencies]
test = ["pytest>=7.0"]
`

func parseProject(t *testing.T, text string) *manifest.ParseResult {
	t.Helper()
	result, err := pypi.New(nil).Parse(text, "file:///work/pyproject.toml")
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

func TestParseSpecifierSpans(t *testing.T) {
	result := parseProject(t, pyprojectText)

	requests := find(t, result, "requests")
	if requests.Requirement != ">=2.28,<3" {
		t.Fatalf("expected specifier, got %q", requests.Requirement)
	}
	if got := pyprojectText[requests.RequirementSpan.Start:requests.RequirementSpan.End]; got != ">=2.28,<3" {
		t.Fatalf("specifier span covers %q", got)
	}
	if got := pyprojectText[requests.NameSpan.Start:requests.NameSpan.End]; got != "requests" {
		t.Fatalf("name span covers %q", got)
	}
}

func TestParseBareNameHasNoRequirement(t *testing.T) {
	flask := find(t, parseProject(t, pyprojectText), "flask")
	if flask.Requirement != "" || flask.RequirementSpan != nil {
		t.Fatalf("bare name must have no requirement, got %+v", flask)
	}
}

func TestParseExtrasAreSkipped(t *testing.T) {
	uvicorn := find(t, parseProject(t, pyprojectText), "uvicorn")
	if uvicorn.Requirement != ">=0.23" {
		t.Fatalf("expected specifier after extras, got %q", uvicorn.Requirement)
	}
	if got := pyprojectText[uvicorn.RequirementSpan.Start:uvicorn.RequirementSpan.End]; got != ">=0.23" {
		t.Fatalf("specifier span covers %q", got)
	}
}

func TestParseOptionalGroups(t *testing.T) {
	pytest := find(t, parseProject(t, pyprojectText), "pytest")
	if pytest.Section != manifest.SectionOther {
		t.Fatalf("optional dependency must land in other, got %v", pytest.Section)
	}
}

func TestMatchesSpecifiers(t *testing.T) {
	adapter := pypi.New(nil)
	if !adapter.Matches(">=2.28,<3", "2.31.0") {
		t.Fatal("range must match")
	}
	if adapter.Matches(">=2.28,<3", "3.0.0") {
		t.Fatal("upper bound must hold")
	}
	if !adapter.Matches("==2.31.0", "2.31.0") {
		t.Fatal("exact pin must match itself")
	}
	if !adapter.Matches("", "1.0.0") {
		t.Fatal("no specifier matches anything")
	}
}

func TestMatchesCompatibleRelease(t *testing.T) {
	adapter := pypi.New(nil)
	if !adapter.Matches("~=1.4", "1.9.0") {
		t.Fatal("~=1.4 pins the major only, 1.9 is compatible")
	}
	if adapter.Matches("~=1.4", "2.0.0") {
		t.Fatal("~=1.4 must stop at the next major")
	}
	if !adapter.Matches("~=1.4.5", "1.4.9") {
		t.Fatal("~=1.4.5 admits later patches")
	}
	if adapter.Matches("~=1.4.5", "1.9.0") {
		t.Fatal("~=1.4.5 pins the minor")
	}
}
