// Package gomod implements the go.mod ecosystem adapter backed by the
// Go module proxy.
package gomod

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"

	"depls/internal/manifest"
	"depls/internal/registry"
)

const proxyBase = "https://proxy.golang.org"

// Adapter is the Go modules ecosystem implementation.
type Adapter struct {
	cache *registry.Cache
}

// New returns a Go modules adapter fetching through the shared cache.
func New(cache *registry.Cache) *Adapter {
	return &Adapter{cache: cache}
}

func (a *Adapter) ID() string          { return "gomod" }
func (a *Adapter) DisplayName() string { return "Go modules" }

func (a *Adapter) ManifestFilenames() []string { return []string{"go.mod"} }
func (a *Adapter) LockfileFilenames() []string { return nil }

// Versions lists a module's versions from the proxy @v/list endpoint.
// Pseudo-versions count as prereleases so they are never suggested.
func (a *Adapter) Versions(ctx context.Context, name string) ([]manifest.Version, error) {
	escaped, err := module.EscapePath(name)
	if err != nil {
		return nil, fmt.Errorf("escape module path %q: %w", name, err)
	}
	body, err := a.cache.Get(ctx, fmt.Sprintf("%s/%s/@v/list", proxyBase, escaped))
	if err != nil {
		return nil, err
	}

	var raw []string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		if v := strings.TrimSpace(scanner.Text()); v != "" {
			raw = append(raw, v)
		}
	}
	sort.Slice(raw, func(i, j int) bool {
		return semver.Compare(raw[i], raw[j]) > 0
	})

	versions := make([]manifest.Version, 0, len(raw))
	for _, v := range raw {
		versions = append(versions, manifest.Version{
			Value:      v,
			Prerelease: semver.Prerelease(v) != "" || module.IsPseudoVersion(v),
		})
	}
	return versions, nil
}

// Matches reports whether a version satisfies the manifest's minimum
// version requirement.
func (a *Adapter) Matches(requirement, version string) bool {
	if requirement == "" {
		return true
	}
	if !semver.IsValid(version) || !semver.IsValid(requirement) {
		return false
	}
	return semver.Compare(version, requirement) >= 0
}

// FormatVersion is the identity; go.mod versions carry no quoting.
func (a *Adapter) FormatVersion(raw string) string { return raw }

func (a *Adapter) PackageURL(name string) string {
	return "https://pkg.go.dev/" + name
}
