// Package npm implements the package.json ecosystem adapter backed by
// the npm registry.
package npm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/tidwall/gjson"

	"depls/internal/ecosystem"
	"depls/internal/manifest"
	"depls/internal/registry"
)

const registryBase = "https://registry.npmjs.org"

// Adapter is the npm ecosystem implementation.
type Adapter struct {
	cache *registry.Cache
}

// New returns an npm adapter fetching through the shared cache.
func New(cache *registry.Cache) *Adapter {
	return &Adapter{cache: cache}
}

func (a *Adapter) ID() string          { return "npm" }
func (a *Adapter) DisplayName() string { return "npm (JavaScript)" }

func (a *Adapter) ManifestFilenames() []string { return []string{"package.json"} }
func (a *Adapter) LockfileFilenames() []string { return []string{"package-lock.json"} }

// Versions fetches the package document and orders its versions map
// newest-first. A deprecated version counts as yanked.
func (a *Adapter) Versions(ctx context.Context, name string) ([]manifest.Version, error) {
	body, err := a.cache.Get(ctx, fmt.Sprintf("%s/%s", registryBase, name))
	if err != nil {
		return nil, err
	}

	doc := gjson.ParseBytes(body)
	versionsField := doc.Get("versions")
	if !versionsField.Exists() {
		return nil, fmt.Errorf("%w: no versions field for %s", ecosystem.ErrParse, name)
	}

	var versions []manifest.Version
	versionsField.ForEach(func(key, value gjson.Result) bool {
		versions = append(versions, manifest.Version{
			Value:      key.String(),
			Yanked:     value.Get("deprecated").Exists(),
			Prerelease: isPrerelease(key.String()),
		})
		return true
	})

	sortNewestFirst(versions)
	return versions, nil
}

// Matches checks semver range syntax (^, ~, >=, ||) against a version.
func (a *Adapter) Matches(requirement, version string) bool {
	req := strings.TrimSpace(requirement)
	switch req {
	case "", "*", "latest":
		return true
	}
	constraint, err := semver.NewConstraint(req)
	if err != nil {
		return false
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return constraint.Check(v)
}

// FormatVersion writes the version as package.json does, keeping the
// conventional caret prefix.
func (a *Adapter) FormatVersion(raw string) string {
	return `"^` + raw + `"`
}

func (a *Adapter) PackageURL(name string) string {
	return "https://www.npmjs.com/package/" + name
}

func isPrerelease(v string) bool {
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return false
	}
	return parsed.Prerelease() != ""
}

// sortNewestFirst orders by semver descending, falling back to string
// order for versions semver cannot parse.
func sortNewestFirst(versions []manifest.Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		vi, erri := semver.NewVersion(versions[i].Value)
		vj, errj := semver.NewVersion(versions[j].Value)
		if erri != nil || errj != nil {
			return versions[i].Value > versions[j].Value
		}
		return vi.GreaterThan(vj)
	})
}
