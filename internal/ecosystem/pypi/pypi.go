// Package pypi implements the pyproject.toml ecosystem adapter backed
// by the PyPI JSON API.
package pypi

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/tidwall/gjson"

	"depls/internal/manifest"
	"depls/internal/registry"
)

const pypiBase = "https://pypi.org/pypi"

// Adapter is the PyPI ecosystem implementation.
type Adapter struct {
	cache *registry.Cache
}

// New returns a PyPI adapter fetching through the shared cache.
func New(cache *registry.Cache) *Adapter {
	return &Adapter{cache: cache}
}

func (a *Adapter) ID() string          { return "pypi" }
func (a *Adapter) DisplayName() string { return "PyPI (Python)" }

func (a *Adapter) ManifestFilenames() []string { return []string{"pyproject.toml"} }
func (a *Adapter) LockfileFilenames() []string { return nil }

// Versions fetches the package JSON document. A release whose files
// are all yanked counts as yanked.
func (a *Adapter) Versions(ctx context.Context, name string) ([]manifest.Version, error) {
	url := fmt.Sprintf("%s/%s/json", pypiBase, normalizeName(name))
	body, err := a.cache.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	releases := gjson.GetBytes(body, "releases")
	var versions []manifest.Version
	releases.ForEach(func(key, value gjson.Result) bool {
		yanked := value.IsArray() && len(value.Array()) > 0
		value.ForEach(func(_, file gjson.Result) bool {
			if !file.Get("yanked").Bool() {
				yanked = false
				return false
			}
			return true
		})
		versions = append(versions, manifest.Version{
			Value:      key.String(),
			Yanked:     yanked,
			Prerelease: isPrerelease(key.String()),
		})
		return true
	})

	sortNewestFirst(versions)
	return versions, nil
}

// Matches checks a PEP 440 specifier set. The compatible-release and
// exact-match operators are translated to their closest semver
// constraint before checking.
func (a *Adapter) Matches(requirement, version string) bool {
	req := strings.TrimSpace(requirement)
	if req == "" {
		return true
	}
	clauses := strings.Split(req, ",")
	for i, clause := range clauses {
		clauses[i] = translateClause(strings.TrimSpace(clause))
	}
	constraint, err := semver.NewConstraint(strings.Join(clauses, ","))
	if err != nil {
		return false
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return constraint.Check(v)
}

// translateClause maps a single PEP 440 clause onto semver constraint
// syntax. A compatible release pins all but the last stated component,
// so ~=1.4 still admits 1.9 while ~=1.4.5 stops at 1.5.
func translateClause(clause string) string {
	if rest, ok := strings.CutPrefix(clause, "~="); ok {
		rest = strings.TrimSpace(rest)
		if strings.Count(rest, ".") <= 1 {
			return "^" + rest
		}
		return "~" + rest
	}
	if rest, ok := strings.CutPrefix(clause, "=="); ok {
		return "=" + rest
	}
	return clause
}

// FormatVersion pins the suggested version the way requirement strings
// are edited in place.
func (a *Adapter) FormatVersion(raw string) string {
	return ">=" + raw
}

func (a *Adapter) PackageURL(name string) string {
	return "https://pypi.org/project/" + normalizeName(name)
}

// normalizeName applies PEP 503 name normalization.
func normalizeName(name string) string {
	lower := strings.ToLower(name)
	lower = strings.ReplaceAll(lower, "_", "-")
	lower = strings.ReplaceAll(lower, ".", "-")
	return lower
}

// isPrerelease reports whether a version carries a pre-release or dev
// segment. Final PEP 440 releases are purely numeric, so any letter
// outside a local-version suffix marks one.
func isPrerelease(v string) bool {
	base, _, _ := strings.Cut(v, "+")
	if strings.Contains(base, ".post") {
		base = base[:strings.Index(base, ".post")]
	}
	for _, r := range base {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}

// sortNewestFirst orders by version descending, using semver where the
// version parses and falling back to numeric-aware string comparison.
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
